package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	jose "github.com/dvsekhvalnov/jose2go"

	"github.com/nhle/docflow/internal/model"
)

// DefaultTokenTTL is the lifetime of minted access tokens.
const DefaultTokenTTL = 15 * time.Minute

// Claims is the payload of a DocFlow access token.
type Claims struct {
	Subject  string `json:"sub"`
	Email    string `json:"email,omitempty"`
	TenantID string `json:"tenant_id,omitempty"`
	Role     string `json:"role,omitempty"`
	IssuedAt int64  `json:"iat"`
	Expiry   int64  `json:"exp"`
}

// Issuer mints and verifies HS256 access tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer. A non-positive ttl uses DefaultTokenTTL.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("auth: signing secret is empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL returns the lifetime of minted tokens.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Mint signs a token for id that expires after the issuer's TTL.
func (i *Issuer) Mint(id model.Identity) (string, error) {
	now := i.now()
	claims := Claims{
		Subject:  id.UserID,
		Email:    id.Email,
		TenantID: id.TenantID,
		Role:     id.Role,
		IssuedAt: now.Unix(),
		Expiry:   now.Add(i.ttl).Unix(),
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("encoding claims: %w", err)
	}
	token, err := jose.Sign(string(payload), jose.HS256, i.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return token, nil
}

// Verify checks the signature, algorithm and expiry of token and returns
// the identity it carries. Missing tenant and role claims default to
// model.DefaultTenant and model.RoleUser. All failures wrap
// model.ErrUnauthorized.
func (i *Issuer) Verify(token string) (model.Identity, error) {
	payload, headers, err := jose.Decode(token, i.secret)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: invalid token: %v", model.ErrUnauthorized, err)
	}
	if alg, _ := headers["alg"].(string); alg != jose.HS256 {
		return model.Identity{}, fmt.Errorf("%w: unexpected token algorithm %q", model.ErrUnauthorized, alg)
	}

	var claims Claims
	if err := json.Unmarshal([]byte(payload), &claims); err != nil {
		return model.Identity{}, fmt.Errorf("%w: malformed claims", model.ErrUnauthorized)
	}
	if claims.Expiry == 0 || i.now().Unix() >= claims.Expiry {
		return model.Identity{}, fmt.Errorf("%w: token expired", model.ErrUnauthorized)
	}
	if claims.Subject == "" {
		return model.Identity{}, fmt.Errorf("%w: token has no subject", model.ErrUnauthorized)
	}

	id := model.Identity{
		UserID:   claims.Subject,
		Email:    claims.Email,
		TenantID: claims.TenantID,
		Role:     claims.Role,
	}
	if id.TenantID == "" {
		id.TenantID = model.DefaultTenant
	}
	if id.Role == "" {
		id.Role = model.RoleUser
	}
	return id, nil
}

// ExtractBearer returns the credential from an Authorization header value.
func ExtractBearer(header string) (string, error) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", fmt.Errorf("%w: missing bearer token", model.ErrUnauthorized)
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", fmt.Errorf("%w: missing bearer token", model.ErrUnauthorized)
	}
	return token, nil
}
