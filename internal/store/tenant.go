package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/docflow/internal/model"
)

// Page size bounds enforced by Paginate regardless of what callers ask for.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// Row maps column names to values for Insert and Update.
type Row map[string]any

// Query selects rows of one table for Paginate. The tenant predicate is
// always added and cannot be expressed here.
type Query struct {
	Table string

	// Eq adds column = value predicates.
	Eq map[string]any

	// In adds column IN (values...) predicates. An empty slice matches nothing.
	In map[string][]any

	// OrderBy names the sort column; empty means created_at.
	OrderBy string
	Desc    bool
}

// PageRequest is the caller's requested window.
type PageRequest struct {
	Limit  int
	Offset int
}

// PageResult describes the window Paginate actually returned.
type PageResult struct {
	Total   int
	Limit   int
	Offset  int
	HasMore bool
}

// ClampPage applies the default and maximum page size and floors the
// offset at zero.
func ClampPage(p PageRequest) PageRequest {
	switch {
	case p.Limit <= 0:
		p.Limit = DefaultPageLimit
	case p.Limit > MaxPageLimit:
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func checkIdent(names ...string) error {
	for _, n := range names {
		if !identRe.MatchString(n) {
			return fmt.Errorf("invalid identifier %q", n)
		}
	}
	return nil
}

// Tx is a tenant-scoped unit of work. Every statement it issues carries
// the tenant predicate of its identity.
type Tx struct {
	tx       *sqlx.Tx
	identity model.Identity
}

// Identity returns the identity the transaction is scoped to.
func (t *Tx) Identity() model.Identity {
	return t.identity
}

// WithTenantContext runs fn in a fresh transaction whose session settings
// carry the identity's tenant and role. Settings are transaction-local, so
// nothing leaks to the next user of the pooled connection. If the settings
// cannot be applied fn is not run.
func (s *DB) WithTenantContext(ctx context.Context, id model.Identity, fn func(*Tx) error) error {
	if id.TenantID == "" {
		return fmt.Errorf("%w: identity has no tenant", model.ErrUnauthorized)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if s.postgres() {
		if err := applySessionSettings(ctx, tx, id); err != nil {
			return err
		}
	}

	if err := fn(&Tx{tx: tx, identity: id}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func applySessionSettings(ctx context.Context, tx *sqlx.Tx, id model.Identity) error {
	role := id.Role
	if role == "" {
		role = model.RoleUser
	}
	_, err := tx.ExecContext(ctx,
		"SELECT set_config('app.current_tenant_id', $1, true), set_config('app.user_role', $2, true)",
		id.TenantID, role,
	)
	if err != nil {
		return fmt.Errorf("setting tenant context: %w", err)
	}
	if id.IsStaff() && id.OverrideReason != "" {
		_, err := tx.ExecContext(ctx,
			"SELECT set_config('app.admin_override_reason', $1, true)",
			id.OverrideReason,
		)
		if err != nil {
			return fmt.Errorf("setting override reason: %w", err)
		}
	}
	return nil
}

// CurrentSetting reads a Postgres session setting into dest. Unset
// settings read as the empty string.
func (t *Tx) CurrentSetting(ctx context.Context, name string, dest *string) error {
	var v sql.NullString
	if err := t.tx.GetContext(ctx, &v, "SELECT current_setting($1, true)", name); err != nil {
		return fmt.Errorf("reading setting %s: %w", name, err)
	}
	*dest = v.String
	return nil
}

// GetByID loads the row with id into dest. A row owned by another tenant
// is reported exactly like a missing one, as model.ErrNotFound.
func (t *Tx) GetByID(ctx context.Context, table, id string, dest any) error {
	if err := checkIdent(table); err != nil {
		return err
	}
	q := t.tx.Rebind(fmt.Sprintf("SELECT * FROM %s WHERE id = ? AND tenant_id = ?", table))
	if err := t.tx.GetContext(ctx, dest, q, id, t.identity.TenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s %s: %w", table, id, model.ErrNotFound)
		}
		return fmt.Errorf("getting %s %s: %w", table, id, err)
	}
	return nil
}

// Insert adds row to table. The tenant_id column is always set to the
// caller's tenant, overriding any value in row.
func (t *Tx) Insert(ctx context.Context, table string, row Row) error {
	if err := checkIdent(table); err != nil {
		return err
	}
	stamped := make(Row, len(row)+1)
	for k, v := range row {
		stamped[k] = v
	}
	stamped["tenant_id"] = t.identity.TenantID

	cols := sortedColumns(stamped)
	if err := checkIdent(cols...); err != nil {
		return err
	}
	args := make([]any, len(cols))
	for i, c := range cols {
		args[i] = stamped[c]
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	q := t.tx.Rebind(fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), placeholders,
	))
	if _, err := t.tx.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("inserting into %s: %w", table, err)
	}
	return nil
}

// Update sets the columns in patch on the row with id. The id and
// tenant_id columns cannot be changed. Updating a row of another tenant
// returns model.ErrNotFound.
func (t *Tx) Update(ctx context.Context, table, id string, patch Row) error {
	if err := checkIdent(table); err != nil {
		return err
	}
	cols := make([]string, 0, len(patch))
	for _, c := range sortedColumns(patch) {
		if c == "id" || c == "tenant_id" {
			continue
		}
		cols = append(cols, c)
	}
	if len(cols) == 0 {
		var exists int
		q := t.tx.Rebind(fmt.Sprintf("SELECT 1 FROM %s WHERE id = ? AND tenant_id = ?", table))
		if err := t.tx.GetContext(ctx, &exists, q, id, t.identity.TenantID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%s %s: %w", table, id, model.ErrNotFound)
			}
			return fmt.Errorf("checking %s %s: %w", table, id, err)
		}
		return nil
	}
	if err := checkIdent(cols...); err != nil {
		return err
	}

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+2)
	for i, c := range cols {
		sets[i] = c + " = ?"
		args = append(args, patch[c])
	}
	args = append(args, id, t.identity.TenantID)

	q := t.tx.Rebind(fmt.Sprintf(
		"UPDATE %s SET %s WHERE id = ? AND tenant_id = ?",
		table, strings.Join(sets, ", "),
	))
	res, err := t.tx.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("updating %s %s: %w", table, id, err)
	}
	return requireAffected(res, table, id)
}

// Delete removes the row with id. Deleting a row of another tenant
// returns model.ErrNotFound.
func (t *Tx) Delete(ctx context.Context, table, id string) error {
	if err := checkIdent(table); err != nil {
		return err
	}
	q := t.tx.Rebind(fmt.Sprintf("DELETE FROM %s WHERE id = ? AND tenant_id = ?", table))
	res, err := t.tx.ExecContext(ctx, q, id, t.identity.TenantID)
	if err != nil {
		return fmt.Errorf("deleting %s %s: %w", table, id, err)
	}
	return requireAffected(res, table, id)
}

// Paginate loads one page of q into dest, which must be a pointer to a
// slice. The limit is clamped to [1, MaxPageLimit].
func (t *Tx) Paginate(ctx context.Context, q Query, page PageRequest, dest any) (PageResult, error) {
	page = ClampPage(page)
	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = "created_at"
	}
	if err := checkIdent(q.Table, orderBy); err != nil {
		return PageResult{}, err
	}

	where, args, err := t.whereClause(q)
	if err != nil {
		return PageResult{}, err
	}

	var total int
	countQ, countArgs, err := sqlx.In(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", q.Table, where), args...)
	if err != nil {
		return PageResult{}, fmt.Errorf("building count query: %w", err)
	}
	if err := t.tx.GetContext(ctx, &total, t.tx.Rebind(countQ), countArgs...); err != nil {
		return PageResult{}, fmt.Errorf("counting %s: %w", q.Table, err)
	}

	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	selectQ, selectArgs, err := sqlx.In(fmt.Sprintf(
		"SELECT * FROM %s WHERE %s ORDER BY %s %s, id %s LIMIT ? OFFSET ?",
		q.Table, where, orderBy, dir, dir,
	), append(args, page.Limit, page.Offset)...)
	if err != nil {
		return PageResult{}, fmt.Errorf("building select query: %w", err)
	}
	if err := t.tx.SelectContext(ctx, dest, t.tx.Rebind(selectQ), selectArgs...); err != nil {
		return PageResult{}, fmt.Errorf("listing %s: %w", q.Table, err)
	}

	return PageResult{
		Total:   total,
		Limit:   page.Limit,
		Offset:  page.Offset,
		HasMore: total > page.Offset+page.Limit,
	}, nil
}

// whereClause renders the tenant predicate plus q's filters with
// placeholders suitable for sqlx.In.
func (t *Tx) whereClause(q Query) (string, []any, error) {
	parts := []string{"tenant_id = ?"}
	args := []any{t.identity.TenantID}

	for _, c := range sortedColumns(q.Eq) {
		if err := checkIdent(c); err != nil {
			return "", nil, err
		}
		parts = append(parts, c+" = ?")
		args = append(args, q.Eq[c])
	}

	inCols := make([]string, 0, len(q.In))
	for c := range q.In {
		inCols = append(inCols, c)
	}
	sort.Strings(inCols)
	for _, c := range inCols {
		if err := checkIdent(c); err != nil {
			return "", nil, err
		}
		vals := q.In[c]
		if len(vals) == 0 {
			parts = append(parts, "1 = 0")
			continue
		}
		parts = append(parts, c+" IN (?)")
		args = append(args, vals)
	}

	return strings.Join(parts, " AND "), args, nil
}

func requireAffected(res sql.Result, table, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", table, id, model.ErrNotFound)
	}
	return nil
}

func sortedColumns[V any](m map[string]V) []string {
	cols := make([]string, 0, len(m))
	for c := range m {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}
