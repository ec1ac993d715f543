package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/docflow/internal/model"
)

const leadsTable = "leads"

// LeadStore records marketing leads.
type LeadStore struct {
	db  *DB
	now func() time.Time
}

// NewLeadStore returns a LeadStore backed by db.
func NewLeadStore(db *DB) *LeadStore {
	return &LeadStore{db: db, now: time.Now}
}

// Create normalizes, validates and stores a lead.
func (s *LeadStore) Create(ctx context.Context, id model.Identity, l model.Lead) (model.Lead, error) {
	l.Normalize()
	if err := l.Validate(); err != nil {
		return model.Lead{}, err
	}
	l.ID = uuid.New().String()
	l.TenantID = id.TenantID
	l.CreatedAt = s.now().UTC()

	err := s.db.WithTenantContext(ctx, id, func(tx *Tx) error {
		return tx.Insert(ctx, leadsTable, Row{
			"id":         l.ID,
			"name":       l.Name,
			"email":      l.Email,
			"company":    l.Company,
			"phone":      l.Phone,
			"message":    l.Message,
			"source":     l.Source,
			"created_at": l.CreatedAt,
		})
	})
	if err != nil {
		return model.Lead{}, fmt.Errorf("creating lead: %w", err)
	}
	return l, nil
}

// List returns one page of leads, newest first.
func (s *LeadStore) List(ctx context.Context, id model.Identity, page PageRequest) ([]model.Lead, PageResult, error) {
	var (
		out []model.Lead
		res PageResult
	)
	err := s.db.WithTenantContext(ctx, id, func(tx *Tx) error {
		var err error
		res, err = tx.Paginate(ctx, Query{Table: leadsTable, Desc: true}, page, &out)
		return err
	})
	if err != nil {
		return nil, PageResult{}, fmt.Errorf("listing leads: %w", err)
	}
	if out == nil {
		out = []model.Lead{}
	}
	return out, res, nil
}
