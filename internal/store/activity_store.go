package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/docflow/internal/model"
)

const activitiesTable = "activities"

// ActivityStore persists feed activities per tenant.
type ActivityStore struct {
	db  *DB
	now func() time.Time
}

// NewActivityStore returns an ActivityStore backed by db.
func NewActivityStore(db *DB) *ActivityStore {
	return &ActivityStore{db: db, now: time.Now}
}

// Create records a new activity for the caller's tenant. Missing id,
// status and timestamp are filled in. The stored activity is returned.
func (s *ActivityStore) Create(ctx context.Context, id model.Identity, a model.Activity) (model.Activity, error) {
	clientID := a.ID != ""
	if !clientID {
		a.ID = uuid.New().String()
	}
	if a.Status == "" {
		a.Status = model.StatusSuccess
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = s.now()
	}
	a.Timestamp = a.Timestamp.UTC()
	a.Type = model.ParseActivityType(string(a.Type))
	a.TenantID = id.TenantID

	err := s.db.WithTenantContext(ctx, id, func(tx *Tx) error {
		if clientID {
			var existing model.Activity
			err := tx.GetByID(ctx, activitiesTable, a.ID, &existing)
			if err == nil {
				return model.NewValidationError("id", "activity id already exists", "duplicate")
			}
			if !errors.Is(err, model.ErrNotFound) {
				return err
			}
		}
		return tx.Insert(ctx, activitiesTable, Row{
			"id":         a.ID,
			"type":       string(a.Type),
			"action":     a.Action,
			"actor":      a.Actor,
			"details":    a.Details,
			"status":     string(a.Status),
			"created_at": a.Timestamp,
		})
	})
	if err != nil {
		return model.Activity{}, fmt.Errorf("creating activity: %w", err)
	}
	return a, nil
}

// Get returns one activity by id.
func (s *ActivityStore) Get(ctx context.Context, id model.Identity, activityID string) (model.Activity, error) {
	var a model.Activity
	err := s.db.WithTenantContext(ctx, id, func(tx *Tx) error {
		return tx.GetByID(ctx, activitiesTable, activityID, &a)
	})
	if err != nil {
		return model.Activity{}, err
	}
	return a, nil
}

// Recent returns the tenant's activities, newest first.
func (s *ActivityStore) Recent(ctx context.Context, id model.Identity, page PageRequest) ([]model.Activity, PageResult, error) {
	return s.list(ctx, id, Query{Table: activitiesTable, Desc: true}, page)
}

// ByTypes returns up to limit of the tenant's activities whose type is
// one of types, newest first.
func (s *ActivityStore) ByTypes(ctx context.Context, id model.Identity, types []model.ActivityType, limit int) ([]model.Activity, error) {
	vals := make([]any, len(types))
	for i, t := range types {
		vals[i] = string(t)
	}
	out, _, err := s.list(ctx, id, Query{
		Table: activitiesTable,
		In:    map[string][]any{"type": vals},
		Desc:  true,
	}, PageRequest{Limit: limit})
	return out, err
}

func (s *ActivityStore) list(ctx context.Context, id model.Identity, q Query, page PageRequest) ([]model.Activity, PageResult, error) {
	var (
		out []model.Activity
		res PageResult
	)
	err := s.db.WithTenantContext(ctx, id, func(tx *Tx) error {
		var err error
		res, err = tx.Paginate(ctx, q, page, &out)
		return err
	})
	if err != nil {
		return nil, PageResult{}, fmt.Errorf("listing activities: %w", err)
	}
	if out == nil {
		out = []model.Activity{}
	}
	return out, res, nil
}
