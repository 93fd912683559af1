package services

import (
	"context"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

const (
	DefaultActivityLimit = 50
	MaxActivityLimit     = 200
)

type ActivityService struct {
	store storage.ActivityStore
}

func NewActivityService(store storage.ActivityStore) *ActivityService {
	return &ActivityService{store: store}
}

// List returns the newest activity entries of userID. Non-positive limits
// fall back to DefaultActivityLimit; larger ones are capped at MaxActivityLimit.
func (s *ActivityService) List(ctx context.Context, userID int64, limit int) ([]core.Activity, error) {
	switch {
	case limit <= 0:
		limit = DefaultActivityLimit
	case limit > MaxActivityLimit:
		limit = MaxActivityLimit
	}
	out, err := s.store.ListActivity(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return out, nil
}
