package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prepflow/prepflow-backend/pkg/errors"
)

// MemoryAlertStore is an in-memory alert store mirroring AlertRepository
// semantics, including the one-unacknowledged-alert-per-product rule.
type MemoryAlertStore struct {
	mu     sync.Mutex
	alerts map[string]*LowStockAlert
}

// NewMemoryAlertStore creates an empty in-memory alert store
func NewMemoryAlertStore() *MemoryAlertStore {
	return &MemoryAlertStore{
		alerts: make(map[string]*LowStockAlert),
	}
}

// CreateIfAbsent inserts an alert unless the product already has an
// unacknowledged one
func (s *MemoryAlertStore) CreateIfAbsent(ctx context.Context, alert *LowStockAlert) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.alerts {
		if a.ProductID == alert.ProductID && !a.Acknowledged {
			return false, nil
		}
	}

	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	alert.CreatedAt = time.Now().UTC()
	cp := *alert
	s.alerts[alert.ID] = &cp
	return true, nil
}

// GetByID gets an alert by ID
func (s *MemoryAlertStore) GetByID(ctx context.Context, id string) (*LowStockAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert, ok := s.alerts[id]
	if !ok {
		return nil, errors.NotFound("alert")
	}
	cp := *alert
	return &cp, nil
}

// Acknowledge marks an alert as acknowledged
func (s *MemoryAlertStore) Acknowledge(ctx context.Context, id, actorID string) (*LowStockAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert, ok := s.alerts[id]
	if !ok || alert.Acknowledged {
		return nil, errors.NotFound("alert")
	}
	now := time.Now().UTC()
	alert.Acknowledged = true
	alert.AcknowledgedBy = &actorID
	alert.AcknowledgedAt = &now
	cp := *alert
	return &cp, nil
}

// ListOpen lists unacknowledged alerts, newest first
func (s *MemoryAlertStore) ListOpen(ctx context.Context) ([]*LowStockAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*LowStockAlert
	for _, a := range s.alerts {
		if !a.Acknowledged {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
