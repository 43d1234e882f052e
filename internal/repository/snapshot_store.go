package repository

import (
	"context"
	"time"

	"PumpDump/internal/domain/models"
	"PumpDump/internal/domain/repository"
	"PumpDump/pkg/cache"
)

const (
	snapshotPrefix = "snapshot"
	displayKey     = "display"
	chartKey       = "chart"
)

// CacheSnapshotStore keeps the latest display and chart frame in a cache so
// HTTP readers never have to go through the engine.
type CacheSnapshotStore struct {
	cache cache.Service
	ttl   time.Duration
}

func NewCacheSnapshotStore(c cache.Service, ttl time.Duration) *CacheSnapshotStore {
	return &CacheSnapshotStore{cache: c, ttl: ttl}
}

var _ repository.SnapshotStore = (*CacheSnapshotStore)(nil)

func (s *CacheSnapshotStore) SaveDisplay(ctx context.Context, d models.Display) error {
	return s.cache.Set(ctx, cache.GenerateKey(snapshotPrefix, displayKey), d, s.ttl)
}

// LoadDisplay returns cache.ErrCacheMiss before the first save.
func (s *CacheSnapshotStore) LoadDisplay(ctx context.Context) (models.Display, error) {
	var d models.Display
	err := s.cache.Get(ctx, cache.GenerateKey(snapshotPrefix, displayKey), &d)
	return d, err
}

func (s *CacheSnapshotStore) SaveChart(ctx context.Context, f models.ChartFrame) error {
	return s.cache.Set(ctx, cache.GenerateKey(snapshotPrefix, chartKey), f, s.ttl)
}

func (s *CacheSnapshotStore) LoadChart(ctx context.Context) (models.ChartFrame, error) {
	var f models.ChartFrame
	err := s.cache.Get(ctx, cache.GenerateKey(snapshotPrefix, chartKey), &f)
	return f, err
}
