package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"medicus/internal/patient/models"
	id "medicus/pkg/domain"
)

const (
	patientCacheKeyPrefix  = "patient:id:"
	defaultPatientCacheTTL = 5 * time.Minute
)

// CachedStore decorates a Store with a Redis read-through cache on
// FindByID. Every mutation invalidates the record's cache entry before
// writing through, so a failed backend write never leaves a stale copy
// behind. Cache errors degrade to backend reads and are logged, never
// returned.
type CachedStore struct {
	Store
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

type CachedStoreOption func(*CachedStore)

func WithCacheTTL(ttl time.Duration) CachedStoreOption {
	return func(c *CachedStore) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithCacheLogger(logger *slog.Logger) CachedStoreOption {
	return func(c *CachedStore) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewCachedStore(backend Store, client *redis.Client, opts ...CachedStoreOption) *CachedStore {
	c := &CachedStore{
		Store:  backend,
		client: client,
		ttl:    defaultPatientCacheTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *CachedStore) FindByID(ctx context.Context, patientID id.PatientID) (*models.Patient, error) {
	key := patientCacheKeyPrefix + patientID.String()

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var p models.Patient
		if unmarshalErr := json.Unmarshal(raw, &p); unmarshalErr == nil {
			return &p, nil
		}
		// Unreadable entry, fall through to the backend and rewrite it.
		c.client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.WarnContext(ctx, "patient cache read failed",
			slog.String("patient_id", patientID.String()),
			slog.String("error", err.Error()))
	}

	p, err := c.Store.FindByID(ctx, patientID)
	if err != nil {
		return nil, err
	}

	if payload, marshalErr := json.Marshal(p); marshalErr == nil {
		if setErr := c.client.Set(ctx, key, payload, c.ttl).Err(); setErr != nil {
			c.logger.WarnContext(ctx, "patient cache write failed",
				slog.String("patient_id", patientID.String()),
				slog.String("error", setErr.Error()))
		}
	}
	return p, nil
}

func (c *CachedStore) Update(ctx context.Context, p *models.Patient) error {
	c.invalidate(ctx, p.ID)
	return c.Store.Update(ctx, p)
}

func (c *CachedStore) DeleteByID(ctx context.Context, patientID id.PatientID) error {
	c.invalidate(ctx, patientID)
	return c.Store.DeleteByID(ctx, patientID)
}

func (c *CachedStore) invalidate(ctx context.Context, patientID id.PatientID) {
	key := patientCacheKeyPrefix + patientID.String()
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.WarnContext(ctx, "patient cache invalidation failed",
			slog.String("patient_id", patientID.String()),
			slog.String("error", err.Error()))
	}
}
