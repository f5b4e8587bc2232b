package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kiranshivaraju/artscan/pkg/models"
)

// Records is a read-through fast path for persisted analyses, keyed by
// image identity and by name. Postgres stays the source of truth.
type Records struct {
	cache Cache
	ttl   time.Duration
}

// NewRecords wraps c. A zero ttl keeps entries until they are invalidated.
func NewRecords(c Cache, ttl time.Duration) *Records {
	return &Records{cache: c, ttl: ttl}
}

// ByIdentity returns the cached record for an exact image identity.
func (r *Records) ByIdentity(ctx context.Context, identity string) (*models.ImageAnalysis, bool, error) {
	return r.get(ctx, ImageIdentityKey(identity))
}

// ByName returns the cached record for a case-insensitive name.
func (r *Records) ByName(ctx context.Context, name string) (*models.ImageAnalysis, bool, error) {
	return r.get(ctx, NameKey(name))
}

// Put stores a under both of its lookup keys.
func (r *Records) Put(ctx context.Context, a *models.ImageAnalysis) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	if a.Metadata.ImageURI != "" {
		if err := r.cache.Set(ctx, ImageIdentityKey(a.Metadata.ImageURI), data, r.ttl); err != nil {
			return err
		}
	}
	if a.ImageName != "" {
		if err := r.cache.Set(ctx, NameKey(a.ImageName), data, r.ttl); err != nil {
			return err
		}
	}
	return nil
}

// Invalidate drops both lookup keys of a.
func (r *Records) Invalidate(ctx context.Context, a *models.ImageAnalysis) error {
	var keys []string
	if a.Metadata.ImageURI != "" {
		keys = append(keys, ImageIdentityKey(a.Metadata.ImageURI))
	}
	if a.ImageName != "" {
		keys = append(keys, NameKey(a.ImageName))
	}
	return r.cache.Delete(ctx, keys...)
}

func (r *Records) get(ctx context.Context, key string) (*models.ImageAnalysis, bool, error) {
	data, ok, err := r.cache.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	var a models.ImageAnalysis
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, false, err
	}
	return &a, true, nil
}

// TaskRecorder stores music task progress with a fixed TTL.
type TaskRecorder struct {
	cache Cache
	ttl   time.Duration
}

func NewTaskRecorder(c Cache, ttl time.Duration) *TaskRecorder {
	return &TaskRecorder{cache: c, ttl: ttl}
}

func (t *TaskRecorder) RecordTask(ctx context.Context, task models.GenerationTask) error {
	return t.cache.SetTaskStatus(ctx, task, t.ttl)
}
