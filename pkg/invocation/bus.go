// Package invocation implements the single-use handoff records that carry
// a task selection from a host process to a separately launched module.
package invocation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"hangarcore/pkg/logger"
	"hangarcore/pkg/models"
	"hangarcore/pkg/store"
	"hangarcore/pkg/telemetry"
)

// DefaultTTL bounds how long an unconsumed invocation stays live.
const DefaultTTL = 120 * time.Second

// Bus reads and writes invocation records on the shared store.
type Bus struct {
	Store *store.Adapter
	// Now is overridable for tests; nil means time.Now.
	Now func() time.Time
}

func (b *Bus) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

// Create upserts the invocation for (userID, module). Last writer wins: a
// second invocation for the same pair replaces the first, by design.
func (b *Bus) Create(ctx context.Context, userID, module, route string, params map[string]any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	inv := models.Invocation{
		Route:     route,
		Params:    params,
		ExpiresAt: b.now().Add(ttl).Unix(),
	}
	doc, err := store.Encode(inv)
	if err != nil {
		return err
	}
	coll := models.InvocationsCollection(userID)
	id := models.InvocationDocID(userID, module)
	if err := b.Store.SetDataWithID(ctx, coll, id, doc); err != nil {
		logger.Log.Error("invocation_create_failed", zap.String("user", userID), zap.String("module", module), zap.Error(err))
		return err
	}
	telemetry.InvocationsCreated.Inc()
	logger.Log.Info("invocation_created",
		zap.String("user", userID),
		zap.String("module", module),
		zap.String("route", route),
		zap.Int64("expires_at", inv.ExpiresAt))
	return nil
}

// FetchAndConsume reads and destroys the invocation for (userID, module).
// Absent or expired records yield nil; expired records are deleted on
// read. The delete is best-effort: a failed delete never retracts an
// already-read live record.
func (b *Bus) FetchAndConsume(ctx context.Context, userID, module string) *models.Invocation {
	coll := models.InvocationsCollection(userID)
	id := models.InvocationDocID(userID, module)

	doc := b.Store.GetDocument(ctx, coll, id)
	if doc == nil {
		return nil
	}
	// destroy-on-read in both branches below
	if _, err := b.Store.DeleteDocument(ctx, coll, id); err != nil {
		logger.Log.Warn("invocation_delete_failed", zap.String("user", userID), zap.String("module", module), zap.Error(err))
	}

	var inv models.Invocation
	if err := store.Decode(doc, &inv); err != nil {
		logger.Log.Warn("invocation_invalid", zap.String("user", userID), zap.String("module", module), zap.Error(err))
		return nil
	}
	if inv.ExpiresAt < b.now().Unix() {
		telemetry.InvocationsExpired.Inc()
		logger.Log.Info("invocation_expired", zap.String("user", userID), zap.String("module", module))
		return nil
	}
	telemetry.InvocationsConsumed.Inc()
	logger.Log.Info("invocation_consumed", zap.String("user", userID), zap.String("module", module), zap.String("route", inv.Route))
	return &inv
}
