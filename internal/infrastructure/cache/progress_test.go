package cache

import (
	"context"
	"testing"

	"github.com/dutyfree/reconcile/internal/application/reconcile"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryProgress(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProgress()
	owner := uuid.New()

	snap, err := p.Snapshot(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, reconcile.ProgressSnapshot{}, snap)

	h, err := p.Start(ctx, owner, 2)
	require.NoError(t, err)
	h.Advance(ctx)

	snap, _ = p.Snapshot(ctx, owner)
	assert.Equal(t, reconcile.ProgressSnapshot{Done: 1, Total: 2, Running: true}, snap)

	h.Advance(ctx)
	h.Advance(ctx) // clamped at total
	h.Finish(ctx)

	snap, _ = p.Snapshot(ctx, owner)
	assert.Equal(t, reconcile.ProgressSnapshot{Done: 2, Total: 2, Running: false}, snap)

	// a new batch resets the counters
	_, err = p.Start(ctx, owner, 5)
	require.NoError(t, err)
	snap, _ = p.Snapshot(ctx, owner)
	assert.Equal(t, 0, snap.Done)
	assert.Equal(t, 5, snap.Total)
}
