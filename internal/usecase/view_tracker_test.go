package usecase

import (
	"context"
	"errors"
	"testing"

	"PowerPull/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewTrackerLastRequestWins(t *testing.T) {
	m := newFakeMetrics()
	tr := NewViewTracker(repository.NewMemoryGenerationStore(0), m)
	ctx := context.Background()

	ctx1, tk1, err := tr.Begin(ctx, "s")
	require.NoError(t, err)
	ctx2, tk2, err := tr.Begin(ctx, "s")
	require.NoError(t, err)
	assert.Greater(t, tk2.Generation, tk1.Generation)

	assert.ErrorIs(t, ctx1.Err(), context.Canceled)
	assert.NoError(t, ctx2.Err())

	assert.ErrorIs(t, tr.Finish(ctx, tk1), ErrSuperseded)
	assert.NoError(t, tr.Finish(ctx, tk2))
	assert.ErrorIs(t, ctx2.Err(), context.Canceled, "finished requests release their context")
	assert.Equal(t, 1, m.superseded)
}

func TestViewTrackerSessionsAreIndependent(t *testing.T) {
	tr := NewViewTracker(repository.NewMemoryGenerationStore(0), nil)
	ctx := context.Background()

	ctxA, tkA, err := tr.Begin(ctx, "a")
	require.NoError(t, err)
	_, tkB, err := tr.Begin(ctx, "b")
	require.NoError(t, err)

	assert.NoError(t, ctxA.Err())
	assert.NoError(t, tr.Finish(ctx, tkA))
	assert.NoError(t, tr.Finish(ctx, tkB))
}

type failingGens struct{}

func (failingGens) Next(context.Context, string) (uint64, error) {
	return 0, errors.New("redis down")
}

func (failingGens) Current(context.Context, string) (uint64, error) {
	return 0, errors.New("redis down")
}

func TestViewTrackerStoreFailure(t *testing.T) {
	tr := NewViewTracker(failingGens{}, nil)
	_, _, err := tr.Begin(context.Background(), "s")
	assert.ErrorContains(t, err, "redis down")
}
