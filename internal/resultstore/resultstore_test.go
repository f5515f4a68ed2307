package resultstore_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/askiada/content-pipeline/internal/resultstore"
	"github.com/askiada/content-pipeline/pkg/pipeline"
	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

type store interface {
	pipeline.ResultStore
	Stages(ctx context.Context, runID uuid.UUID) ([]model.Stage, error)
	Delete(ctx context.Context, runID uuid.UUID) error
}

func stores(t *testing.T) map[string]store {
	t.Helper()

	db, err := resultstore.OpenBadger(resultstore.BadgerConfig{InMemory: true, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })

	return map[string]store{
		"memory": resultstore.NewMemory(),
		"badger": db,
	}
}

func TestStoreSaveLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	for name, st := range stores(t) {
		st := st

		t.Run(name, func(t *testing.T) {
			t.Parallel()

			runID := uuid.New()
			output := map[string]any{
				"usps":  []any{"vegan"},
				"count": float64(2),
				"nested": map[string]any{
					"keywords": []any{"a", "b"},
				},
			}

			_, ok, err := st.Load(ctx, runID, "usp")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, st.Save(ctx, runID, "usp", output))
			require.NoError(t, st.Save(ctx, runID, "faq", map[string]any{}))
			require.NoError(t, st.Save(ctx, uuid.New(), "keywords", map[string]any{}))

			got, ok, err := st.Load(ctx, runID, "usp")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, output, got)

			stages, err := st.Stages(ctx, runID)
			require.NoError(t, err)
			assert.Equal(t, []model.Stage{"faq", "usp"}, stages)

			require.NoError(t, st.Delete(ctx, runID))

			stages, err = st.Stages(ctx, runID)
			require.NoError(t, err)
			assert.Empty(t, stages)
		})
	}
}

func TestBadgerCancelledContext(t *testing.T) {
	t.Parallel()

	db, err := resultstore.OpenBadger(resultstore.BadgerConfig{InMemory: true})
	require.NoError(t, err)

	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, db.Save(ctx, uuid.New(), "usp", nil), context.Canceled)

	_, _, err = db.Load(ctx, uuid.New(), "usp")
	require.ErrorIs(t, err, context.Canceled)
}

func TestOpenBadgerRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := resultstore.OpenBadger(resultstore.BadgerConfig{})
	require.Error(t, err)
}

func TestBadgerPersistentReuse(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := t.TempDir()
	runID := uuid.New()

	db, err := resultstore.OpenBadger(resultstore.BadgerConfig{Path: path, SyncWrites: true})
	require.NoError(t, err)
	require.NoError(t, db.Save(ctx, runID, pipeline.StageGrounding, map[string]any{"grounding_keywords": []any{"k"}}))
	require.NoError(t, db.Close())

	db, err = resultstore.OpenBadger(resultstore.BadgerConfig{Path: path})
	require.NoError(t, err)

	defer db.Close()

	got, ok, err := db.Load(ctx, runID, pipeline.StageGrounding)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, map[string]any{"grounding_keywords": []any{"k"}}, got)
}

func TestMemoryWithPipeline(t *testing.T) {
	t.Parallel()

	st := resultstore.NewMemory()
	runID := uuid.New()

	executor := pipeline.ExecutorFunc(func(_ context.Context, stage model.Stage, _ map[string]any) (map[string]any, error) {
		return map[string]any{"stage": string(stage)}, nil
	})

	pipe, err := pipeline.New(pipeline.DefaultRegistry(), executor, pipeline.WithStore(st))
	require.NoError(t, err)

	_, err = pipe.Run(context.Background(), pipeline.RunRequest{RunID: runID, Target: pipeline.StageGrounding})
	require.NoError(t, err)

	got, ok, err := st.Load(context.Background(), runID, pipeline.StageGrounding)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, map[string]any{"stage": "grounding"}, got)
}
