package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clsync/internal/models"
)

func testState(t *testing.T) *StateDB {
	t.Helper()
	s, err := OpenState(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLastOnEmptyDB(t *testing.T) {
	s := testState(t)
	last, err := s.Last(context.Background())
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestRecordRunLifecycle(t *testing.T) {
	s := testState(t)
	ctx := context.Background()

	require.NoError(t, s.RecordStart(ctx, "run-1"))

	last, err := s.Last(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "run-1", last.RunID)
	assert.Equal(t, models.SyncStatusRunning, last.Status)

	require.NoError(t, s.RecordResult(ctx, models.SyncState{
		RunID:        "run-1",
		ProjectCount: 3,
		FileCount:    12,
		Status:       models.SyncStatusCompleted,
	}))

	last, err = s.Last(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, models.SyncStatusCompleted, last.Status)
	assert.Equal(t, 3, last.ProjectCount)
	assert.Equal(t, 12, last.FileCount)
	assert.False(t, last.LastSync.IsZero())
}

func TestRecordResultWithoutStart(t *testing.T) {
	s := testState(t)
	err := s.RecordResult(context.Background(), models.SyncState{
		RunID:  "ghost",
		Status: models.SyncStatusFailed,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "never started")
}

func TestLastReturnsMostRecentRun(t *testing.T) {
	s := testState(t)
	ctx := context.Background()

	require.NoError(t, s.RecordStart(ctx, "run-1"))
	require.NoError(t, s.RecordStart(ctx, "run-2"))
	require.NoError(t, s.RecordResult(ctx, models.SyncState{
		RunID: "run-2", Status: models.SyncStatusPartial, Error: "2 files failed",
	}))

	last, err := s.Last(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "run-2", last.RunID)
	assert.Equal(t, "2 files failed", last.Error)
}
