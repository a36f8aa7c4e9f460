package store

import (
	"context"
	"testing"
	"time"

	"convoctx/ctxmgr"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStoreSaveAndLoadCheckpoint(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	editLog := ctxmgr.NewEditLog()
	require.NoError(t, editLog.Apply(2, 0, "text", []string{"collapsed"}, nil, 10, ctxmgr.EditReadFileTool))

	cp := Checkpoint{
		ConversationID: "conv-1",
		Deleted:        ctxmgr.Range{Start: 2, End: 5},
		EditLog:        editLog,
		UpdatedAt:      time.Now(),
	}
	require.NoError(t, s.SaveCheckpoint(ctx, cp))

	loaded, ok, err := s.LoadCheckpoint(ctx, "conv-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ctxmgr.Range{Start: 2, End: 5}, loaded.Deleted)

	latest, ok := loaded.EditLog.Latest(2, 0)
	require.True(t, ok)
	assert.Equal(t, []string{"collapsed"}, latest.Content)
}

func TestSQLiteStoreLoadMissingCheckpoint(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	_, ok, err := s.LoadCheckpoint(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStoreSaveReplacesPriorCheckpoint(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	first := Checkpoint{ConversationID: "conv-1", Deleted: ctxmgr.Range{Start: 2, End: 3}, EditLog: ctxmgr.NewEditLog(), UpdatedAt: time.Now()}
	require.NoError(t, s.SaveCheckpoint(ctx, first))

	second := Checkpoint{ConversationID: "conv-1", Deleted: ctxmgr.Range{Start: 2, End: 9}, EditLog: ctxmgr.NewEditLog(), UpdatedAt: time.Now()}
	require.NoError(t, s.SaveCheckpoint(ctx, second))

	loaded, ok, err := s.LoadCheckpoint(ctx, "conv-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ctxmgr.Range{Start: 2, End: 9}, loaded.Deleted)
}
