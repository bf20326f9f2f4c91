package repository

import (
	"path/filepath"
	"testing"

	"github.com/liliang-cn/orion/internal/domain"
	"github.com/liliang-cn/orion/internal/persist"
	"github.com/liliang-cn/orion/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "nested", "orion.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestKVRepositorySetGet(t *testing.T) {
	repo := NewKVRepository(openTestDB(t))

	_, ok, err := repo.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Set("a", `{"x":1}`))
	v, ok, err := repo.Get("a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"x":1}`, v)

	require.NoError(t, repo.Set("a", "replaced"))
	v, _, _ = repo.Get("a")
	assert.Equal(t, "replaced", v)
}

func TestKVRepositoryDelete(t *testing.T) {
	repo := NewKVRepository(openTestDB(t))
	require.NoError(t, repo.Set("a", "1"))
	require.NoError(t, repo.Set("b", "2"))

	require.NoError(t, repo.Delete("a"))
	require.NoError(t, repo.Delete("never-existed"))

	keys, err := repo.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, keys)
}

func TestNewDBReopensExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orion.db")
	db, err := NewDB(path)
	require.NoError(t, err)
	require.NoError(t, NewKVRepository(db).Set("k", "v"))
	require.NoError(t, db.Close())

	db, err = NewDB(path)
	require.NoError(t, err)
	defer db.Close()
	v, ok, err := NewKVRepository(db).Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestKVRepositoryBacksSnapshotAdapter(t *testing.T) {
	adapter := persist.NewAdapter(NewKVRepository(openTestDB(t)), nil)

	in := store.Initial()
	in.ChatThreads = []domain.ChatThread{{
		ID:       "t1",
		Title:    "Sales",
		Messages: []domain.ChatMessage{{ID: "m1", Role: domain.RoleUser, Content: "hi", Timestamp: 1}},
	}}
	in.ActiveThreadID = "t1"
	adapter.Save(in)

	out, ok := adapter.Load()
	require.True(t, ok)
	assert.Equal(t, in.ChatThreads, out.ChatThreads)
	assert.Equal(t, "t1", out.ActiveThreadID)
}
