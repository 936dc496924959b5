package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	return s, dir
}

// exerciseStore runs the behaviour every Store must share.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	ids, err := s.List(ctx, "g-empty")
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)

	require.NoError(t, s.Save(ctx, GlobalScope, map[string]string{"ping": "1", "greet": "2"}))
	require.NoError(t, s.Save(ctx, "g1", map[string]string{"ping": "10"}))

	id, ok, err := s.Lookup(ctx, GlobalScope, "greet")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", id)

	id, ok, err = s.Lookup(ctx, "g1", "ping")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "10", id)

	_, ok, err = s.Lookup(ctx, "g1", "greet")
	require.NoError(t, err)
	assert.False(t, ok)

	// Save replaces the whole scope.
	require.NoError(t, s.Save(ctx, GlobalScope, map[string]string{"ping": "3"}))
	ids, err = s.List(ctx, GlobalScope)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ping": "3"}, ids)

	ids, err = s.List(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ping": "10"}, ids)
}

func TestFileStore(t *testing.T) {
	s, _ := newTestFileStore(t)
	exerciseStore(t, s)
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	s, dir := newTestFileStore(t)
	require.NoError(t, s.Save(ctx, "g1", map[string]string{"ping": "42"}))

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	_, err = os.Stat(s.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err))

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	id, ok, err := reopened.Lookup(ctx, "g1", "ping")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "42", id)
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "commands"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "commands", idsFile), []byte("{not json"), 0600))

	_, err := NewFileStore(dir)
	assert.ErrorContains(t, err, "unmarshal ids.json")
}

func TestFileStore_ListIsACopy(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestFileStore(t)
	in := map[string]string{"ping": "1"}
	require.NoError(t, s.Save(ctx, GlobalScope, in))
	in["ping"] = "mutated"

	out, err := s.List(ctx, GlobalScope)
	require.NoError(t, err)
	out["extra"] = "x"

	again, err := s.List(ctx, GlobalScope)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ping": "1"}, again)
}

func TestFileStore_ConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestFileStore(t)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scope := Scope(string(rune('a' + i)))
			assert.NoError(t, s.Save(ctx, scope, map[string]string{"ping": scope}))
		}()
	}
	wg.Wait()

	for i := range 8 {
		scope := string(rune('a' + i))
		id, ok, err := s.Lookup(ctx, scope, "ping")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, scope, id)
	}
}

func TestScope(t *testing.T) {
	assert.Equal(t, GlobalScope, Scope(""))
	assert.Equal(t, "123", Scope("123"))
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	s, err := OpenPostgres(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = s.db.Exec(`DELETE FROM command_ids WHERE scope IN ('global', 'g1', 'g-empty')`)
		_ = s.Close()
	})
	exerciseStore(t, s)
}
