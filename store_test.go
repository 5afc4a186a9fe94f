package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) (*FileStore, *test.Hook) {
	t.Helper()
	log, hook := test.NewNullLogger()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "data", "shopping_list.json"), log)
	require.NoError(t, err)
	return s, hook
}

func TestNewFileStore_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "list.json")
	s, err := NewFileStore(path, testLogger())
	require.NoError(t, err)

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, path, s.Path())
}

func TestFileStore_LoadMissingFile(t *testing.T) {
	s, hook := newTestFileStore(t)

	items := s.Load()
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.Empty(t, hook.AllEntries())
}

func TestFileStore_RoundTrip(t *testing.T) {
	s, _ := newTestFileStore(t)
	in := []ShoppingItem{
		{ID: 1, Name: "Milk", Quantity: 1, Category: "dairy", Emoji: "🥛", AddedAt: "2024-05-17T09:30:15.123456"},
		{ID: 2, Name: "Crème fraîche & <herbs>", Quantity: 0, Category: "", Emoji: "🌿", AddedAt: "2024-05-17T09:31:00.000000", Completed: true},
	}

	s.Save(in)
	assert.Equal(t, in, s.Load())
}

func TestFileStore_FileLayout(t *testing.T) {
	s, _ := newTestFileStore(t)
	s.Save([]ShoppingItem{{ID: 1, Name: "Crème & <Co>", Quantity: 2, Category: "dairy", Emoji: "🧀", AddedAt: "x"}})

	b, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	raw := string(b)

	assert.True(t, strings.HasPrefix(raw, "[\n  {\n    \"id\": 1,"), raw)
	assert.Contains(t, raw, `"name": "Crème & <Co>"`)
	assert.Contains(t, raw, `"emoji": "🧀"`)
	assert.NotContains(t, raw, `\u`)

	_, err = os.Stat(s.Path() + ".tmp")
	assert.True(t, errors.Is(err, os.ErrNotExist), "temp file should be renamed away")
}

func TestFileStore_SaveEmptyWritesArray(t *testing.T) {
	s, _ := newTestFileStore(t)
	s.Save(nil)

	b, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(b))
}

func TestFileStore_LoadAppliesDefaults(t *testing.T) {
	s, _ := newTestFileStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte(`[{"id": 1, "name": "Eggs", "added_at": "2024-01-01T00:00:00"}]`), 0o644))

	items := s.Load()
	require.Len(t, items, 1)
	assert.Equal(t, ShoppingItem{
		ID:       1,
		Name:     "Eggs",
		Quantity: 1,
		Category: "general",
		Emoji:    "🛒",
		AddedAt:  "2024-01-01T00:00:00",
	}, items[0])
}

func TestFileStore_LoadMalformedDegradesToEmpty(t *testing.T) {
	s, hook := newTestFileStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("not json"), 0o644))

	_, err := s.read()
	assert.Error(t, err)

	items := s.Load()
	assert.NotNil(t, items)
	assert.Empty(t, items)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestFileStore_LoadNullIsEmpty(t *testing.T) {
	s, _ := newTestFileStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("null"), 0o644))

	items := s.Load()
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestFileStore_ReadFailureIsSwallowed(t *testing.T) {
	s, hook := newTestFileStore(t)
	s.Save([]ShoppingItem{{ID: 1, Name: "Milk"}})
	s.readFile = func(string) ([]byte, error) {
		return nil, os.ErrPermission
	}

	_, err := s.read()
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Empty(t, s.Load())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestFileStore_WriteFailureIsSwallowed(t *testing.T) {
	s, hook := newTestFileStore(t)
	before := []ShoppingItem{{ID: 1, Name: "Milk", Quantity: 1, Category: "general", Emoji: "🛒"}}
	s.Save(before)

	diskFull := errors.New("no space left on device")
	s.writeFile = func(string, []byte, os.FileMode) error { return diskFull }

	assert.ErrorIs(t, s.write(nil), diskFull)
	assert.NotPanics(t, func() {
		s.Save(append(before, ShoppingItem{ID: 2, Name: "Bread"}))
	})
	assert.Equal(t, before, s.Load())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestFileStore_RenameFailureKeepsOldFile(t *testing.T) {
	s, _ := newTestFileStore(t)
	before := []ShoppingItem{{ID: 1, Name: "Milk", Quantity: 1, Category: "general", Emoji: "🛒"}}
	s.Save(before)
	s.rename = func(string, string) error { return os.ErrPermission }

	s.Save(nil)
	assert.Equal(t, before, s.Load())
}
