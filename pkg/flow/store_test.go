package flow

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreLoadAndList(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	f := validFlow()
	data, err := json.Marshal(f)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "checkout.json"), data, 0o600))

	loaded, err := store.Load("checkout")
	require.NoError(t, err)
	assert.Equal(t, "checkout", loaded.Name)
	assert.Len(t, loaded.Steps, 3)

	names, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"checkout"}, names)
}

func TestStoreLoadMissingFlow(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStoreRejectsPathSeparators(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("../escape")
	assert.Error(t, err)
}
