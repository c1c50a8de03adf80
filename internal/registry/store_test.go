package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/hostscout/hostscout/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "hosts.json")
	store := NewFileStore(path)

	hosts := []HostRecord{testHost("host-1", "web"), testHost("host-2", "db")}
	require.NoError(t, store.Save(hosts))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, hosts, got)
}

func TestFileStoreMissingFileIsEmptyFleet(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "hosts.json"))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFileStoreInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Load()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrStore))
}

func TestFileStoreBlobShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts.json")
	store := NewFileStore(path)
	require.NoError(t, store.Save([]HostRecord{testHost("host-1", "web")}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "hosts")
}

func TestFileStoreSaveNilWritesEmptyList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts.json")
	store := NewFileStore(path)
	require.NoError(t, store.Save(nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var b struct {
		Hosts []HostRecord `json:"hosts"`
	}
	require.NoError(t, json.Unmarshal(data, &b))
	assert.NotNil(t, b.Hosts)
	assert.Empty(t, b.Hosts)
}

func TestFileStoreOverwriteIsAtomicRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hosts.json")
	store := NewFileStore(path)

	require.NoError(t, store.Save([]HostRecord{testHost("host-1", "web")}))
	require.NoError(t, store.Save([]HostRecord{testHost("host-2", "db")}))

	got, err := store.Load()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "host-2", got[0].ID)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
