package registry

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/hostscout/hostscout/internal/errors"
)

// Store persists the registry as an opaque blob. Durability is
// best-effort; the in-memory registry stays authoritative while the
// process runs.
type Store interface {
	Load() ([]HostRecord, error)
	Save(hosts []HostRecord) error
}

// blob is the on-disk shape: { "hosts": [...] }.
type blob struct {
	Hosts []HostRecord `json:"hosts"`
}

// FileStore keeps the blob in a JSON file, written atomically.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the blob. A missing file means an empty fleet, not an error.
func (s *FileStore) Load() ([]HostRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WrapWithCode(err, errors.ErrStore,
			"Failed to read hosts file: "+s.path,
			"Check file permissions")
	}

	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrStore,
			"Hosts file is not valid JSON: "+s.path,
			"Fix or remove the file; a missing file starts an empty fleet")
	}
	return b.Hosts, nil
}

// Save writes the blob via a temp file and rename so a crash mid-write
// never truncates the previous copy.
func (s *FileStore) Save(hosts []HostRecord) error {
	if hosts == nil {
		hosts = []HostRecord{}
	}
	data, err := json.MarshalIndent(blob{Hosts: hosts}, "", "  ")
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrStore,
			"Failed to encode hosts", "")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapWithCode(err, errors.ErrStore,
			"Failed to create data directory: "+dir,
			"Check directory permissions")
	}

	tmp, err := os.CreateTemp(dir, ".hosts-*.json")
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrStore,
			"Failed to create temp file in "+dir,
			"Check directory permissions")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.WrapWithCode(err, errors.ErrStore,
			"Failed to write hosts file", "")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.WrapWithCode(err, errors.ErrStore,
			"Failed to write hosts file", "")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return errors.WrapWithCode(err, errors.ErrStore,
			"Failed to replace hosts file", "")
	}
	return nil
}
