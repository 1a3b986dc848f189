// Package store persists named JSON documents in a data directory with
// create-on-missing and default-on-corrupt semantics.
package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	appLog "souqcal/internal/log"
)

// Document names. Each is one flat JSON file under the data dir.
const (
	DocSettings          = "settings.json"
	DocUserEvents        = "user_events.json"
	DocDiscoveredEvents  = "discovered_events.json"
	DocChatHistory       = "chat_history.json"
	DocSentNotifications = "sent_notifications.json"
	DocDiscoveryState    = "discovery_state.json"
)

// Store reads and writes JSON documents. Access is serialized with a single
// mutex; there is no cross-process locking (single-user, single-process).
type Store struct {
	mu  sync.Mutex
	dir string
}

// New creates the data directory if needed and returns a Store rooted there.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("store dir is empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Dir returns the data directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Load reads the named document into out.
//
//   - Missing file: def is written to disk and copied into out.
//   - Unreadable or unparsable content: logged, def copied into out, the
//     file is left as-is (no repair attempt).
func (s *Store) Load(name string, out any, def any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if werr := s.writeLocked(name, def); werr != nil {
				appLog.Error("store: failed to create document with default", werr, "doc", name)
			}
			return copyJSON(def, out)
		}
		appLog.Error("store: read failed, using default", err, "doc", name)
		return copyJSON(def, out)
	}

	if err := json.Unmarshal(data, out); err != nil {
		appLog.Error("store: corrupt document, using default", err, "doc", name)
		return copyJSON(def, out)
	}
	return nil
}

// Save writes the named document atomically (temp file + rename, 0600).
func (s *Store) Save(name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(name, v)
}

func (s *Store) writeLocked(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, filepath.Join(s.dir, name))
}

// copyJSON deep-copies def into out through a JSON round trip so callers
// never share the default value's backing data.
func copyJSON(def any, out any) error {
	data, err := json.Marshal(def)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
