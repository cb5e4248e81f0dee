package credentials

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

var _ Store = (*FileStore)(nil)

// tokenFile is the on-disk layout of the credentials file.
type tokenFile struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// FileStore keeps the token pair in a JSON file so a session survives
// process restarts. Writes go through a temp file and rename.
type FileStore struct {
	path string

	lock    sync.RWMutex
	access  string
	refresh string
}

// NewFileStore loads any previously stored tokens from path. A missing or
// unreadable file starts the store empty rather than failing, matching the
// contract that reads never fail.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("[NewFileStore] path is required")
	}

	fs := &FileStore{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		return fs, nil
	}

	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return fs, nil
	}

	fs.access = tf.AccessToken
	fs.refresh = tf.RefreshToken
	return fs, nil
}

func (fs *FileStore) Access() (string, bool) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return fs.access, fs.access != ""
}

func (fs *FileStore) Refresh() (string, bool) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return fs.refresh, fs.refresh != ""
}

func (fs *FileStore) SetTokens(access, refresh string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.access = access
	if refresh != "" {
		fs.refresh = refresh
	}
	return fs.persist()
}

func (fs *FileStore) Clear() error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.access = ""
	fs.refresh = ""

	if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileStore Clear] removing credentials file")
	}
	return nil
}

// persist writes the current tokens to disk. Caller must hold the lock.
func (fs *FileStore) persist() error {
	data, err := json.MarshalIndent(tokenFile{
		AccessToken:  fs.access,
		RefreshToken: fs.refresh,
	}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[FileStore persist] marshalling tokens")
	}

	dir := filepath.Dir(fs.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "[FileStore persist] creating credentials dir")
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return errors.Wrap(err, "[FileStore persist] creating temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "[FileStore persist] writing tokens")
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "[FileStore persist] setting file mode")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "[FileStore persist] closing temp file")
	}

	if err := os.Rename(tmpName, fs.path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "[FileStore persist] replacing credentials file")
	}
	return nil
}
