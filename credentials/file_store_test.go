package credentials_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taxbook/taxbook-go/credentials"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")

	store, err := credentials.NewFileStore(path)
	require.NoError(t, err)

	_, ok := store.Access()
	require.False(t, ok)
	_, ok = store.Refresh()
	require.False(t, ok)

	require.NoError(t, store.SetTokens("access-1", "refresh-1"))

	access, ok := store.Access()
	require.True(t, ok)
	require.Equal(t, "access-1", access)

	refresh, ok := store.Refresh()
	require.True(t, ok)
	require.Equal(t, "refresh-1", refresh)
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")

	store, err := credentials.NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SetTokens("access-1", "refresh-1"))

	reopened, err := credentials.NewFileStore(path)
	require.NoError(t, err)

	access, ok := reopened.Access()
	require.True(t, ok)
	require.Equal(t, "access-1", access)

	refresh, ok := reopened.Refresh()
	require.True(t, ok)
	require.Equal(t, "refresh-1", refresh)
}

func TestFileStore_AccessOnlyRenewalKeepsRefresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")

	store, err := credentials.NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SetTokens("access-1", "refresh-1"))

	// Backend without refresh rotation returns only a new access token.
	require.NoError(t, store.SetTokens("access-2", ""))

	access, _ := store.Access()
	require.Equal(t, "access-2", access)

	refresh, ok := store.Refresh()
	require.True(t, ok)
	require.Equal(t, "refresh-1", refresh)
}

func TestFileStore_ClearIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")

	store, err := credentials.NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SetTokens("access-1", "refresh-1"))

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())

	_, ok := store.Access()
	require.False(t, ok)
	_, ok = store.Refresh()
	require.False(t, ok)

	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestFileStore_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store, err := credentials.NewFileStore(path)
	require.NoError(t, err)

	_, ok := store.Access()
	require.False(t, ok)
}

func TestFileStore_FileMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")

	store, err := credentials.NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SetTokens("access-1", "refresh-1"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
