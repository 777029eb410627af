package session

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "cookies.json"), nil)
	require.NoError(t, err)
	return store
}

func TestFileStore_LoadMissing(t *testing.T) {
	store := newTestStore(t)

	assert.False(t, store.Present())
	assert.True(t, store.Load().Empty())
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	store := newTestStore(t)
	captured := time.Unix(1700000000, 0)

	err := store.Save(Session{
		Cookies: []Cookie{
			{Name: "sessionid", Value: "abc", Domain: ".toutiao.com", Path: "/", HTTPOnly: true},
			{Name: "uid_tt", Value: "42", Domain: ".toutiao.com"},
		},
		CapturedAt: captured,
	})
	require.NoError(t, err)
	assert.True(t, store.Present())

	loaded := store.Load()
	require.Len(t, loaded.Cookies, 2)
	assert.Equal(t, "sessionid", loaded.Cookies[0].Name)
	assert.True(t, loaded.Cookies[0].HTTPOnly)
	assert.Equal(t, captured.Unix(), loaded.CapturedAt.Unix())

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_CorruptFileYieldsEmpty(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0o750))
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0o600))

	assert.True(t, store.Present())
	assert.True(t, store.Load().Empty())
}

func TestFileStore_LegacyTimestampKey(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0o750))
	doc := `{"cookies":[{"name":"sid","value":"v","domain":".toutiao.com"}],"timestamp":1690000000}`
	require.NoError(t, os.WriteFile(store.Path(), []byte(doc), 0o600))

	loaded := store.Load()
	require.Len(t, loaded.Cookies, 1)
	assert.Equal(t, int64(1690000000), loaded.CapturedAt.Unix())
}

func TestFileStore_ClearIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(Session{Cookies: []Cookie{{Name: "a", Value: "b", Domain: ".toutiao.com"}}}))

	require.NoError(t, store.Clear())
	assert.False(t, store.Present())
	assert.True(t, store.Load().Empty())

	require.NoError(t, store.Clear())
}

func TestFileStore_ConcurrentSavesNeverTear(t *testing.T) {
	store := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cookies := make([]Cookie, i+1)
			for j := range cookies {
				cookies[j] = Cookie{Name: "c", Value: "v", Domain: ".toutiao.com"}
			}
			assert.NoError(t, store.Save(Session{Cookies: cookies}))
		}(i)
	}
	wg.Wait()

	loaded := store.Load()
	assert.False(t, loaded.Empty())

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestSession_Scoped(t *testing.T) {
	sess := Session{Cookies: []Cookie{
		{Name: "ok", Value: "1", Domain: "mp.toutiao.com"},
		{Name: "nodomain", Value: "2"},
		{Name: "", Value: "3", Domain: ".toutiao.com"},
		{Name: "foreign", Value: "4", Domain: ".example.com"},
		{Name: "lookalike", Value: "5", Domain: "eviltoutiao.com"},
	}}

	scoped := sess.Scoped()
	names := make([]string, 0, len(scoped.Cookies))
	for _, c := range scoped.Cookies {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"ok", "nodomain"}, names)
	assert.Equal(t, DefaultDomain, scoped.Cookies[1].Domain)
}
