package publish

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/entrhq/headline/pkg/browser/browsertest"
	"github.com/entrhq/headline/pkg/session"
)

type memStore struct{ sess session.Session }

func (m *memStore) Load() session.Session        { return m.sess }
func (m *memStore) Save(s session.Session) error { m.sess = s; return nil }
func (m *memStore) Clear() error                 { m.sess = session.Session{}; return nil }
func (m *memStore) Present() bool                { return !m.sess.Empty() }

func loggedInStore() *memStore {
	return &memStore{sess: session.Session{Cookies: []session.Cookie{
		{Name: "sessionid", Value: "abc", Domain: ".toutiao.com"},
	}}}
}

func fastTiming() Timing {
	bound := 40 * time.Millisecond
	settle := time.Millisecond
	return Timing{
		Poll:            5 * time.Millisecond,
		PageReady:       bound,
		Field:           bound,
		Preview:         bound,
		PreviewFallback: bound,
		FinalConfirm:    bound,
		CoverControl:    bound,
		CoverConfirm:    bound,
		OptionalControl: bound,
		Editor:          bound,
		ConfirmDialog:   bound,
		SuccessMarker:   bound,
		AfterNavigate:   settle,
		AfterField:      settle,
		AfterPreview:    settle,
		AfterConfirm:    settle,
		PerImage:        settle,
	}
}

type harness struct {
	engine    *Engine
	page      *browsertest.Page
	browser   *browsertest.Browser
	launcher  *browsertest.Launcher
	artifacts string
	observer  *recordingObserver
}

type recordingObserver struct {
	steps []string
	runs  []bool
}

func (o *recordingObserver) StepFinished(kind Kind, step string, status StepStatus) {
	o.steps = append(o.steps, step+"="+string(status))
}

func (o *recordingObserver) RunFinished(kind Kind, succeeded bool, elapsed time.Duration) {
	o.runs = append(o.runs, succeeded)
}

func newHarness(t *testing.T, store session.Store) *harness {
	t.Helper()
	page := browsertest.NewPage()
	b := browsertest.NewBrowser(page)
	launcher := browsertest.NewLauncher(b)
	artifacts := filepath.Join(t.TempDir(), "artifacts")
	obs := &recordingObserver{}

	engine := NewEngine(launcher, store, Config{
		ArtifactsDir: artifacts,
		Timing:       fastTiming(),
		Headless:     true,
	}, obs, nil)

	return &harness{
		engine:    engine,
		page:      page,
		browser:   b,
		launcher:  launcher,
		artifacts: artifacts,
		observer:  obs,
	}
}

func writeImage(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("img"), 0o600))
	return path
}
