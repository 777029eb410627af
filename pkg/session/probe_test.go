package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct{ sess Session }

func (m *memStore) Load() Session        { return m.sess }
func (m *memStore) Save(s Session) error { m.sess = s; return nil }
func (m *memStore) Clear() error         { m.sess = Session{}; return nil }
func (m *memStore) Present() bool        { return !m.sess.Empty() }

func loggedIn() *memStore {
	return &memStore{sess: Session{Cookies: []Cookie{{Name: "sessionid", Value: "abc", Domain: ".toutiao.com"}}}}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   bool
		marker string
	}{
		{"auth marker", 200, "<title>创作者中心</title>", true, "创作者"},
		{"english marker case-insensitive", 200, "<div>Dashboard</div>", true, "dashboard"},
		{"login page", 200, "<form action='/auth/login'>", false, "login"},
		{"no markers is weak positive", 200, "<html><body>hello</body></html>", true, ""},
		{"non 2xx", 302, "profile", false, ""},
		{"server error", 500, "", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := Classify(tt.status, tt.body)
			assert.Equal(t, tt.want, st.Authenticated)
			assert.Equal(t, tt.marker, st.Marker)
			assert.Equal(t, tt.status, st.StatusCode)
		})
	}
}

func TestProbe_EmptySessionMakesNoRequest(t *testing.T) {
	hit := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
	}))
	defer srv.Close()

	p := NewProbe(&memStore{}, nil, WithHomepage(srv.URL))
	st := p.Check(context.Background())

	assert.False(t, st.Authenticated)
	assert.False(t, st.Indeterminate)
	assert.False(t, hit)
}

func TestProbe_SendsCookiesAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("sessionid")
		if err != nil || c.Value != "abc" {
			w.Write([]byte("please login"))
			return
		}
		assert.Contains(t, r.UserAgent(), "Chrome/120")
		w.Write([]byte("<span>我的作品</span>"))
	}))
	defer srv.Close()

	p := NewProbe(loggedIn(), nil, WithHomepage(srv.URL))
	st := p.Check(context.Background())

	assert.True(t, st.Authenticated)
	assert.Equal(t, "我的", st.Marker)
}

func TestProbe_LoginMarkerMeansLoggedOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<a href='/auth/page/login/'>Sign in</a>"))
	}))
	defer srv.Close()

	st := NewProbe(loggedIn(), nil, WithHomepage(srv.URL)).Check(context.Background())
	assert.False(t, st.Authenticated)
	assert.False(t, st.Indeterminate)
}

func TestProbe_TransportErrorIsIndeterminate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	st := NewProbe(loggedIn(), nil, WithHomepage(url)).Check(context.Background())
	assert.False(t, st.Authenticated)
	assert.True(t, st.Indeterminate)
}

func TestProbe_Non2xxIsLoggedOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("profile"))
	}))
	defer srv.Close()

	st := NewProbe(loggedIn(), nil, WithHomepage(srv.URL)).Check(context.Background())
	require.False(t, st.Authenticated)
	assert.Equal(t, http.StatusForbidden, st.StatusCode)
}
