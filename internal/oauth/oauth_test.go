package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/authenticator/internal/config"
)

// fakeGoogle — httptest-сервер с /token и /userinfo.
type fakeGoogle struct {
	srv         *httptest.Server
	tokenStatus int
	userStatus  int
	userInfo    map[string]any
	gotCode     string
	gotAuthz    string
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()

	f := &fakeGoogle{
		tokenStatus: http.StatusOK,
		userStatus:  http.StatusOK,
		userInfo:    map[string]any{"email": "Ann@Example.com", "verified_email": true, "name": "Ann"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		f.gotCode = r.Form.Get("code")
		if f.tokenStatus != http.StatusOK {
			http.Error(w, "bad code", f.tokenStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "at", "token_type": "Bearer", "expires_in": 3600})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		f.gotAuthz = r.Header.Get("Authorization")
		if f.userStatus != http.StatusOK {
			http.Error(w, "nope", f.userStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(f.userInfo)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)

	return f
}

func (f *fakeGoogle) client() *Google {
	return NewGoogle(config.GoogleOAuthConfig{ClientID: "cid", ClientSecret: "cs", RedirectURI: "http://api/cb"},
		WithEndpoints(f.srv.URL+"/auth", f.srv.URL+"/token", f.srv.URL+"/userinfo"))
}

func TestGoogle_AuthCodeURL(t *testing.T) {
	f := newFakeGoogle(t)

	u, err := url.Parse(f.client().AuthCodeURL("st"))
	require.NoError(t, err)
	q := u.Query()
	require.Equal(t, "st", q.Get("state"))
	require.Equal(t, "cid", q.Get("client_id"))
	require.Equal(t, "http://api/cb", q.Get("redirect_uri"))
	require.Contains(t, q.Get("scope"), "userinfo.email")
}

func TestGoogle_Exchange_OK(t *testing.T) {
	f := newFakeGoogle(t)

	info, err := f.client().Exchange(context.Background(), "the-code")
	require.NoError(t, err)
	require.Equal(t, "the-code", f.gotCode)
	require.Equal(t, "Bearer at", f.gotAuthz)
	require.Equal(t, "Ann@Example.com", info.Email)
	require.Equal(t, "Ann", info.Name)
	require.True(t, info.VerifiedEmail)
}

func TestGoogle_Exchange_Failures(t *testing.T) {
	f := newFakeGoogle(t)
	f.tokenStatus = http.StatusBadRequest
	_, err := f.client().Exchange(context.Background(), "bad")
	require.ErrorIs(t, err, ErrExchange)

	f.tokenStatus = http.StatusOK
	f.userStatus = http.StatusUnauthorized
	_, err = f.client().Exchange(context.Background(), "c")
	require.ErrorIs(t, err, ErrExchange)

	f.userStatus = http.StatusOK
	f.userInfo = map[string]any{"name": "no email"}
	_, err = f.client().Exchange(context.Background(), "c")
	require.ErrorIs(t, err, ErrExchange)
}

func TestStateSigner_RoundTrip(t *testing.T) {
	t.Parallel()

	s := NewStateSigner("secret", time.Minute)
	raw, id, err := s.Sign("/dashboard?tab=1")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	st, err := s.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, id, st.ID)
	require.Equal(t, "/dashboard?tab=1", st.ReturnPath)
}

func TestStateSigner_Rejects(t *testing.T) {
	t.Parallel()

	s := NewStateSigner("secret", time.Minute)
	raw, _, err := s.Sign("/")
	require.NoError(t, err)

	_, err = NewStateSigner("other", time.Minute).Parse(raw)
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = s.Parse(raw + "x")
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = s.Parse("")
	require.ErrorIs(t, err, ErrInvalidState)

	expired := NewStateSigner("secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _, err := expired.Sign("/")
	require.NoError(t, err)
	_, err = s.Parse(old)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestSafeReturnPath(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":                   "/",
		"/":                  "/",
		"/profile":           "/profile",
		"//evil.com":         "/",
		"/\\evil.com":        "/",
		"https://evil.com/x": "/",
		"relative":           "/",
	}
	for in, want := range cases {
		require.Equal(t, want, SafeReturnPath(in), in)
	}
}
