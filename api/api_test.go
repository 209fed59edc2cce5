package api_test

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/magiclink/api"
	"github.com/jmcleod/magiclink/approveapi"
	"github.com/jmcleod/magiclink/session"
)

// stubSender records prompts instead of calling the approval service.
type stubSender struct {
	mu      sync.Mutex
	prompts []approveapi.CreatePromptRequest
	fail    bool
}

func (s *stubSender) CreatePrompt(_ context.Context, req approveapi.CreatePromptRequest) (*approveapi.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, &approveapi.APIError{Status: http.StatusUnauthorized, Message: "invalid api key"}
	}
	s.prompts = append(s.prompts, req)
	return &approveapi.Prompt{ID: "prompt_test", SentAt: 1567000000}, nil
}

func (s *stubSender) recorded() []approveapi.CreatePromptRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]approveapi.CreatePromptRequest(nil), s.prompts...)
}

func setupServer(t *testing.T) (*httptest.Server, *stubSender) {
	t.Helper()
	srv, stub, _ := setupServerWithCodec(t)
	return srv, stub
}

// setupServerWithCodec additionally exposes the server's session codec so
// tests can mint cookies with hand-built session contents.
func setupServerWithCodec(t *testing.T) (*httptest.Server, *stubSender, *session.Codec) {
	t.Helper()
	codec, err := session.NewCodec([]byte("test cookie secret"), false)
	require.NoError(t, err)
	stub := &stubSender{}
	a := api.New(codec, stub, "http://localhost:5000")
	srv := httptest.NewServer(a.Router())
	t.Cleanup(srv.Close)
	return srv, stub, codec
}

// newClient returns a cookie-holding client that does not follow redirects,
// so 307 responses can be asserted directly.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func get(t *testing.T, client *http.Client, rawURL string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, rawURL, nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func postLogin(t *testing.T, client *http.Client, baseURL, user string) *http.Response {
	t.Helper()
	form := url.Values{"user": {user}}
	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, baseURL+"/login",
		strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// challengeFrom extracts the c query value from the last recorded prompt's
// approve-redirect URL.
func challengeFrom(t *testing.T, stub *stubSender) string {
	t.Helper()
	prompts := stub.recorded()
	require.NotEmpty(t, prompts)
	u, err := url.Parse(prompts[len(prompts)-1].ApproveRedirectURL)
	require.NoError(t, err)
	c := u.Query().Get("c")
	require.NotEmpty(t, c)
	return c
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestHomeRedirectsWhenUnauthenticated(t *testing.T) {
	srv, _ := setupServer(t)
	client := newClient(t)

	resp := get(t, client, srv.URL+"/")
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestLoginPage(t *testing.T) {
	srv, _ := setupServer(t)
	client := newClient(t)

	resp := get(t, client, srv.URL+"/login")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, readBody(t, resp), `name="user"`)
}

func TestLoginDispatchesPrompt(t *testing.T) {
	srv, stub := setupServer(t)
	client := newClient(t)

	resp := postLogin(t, client, srv.URL, "alice@example.com")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	prompts := stub.recorded()
	require.Len(t, prompts, 1)
	assert.Equal(t, "alice@example.com", prompts[0].User)
	assert.Equal(t, "Magic sign-in link", prompts[0].Title)
	assert.Equal(t, "Sign-in", prompts[0].ApproveText)
	assert.Contains(t, prompts[0].Body, "24 hours")

	challenge := challengeFrom(t, stub)
	assert.True(t, strings.HasSuffix(prompts[0].ApproveRedirectURL, "?c="+challenge))
	assert.True(t, strings.HasPrefix(prompts[0].ApproveRedirectURL, "http://localhost:5000/verify_login"))

	// The response set a session cookie carrying the pending state.
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	require.NotEmpty(t, client.Jar.Cookies(u))
}

func TestLoginRequiresUser(t *testing.T) {
	srv, stub := setupServer(t)
	client := newClient(t)

	resp := postLogin(t, client, srv.URL, "   ")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, stub.recorded())
}

func TestHappyPath(t *testing.T) {
	srv, stub := setupServer(t)
	client := newClient(t)

	resp := postLogin(t, client, srv.URL, "u@x.com")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	challenge := challengeFrom(t, stub)

	resp = get(t, client, srv.URL+"/verify_login?c="+url.QueryEscape(challenge))
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp = get(t, client, srv.URL+"/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "u@x.com")
}

func TestWrongChallenge(t *testing.T) {
	srv, _ := setupServer(t)
	client := newClient(t)

	resp := postLogin(t, client, srv.URL, "alice@example.com")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = get(t, client, srv.URL+"/verify_login?c=WRONG")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Invalid challenge")

	// The session did not gain an authenticated user.
	resp = get(t, client, srv.URL+"/")
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestVerifyWithoutSession(t *testing.T) {
	srv, _ := setupServer(t)
	client := newClient(t)

	resp := get(t, client, srv.URL+"/verify_login?c=anything")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Invalid session")
}

func TestVerifyWithTamperedCookie(t *testing.T) {
	srv, stub := setupServer(t)
	client := newClient(t)

	resp := postLogin(t, client, srv.URL, "alice@example.com")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	challenge := challengeFrom(t, stub)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	cookies := client.Jar.Cookies(u)
	require.NotEmpty(t, cookies)

	// Flip one byte of the cookie value. The sealed session must fail
	// closed, yielding the same outcome as having no session at all.
	tampered := []byte(cookies[0].Value)
	tampered[len(tampered)/2] ^= 0x02

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet,
		srv.URL+"/verify_login?c="+url.QueryEscape(challenge), nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: cookies[0].Name, Value: string(tampered)})

	plain := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err = plain.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSecondLoginOverridesFirst(t *testing.T) {
	srv, stub := setupServer(t)
	client := newClient(t)

	resp := postLogin(t, client, srv.URL, "u1@x.com")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := challengeFrom(t, stub)

	resp = postLogin(t, client, srv.URL, "u2@x.com")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := challengeFrom(t, stub)
	require.NotEqual(t, first, second)

	// The first challenge was discarded by the second login.
	resp = get(t, client, srv.URL+"/verify_login?c="+url.QueryEscape(first))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = get(t, client, srv.URL+"/verify_login?c="+url.QueryEscape(second))
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)

	resp = get(t, client, srv.URL+"/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "u2@x.com")
}

func TestApprovalFailure(t *testing.T) {
	srv, stub := setupServer(t)
	stub.fail = true
	client := newClient(t)

	resp := postLogin(t, client, srv.URL, "alice@example.com")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "approval error")

	// No authenticated user can be produced from the resulting cookie.
	resp = get(t, client, srv.URL+"/verify_login?c=anything")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = get(t, client, srv.URL+"/")
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestVerifyCannotBeReplayed(t *testing.T) {
	srv, stub := setupServer(t)
	client := newClient(t)

	resp := postLogin(t, client, srv.URL, "alice@example.com")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	challenge := challengeFrom(t, stub)

	resp = get(t, client, srv.URL+"/verify_login?c="+url.QueryEscape(challenge))
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)

	// The pending challenge is cleared on success, so replaying the link
	// against the updated session is rejected.
	resp = get(t, client, srv.URL+"/verify_login?c="+url.QueryEscape(challenge))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The established session is unaffected.
	resp = get(t, client, srv.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestVerifyRejectsExpiredChallenge(t *testing.T) {
	srv, _, codec := setupServerWithCodec(t)

	challenge := "expired-but-otherwise-valid-challenge"
	sess := session.Session{}
	require.NoError(t, sess.Set("pending_login_challenge", api.LoginChallenge{
		User:      "alice@example.com",
		Challenge: challenge,
		IssuedAt:  time.Now().UTC().Add(-25 * time.Hour),
	}))

	rec := httptest.NewRecorder()
	require.NoError(t, codec.Save(rec, sess))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet,
		srv.URL+"/verify_login?c="+url.QueryEscape(challenge), nil)
	require.NoError(t, err)
	req.AddCookie(cookies[0])

	plain := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := plain.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// Even a matching challenge is rejected once older than 24 hours.
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Invalid session")
}

func TestChallengesAreUniquePerLogin(t *testing.T) {
	srv, stub := setupServer(t)

	seen := make(map[string]bool)
	for i := 0; i < 8; i++ {
		client := newClient(t)
		resp := postLogin(t, client, srv.URL, "alice@example.com")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		c := challengeFrom(t, stub)
		assert.False(t, seen[c], "challenge repeated")
		seen[c] = true
	}
}

func TestHealth(t *testing.T) {
	srv, _ := setupServer(t)
	client := newClient(t)

	resp := get(t, client, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
