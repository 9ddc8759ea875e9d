package issuer

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIssuer(t *testing.T, opts ...Option) *Issuer {
	t.Helper()
	iss, err := New([]byte("test-key"), nil, opts...)
	require.NoError(t, err)
	return iss
}

func fetchToken(t *testing.T, iss *Issuer) string {
	t.Helper()
	rec := httptest.NewRecorder()
	iss.TokenHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/csrf/token", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.NotEmpty(t, body.Token)
	return body.Token
}

func TestTokenHandlerIssuesDistinctTokens(t *testing.T) {
	iss := newIssuer(t)

	a := fetchToken(t, iss)
	b := fetchToken(t, iss)
	assert.NotEqual(t, a, b)

	require.NoError(t, iss.Verify(context.Background(), a))
	require.NoError(t, iss.Verify(context.Background(), b))
}

func TestTokenHandlerRejectsPost(t *testing.T) {
	iss := newIssuer(t)
	rec := httptest.NewRecorder()
	iss.TokenHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/csrf/token", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestVerifyErrors(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	iss := newIssuer(t, WithTTL(time.Minute), WithClock(clock))
	ctx := context.Background()

	token, err := iss.Issue(ctx)
	require.NoError(t, err)

	assert.ErrorIs(t, iss.Verify(ctx, ""), ErrMissing)
	assert.ErrorIs(t, iss.Verify(ctx, "garbage"), ErrInvalid)

	other := newIssuer(t)
	foreign, err := other.Issue(ctx)
	require.NoError(t, err)
	// same key, different store: signature verifies but nonce is unknown
	assert.ErrorIs(t, iss.Verify(ctx, foreign), ErrUnknown)

	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, iss.Verify(ctx, token), ErrExpired)
}

func TestProtect(t *testing.T) {
	iss := newIssuer(t)
	token := fetchToken(t, iss)

	reached := 0
	h := iss.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached++
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		req    func() *http.Request
		status int
	}{
		{"get passes without token", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/x", nil)
		}, http.StatusNoContent},
		{"head passes without token", func() *http.Request {
			return httptest.NewRequest(http.MethodHead, "/x", nil)
		}, http.StatusNoContent},
		{"post without token", func() *http.Request {
			return httptest.NewRequest(http.MethodPost, "/x", nil)
		}, http.StatusUnauthorized},
		{"post with header", func() *http.Request {
			r := httptest.NewRequest(http.MethodPost, "/x", nil)
			r.Header.Set("X-Csrf-Token", token)
			return r
		}, http.StatusNoContent},
		{"delete with bad header", func() *http.Request {
			r := httptest.NewRequest(http.MethodDelete, "/x", nil)
			r.Header.Set("X-Csrf-Token", "nope")
			return r
		}, http.StatusUnauthorized},
		{"post with form field", func() *http.Request {
			form := url.Values{"csrf_token": {token}}
			r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(form.Encode()))
			r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			return r
		}, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, tt.req())
			assert.Equal(t, tt.status, rec.Code)
		})
	}
	assert.Equal(t, 4, reached)
}

func TestProtectStrictIgnoresFormField(t *testing.T) {
	iss := newIssuer(t, WithStrictHeader(true))
	token := fetchToken(t, iss)

	h := iss.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	form := url.Values{"csrf_token": {token}}
	r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSensitiveTokens(t *testing.T) {
	iss := newIssuer(t, WithSensitive(true))
	token := fetchToken(t, iss)
	assert.NotContains(t, token, ".")
	require.NoError(t, iss.Verify(context.Background(), token))
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	iss, err := New([]byte("test-key"), NewRedisStore(rdb, "csrf:"), WithTTL(time.Minute))
	require.NoError(t, err)
	ctx := context.Background()

	token, err := iss.Issue(ctx)
	require.NoError(t, err)
	require.NoError(t, iss.Verify(ctx, token))
	assert.Len(t, mr.Keys(), 1)
	assert.True(t, strings.HasPrefix(mr.Keys()[0], "csrf:"))

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, iss.Verify(ctx, token), ErrUnknown)
}

func TestMarkup(t *testing.T) {
	iss := newIssuer(t)

	var buf bytes.Buffer
	require.NoError(t, iss.HiddenInput(`a"b`).Render(context.Background(), &buf))
	assert.Equal(t, `<input type="hidden" name="csrf_token" value="a&#34;b">`, buf.String())

	buf.Reset()
	require.NoError(t, Carrier("data-csrf-token", "t1").Render(context.Background(), &buf))
	assert.Equal(t, `<div hidden data-csrf-token="t1"></div>`, buf.String())
}
