package hxglue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pthm/hxglue/lib/dom"
	"github.com/pthm/hxglue/lib/metrics"
)

// TokenFetcher obtains a fresh anti-forgery token from the server.
type TokenFetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// HTTPFetcher fetches tokens with a GET against URL, expecting a JSON body
// of the form {"token": "..."}.
type HTTPFetcher struct {
	Client *http.Client
	URL    string
}

// Fetch implements TokenFetcher.
//
// Transport failures and non-2xx statuses wrap ErrTokenFetch. A body that
// is not JSON, or carries no token, wraps ErrTokenDecode.
func (f *HTTPFetcher) Fetch(ctx context.Context) (string, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: GET %s returned %d", ErrTokenFetch, f.URL, resp.StatusCode)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenDecode, err)
	}
	if body.Token == "" {
		return "", fmt.Errorf("%w: no token in response", ErrTokenDecode)
	}
	return body.Token, nil
}

// TokenStore holds the page's current anti-forgery token.
//
// The store rotates lazily: Read marks the value as spent, and the next
// Refresh fetches a replacement from the server. A Refresh while nothing
// has been spent re-reads the token from the first form field instead,
// picking up whatever the server rendered into freshly swapped content.
//
// All methods are safe for concurrent use. The lock is not held during the
// network fetch.
type TokenStore struct {
	fetcher TokenFetcher
	forms   *FormSynchronizer
	attr    string
	log     *zap.Logger

	mu     sync.Mutex
	value  string
	rotate bool
	subs   map[int]func(string)
	nextID int
}

// NewTokenStore creates an empty store whose first Refresh fetches. Fresh
// tokens are written back to every form field through forms.
func NewTokenStore(fetcher TokenFetcher, forms *FormSynchronizer, opts ...Option) *TokenStore {
	s := newSettings(append([]Option{WithFetcher(fetcher)}, opts...))
	return &TokenStore{
		fetcher: s.fetcher,
		forms:   forms,
		attr:    s.attr,
		log:     s.log.Named("token"),
		rotate:  true,
		subs:    make(map[int]func(string)),
	}
}

// Value returns the current token without marking it spent.
func (s *TokenStore) Value() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// NeedsRefresh reports whether the token has been read since the last fetch.
func (s *TokenStore) NeedsRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rotate
}

// Read returns the current token for attaching to an outgoing request and
// marks it spent, so the next Refresh fetches a new one.
func (s *TokenStore) Read() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotate = true
	return s.value
}

// Refresh brings the token up to date.
//
// When the token has been spent, a new one is fetched and written to every
// form field. On failure the value is cleared and the error, wrapping
// ErrTokenFetch or ErrTokenDecode, is returned. Otherwise the value is read
// from the first form field, if any.
func (s *TokenStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if !s.rotate {
		s.mu.Unlock()
		metrics.TokenDOMReads.Inc()
		if v, ok := s.forms.First(); ok {
			s.set(v)
		}
		return nil
	}
	s.rotate = false
	s.mu.Unlock()

	token, err := s.fetcher.Fetch(ctx)
	if err != nil {
		metrics.TokenFetches.WithLabelValues("error").Inc()
		s.set("")
		s.log.Error("token refresh failed", zap.Error(err))
		return fmt.Errorf("refresh token: %w", err)
	}
	metrics.TokenFetches.WithLabelValues("ok").Inc()

	s.set(token)
	n := s.forms.Propagate(token)
	s.log.Debug("token rotated", zap.Int("fields", n))
	return nil
}

// UpdateFromElement absorbs a token delivered on el's carrier attribute.
// Elements without the attribute are left alone. A delivered token counts
// as fresh: it is written to every form field and no fetch is owed for it,
// even when the current token was spent by a request. The stored value is
// replaced only when it differs. With removeAfter the carrier is detached
// so it is consumed only once.
//
// Reports whether the stored value changed.
func (s *TokenStore) UpdateFromElement(el *html.Node, removeAfter bool) bool {
	v, ok := dom.Attr(el, s.attr)
	if !ok {
		return false
	}

	changed := s.set(v)
	if v != "" {
		s.mu.Lock()
		s.rotate = false
		s.mu.Unlock()
		s.forms.Propagate(v)
	}
	if removeAfter {
		dom.Remove(el)
	}
	return changed
}

// Subscribe registers fn to be called with each new token value. The
// returned func unregisters it.
func (s *TokenStore) Subscribe(fn func(token string)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *TokenStore) set(v string) bool {
	s.mu.Lock()
	if v == s.value {
		s.mu.Unlock()
		return false
	}
	s.value = v
	subs := make([]func(string), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
	return true
}
