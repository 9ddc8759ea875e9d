// Package issuer is the server half of the token contract: it mints tokens
// at the token-issuing endpoint and rejects state-changing requests whose
// header (or form field) does not carry a live token.
//
// The runtime only ever sees its HTTP surface:
//
//	GET /csrf/token  ->  {"token": "<opaque>"}
//	POST ...         <-  X-Csrf-Token: <opaque>   (401 when invalid)
package issuer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pthm/hxglue/lib/encoding"
	"github.com/pthm/hxglue/lib/metrics"
)

// Sentinel errors returned by Verify.
var (
	ErrMissing = errors.New("issuer: token missing")
	ErrInvalid = errors.New("issuer: token invalid")
	ErrExpired = errors.New("issuer: token expired")
	ErrUnknown = errors.New("issuer: token not issued here")
)

// Option configures an Issuer.
type Option func(*Issuer)

// WithHeader sets the request header checked by Protect.
func WithHeader(name string) Option {
	return func(i *Issuer) { i.header = name }
}

// WithField sets the form field Protect falls back to.
func WithField(name string) Option {
	return func(i *Issuer) { i.field = name }
}

// WithTTL sets token lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(i *Issuer) { i.ttl = ttl }
}

// WithSensitive encrypts token claims instead of signing them.
func WithSensitive(sensitive bool) Option {
	return func(i *Issuer) { i.sensitive = sensitive }
}

// WithStrictHeader makes Protect refuse requests without the header
// instead of falling back to the form field.
func WithStrictHeader(strict bool) Option {
	return func(i *Issuer) { i.strict = strict }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(i *Issuer) { i.log = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// Issuer mints and verifies tokens.
type Issuer struct {
	enc       *encoding.Encoder
	store     Store
	header    string
	field     string
	ttl       time.Duration
	sensitive bool
	strict    bool
	log       *zap.Logger
	now       func() time.Time
}

// New creates an Issuer keyed with key. A nil store defaults to a
// MemoryStore.
func New(key []byte, store Store, opts ...Option) (*Issuer, error) {
	enc, err := encoding.NewEncoder(key)
	if err != nil {
		return nil, err
	}
	i := &Issuer{
		enc:    enc,
		store:  store,
		header: "X-Csrf-Token",
		field:  "csrf_token",
		ttl:    2 * time.Hour,
		log:    zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.store == nil {
		i.store = NewMemoryStore(i.ttl)
	}
	i.log = i.log.Named("issuer")
	return i, nil
}

// Header returns the header name Protect checks.
func (i *Issuer) Header() string { return i.header }

// Field returns the form field name Protect falls back to.
func (i *Issuer) Field() string { return i.field }

// Issue mints a new token and records its nonce.
func (i *Issuer) Issue(ctx context.Context) (string, error) {
	claims := encoding.Claims{
		Nonce:    uuid.NewString(),
		IssuedAt: i.now().Unix(),
	}
	token, err := i.enc.Encode(claims, i.sensitive)
	if err != nil {
		return "", err
	}
	if err := i.store.Save(ctx, claims.Nonce, i.ttl); err != nil {
		return "", err
	}
	metrics.TokensIssued.Inc()
	return token, nil
}

// Verify checks that token was minted by this issuer and is still live.
func (i *Issuer) Verify(ctx context.Context, token string) error {
	if token == "" {
		return ErrMissing
	}
	claims, err := i.enc.Decode(token, i.sensitive)
	if err != nil {
		return ErrInvalid
	}
	if i.now().Sub(time.Unix(claims.IssuedAt, 0)) > i.ttl {
		return ErrExpired
	}
	ok, err := i.store.Exists(ctx, claims.Nonce)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknown
	}
	return nil
}

// TokenHandler serves the token-issuing endpoint.
func (i *Issuer) TokenHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		token, err := i.Issue(r.Context())
		if err != nil {
			i.log.Error("issue token", zap.Error(err))
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
	})
}

// Protect rejects state-changing requests that do not carry a valid token
// in the header, or (unless strict) in the form field.
func (i *Issuer) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get(i.header)
		if token == "" && !i.strict {
			token = r.FormValue(i.field)
		}
		if err := i.Verify(r.Context(), token); err != nil {
			metrics.TokenRejections.WithLabelValues(reason(err)).Inc()
			i.log.Debug("token rejected",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Error(err))
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func reason(err error) string {
	switch {
	case errors.Is(err, ErrMissing):
		return "missing"
	case errors.Is(err, ErrInvalid):
		return "invalid"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrUnknown):
		return "unknown"
	default:
		return "store"
	}
}
