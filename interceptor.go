package hxglue

import (
	"net/http"
	"strings"
)

// OutgoingRequest is a request the page is about to send, as seen by the
// configuring hook. Headers may be mutated in place.
type OutgoingRequest struct {
	Verb    string
	URL     string
	Headers http.Header
}

// IsReadVerb reports whether verb is GET or HEAD, in any case. Read verbs
// never carry the token.
func IsReadVerb(verb string) bool {
	return strings.EqualFold(verb, http.MethodGet) || strings.EqualFold(verb, http.MethodHead)
}

// RequestInterceptor attaches the current token to every state-changing
// request.
type RequestInterceptor struct {
	store  *TokenStore
	header string
}

// NewRequestInterceptor reads tokens from store and writes them to header.
func NewRequestInterceptor(store *TokenStore, header string) *RequestInterceptor {
	if header == "" {
		header = DefaultHeader
	}
	return &RequestInterceptor{store: store, header: header}
}

// Header returns the name of the header the token is written to.
func (i *RequestInterceptor) Header() string {
	return i.header
}

// OnRequestConfiguring sets the token header on non-read requests, marking
// the token spent. GET and HEAD requests are not touched.
func (i *RequestInterceptor) OnRequestConfiguring(req *OutgoingRequest) {
	if IsReadVerb(req.Verb) {
		return
	}
	if req.Headers == nil {
		req.Headers = make(http.Header)
	}
	req.Headers.Set(i.header, i.store.Read())
}

// Transport wraps base so that requests sent through it get the same
// treatment as OnRequestConfiguring. A nil base uses
// http.DefaultTransport.
func (i *RequestInterceptor) Transport(base http.RoundTripper) http.RoundTripper {
	return &Transport{Base: base, Interceptor: i}
}

// Transport is an http.RoundTripper that injects the token header.
type Transport struct {
	Base        http.RoundTripper
	Interceptor *RequestInterceptor
}

// RoundTrip implements http.RoundTripper. The caller's request is cloned
// before headers are added.
func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	// net/http treats an empty method as GET
	if r.Method == "" || IsReadVerb(r.Method) {
		return base.RoundTrip(r)
	}

	clone := r.Clone(r.Context())
	if clone.Header == nil {
		clone.Header = make(http.Header)
	}
	t.Interceptor.OnRequestConfiguring(&OutgoingRequest{
		Verb:    clone.Method,
		URL:     clone.URL.String(),
		Headers: clone.Header,
	})
	return base.RoundTrip(clone)
}
