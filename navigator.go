package hxglue

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/pthm/hxglue/lib/dom"
)

// Request is a partial-page request issued from the current page.
type Request struct {
	Verb string
	Path string
	Form url.Values
	// Target is the id of the element receiving the response. Defaults to
	// the main content region.
	Target string
	// Swap defaults to SwapInner.
	Swap SwapMode
}

// Navigator drives a page the way a browser running the partial-page
// library would: full loads build a new Runtime, partial requests go
// through its lifecycle hooks and swap the response into the page.
type Navigator struct {
	base   *url.URL
	client *http.Client
	opts   []Option
	mainID string
	log    *zap.Logger

	mu      sync.Mutex
	runtime *Runtime
	current *url.URL
}

// NewNavigator creates a navigator for the site at baseURL. opts are passed
// to every Runtime it creates.
func NewNavigator(baseURL string, opts ...Option) (*Navigator, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	s := newSettings(opts)
	return &Navigator{
		base:   base,
		client: s.client,
		opts:   opts,
		mainID: s.mainID,
		log:    s.log.Named("nav"),
	}, nil
}

// Runtime returns the runtime of the current page, or nil before Load.
func (n *Navigator) Runtime() *Runtime {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.runtime
}

// Load performs a full page load of path. The previous page's runtime and
// token state are discarded.
func (n *Navigator) Load(ctx context.Context, path string) error {
	u, err := n.base.Parse(path)
	if err != nil {
		return fmt.Errorf("parse path: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("GET %s: %w (%d)", u, ErrResponseStatus, resp.StatusCode)
	}
	doc, err := dom.Parse(resp.Body)
	if err != nil {
		return fmt.Errorf("parse page: %w", err)
	}

	base := strings.TrimSuffix(n.base.String(), "/")
	opts := append(append([]Option(nil), n.opts...), WithBaseURL(base), WithHTTPClient(n.client))
	rt := NewRuntime(doc, opts...)

	n.mu.Lock()
	n.runtime = rt
	n.current = u
	n.mu.Unlock()

	n.log.Debug("page loaded", zap.String("url", u.String()))
	rt.OnPageReady(ctx, doc.Root())
	return nil
}

// Do sends a partial-page request and applies the response.
//
// Responses with a 2xx status or 422 are swapped into the target, and
// OnPageReady fires once for the new content. Any other status is handed to
// OnResponseError and returned as an error wrapping ErrResponseStatus.
func (n *Navigator) Do(ctx context.Context, r Request) error {
	n.mu.Lock()
	rt, current := n.runtime, n.current
	n.mu.Unlock()
	if rt == nil {
		return ErrNoPage
	}

	targetID := r.Target
	if targetID == "" {
		targetID = n.mainID
	}
	target := rt.Document().ByID(targetID)
	if target == nil {
		return fmt.Errorf("%w: #%s", ErrNoTarget, targetID)
	}

	u, err := n.base.Parse(r.Path)
	if err != nil {
		return fmt.Errorf("parse path: %w", err)
	}
	verb := strings.ToUpper(r.Verb)
	if verb == "" {
		verb = http.MethodGet
	}

	var body io.Reader
	if len(r.Form) > 0 {
		if IsReadVerb(verb) {
			q := u.Query()
			for k, vs := range r.Form {
				for _, v := range vs {
					q.Add(k, v)
				}
			}
			u.RawQuery = q.Encode()
		} else {
			body = strings.NewReader(r.Form.Encode())
		}
	}

	out := &OutgoingRequest{Verb: verb, URL: u.String(), Headers: make(http.Header)}
	out.Headers.Set(HeaderRequest, "true")
	out.Headers.Set(HeaderTarget, targetID)
	if current != nil {
		out.Headers.Set(HeaderCurrentURL, current.String())
	}
	if body != nil {
		out.Headers.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rt.OnRequestConfiguring(out)

	req, err := http.NewRequestWithContext(ctx, out.Verb, out.URL, body)
	if err != nil {
		return err
	}
	req.Header = out.Headers

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", verb, u, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
	if !ok && resp.StatusCode != StatusValidation {
		rt.OnResponseError(FailedResponse{
			StatusCode: resp.StatusCode,
			StatusText: statusText(resp),
			Body:       string(payload),
		})
		return fmt.Errorf("%s %s: %w (%d)", verb, u, ErrResponseStatus, resp.StatusCode)
	}

	loaded, err := rt.Swap(target, r.Swap, string(payload))
	if err != nil {
		return err
	}
	// One ready event per response, so every carrier it delivered is
	// absorbed before the refresh decides whether to fetch.
	scope := rt.Document().Root()
	if len(loaded) == 1 {
		scope = loaded[0]
	}
	rt.OnPageReady(ctx, scope)
	return nil
}

// statusText returns the reason phrase of resp, e.g. "Internal Server
// Error" for "500 Internal Server Error".
func statusText(resp *http.Response) string {
	_, text, _ := strings.Cut(resp.Status, " ")
	return text
}
