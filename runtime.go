package hxglue

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pthm/hxglue/lib/dom"
)

// Lifecycle is the set of navigation events the runtime reacts to. A
// navigation pipeline calls these at the matching points of a request.
type Lifecycle interface {
	// OnPageReady fires once content has been loaded into the page,
	// including the initial full load.
	OnPageReady(ctx context.Context, loaded *html.Node)
	// OnRequestConfiguring fires before a request is sent. Headers may be
	// mutated.
	OnRequestConfiguring(req *OutgoingRequest)
	// OnResponseError fires for responses with a failing status.
	OnResponseError(resp FailedResponse)
}

// Runtime wires the token store, form synchronizer, request interceptor,
// error view and patcher to one page. Create one per full page load;
// nothing carries over between loads.
//
// Lifecycle handlers are serialized, so a refresh triggered by OnPageReady
// completes before the next request on the same page is configured.
type Runtime struct {
	mu sync.Mutex

	doc         *dom.Document
	forms       *FormSynchronizer
	store       *TokenStore
	interceptor *RequestInterceptor
	errors      *ErrorResponseHandler
	patcher     *DomPatcher
	hooks       []PageHook
	swaps       []SwapStrategy
	attr        string
	log         *zap.Logger
}

var _ Lifecycle = (*Runtime)(nil)

// NewRuntime creates the runtime for doc. The token store starts empty and
// due for a fetch. MorphSwap and SplitSwap are always registered, after
// any strategies given with WithSwap.
func NewRuntime(doc *dom.Document, opts ...Option) *Runtime {
	s := newSettings(opts)

	rt := &Runtime{
		doc:  doc,
		attr: s.attr,
		log:  s.log,
	}
	rt.forms = NewFormSynchronizer(doc, s.field)
	rt.store = NewTokenStore(s.fetcher, rt.forms, WithTokenAttr(s.attr), WithLogger(s.log))
	rt.interceptor = NewRequestInterceptor(rt.store, s.header)
	rt.errors = NewErrorResponseHandler(doc, s.mainID, s.log)
	rt.patcher = NewDomPatcher(doc, s.footerID, s.marker, s.log)
	if s.standard {
		rt.hooks = append(rt.hooks, NavHighlighter{}, LocalTimeFormatter{Location: s.location, Layout: s.timeLayout})
	}
	rt.hooks = append(rt.hooks, s.hooks...)
	rt.swaps = append(append([]SwapStrategy{}, s.swaps...), MorphSwap{}, SplitSwap{Patcher: rt.patcher})
	return rt
}

// Document returns the page.
func (rt *Runtime) Document() *dom.Document { return rt.doc }

// Store returns the token store.
func (rt *Runtime) Store() *TokenStore { return rt.store }

// Forms returns the form synchronizer.
func (rt *Runtime) Forms() *FormSynchronizer { return rt.forms }

// Interceptor returns the request interceptor.
func (rt *Runtime) Interceptor() *RequestInterceptor { return rt.interceptor }

// Patcher returns the DOM patcher.
func (rt *Runtime) Patcher() *DomPatcher { return rt.patcher }

// Transport wraps base with the request interceptor.
func (rt *Runtime) Transport(base http.RoundTripper) http.RoundTripper {
	return rt.interceptor.Transport(base)
}

// OnPageReady runs the page hooks over loaded, absorbs and removes every
// token carrier inside it, then refreshes the token. A nil loaded means
// the whole document. Refresh failures are logged, not returned.
func (rt *Runtime) OnPageReady(ctx context.Context, loaded *html.Node) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if loaded == nil {
		loaded = rt.doc.Root()
	}
	for _, h := range rt.hooks {
		h.OnLoad(rt.doc, loaded)
	}
	for _, el := range dom.WithAttr(loaded, rt.attr) {
		rt.store.UpdateFromElement(el, true)
	}
	if err := rt.store.Refresh(ctx); err != nil {
		rt.log.Warn("page ready without token", zap.Error(err))
	}
}

// OnRequestConfiguring implements Lifecycle.
func (rt *Runtime) OnRequestConfiguring(req *OutgoingRequest) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.interceptor.OnRequestConfiguring(req)
}

// OnResponseError implements Lifecycle.
func (rt *Runtime) OnResponseError(resp FailedResponse) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.errors.OnResponseError(resp)
}

// Patch morphs live toward markup.
func (rt *Runtime) Patch(live *html.Node, markup string) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.patcher.Patch(live, markup)
}

// PatchFooterSplit applies a split payload to live and the footer region.
func (rt *Runtime) PatchFooterSplit(live *html.Node, composite string) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.patcher.PatchFooterSplit(live, composite)
}

// Swap applies markup to target with the given style, then any
// hx-swap-oob elements it carries to the elements sharing their id. It
// returns the content that was loaded, for OnPageReady.
func (rt *Runtime) Swap(target *html.Node, style SwapMode, markup string) ([]*html.Node, error) {
	if target == nil {
		return nil, fmt.Errorf("%w: nil target", ErrNoTarget)
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	if style == "" {
		style = SwapInner
	}
	parent := target
	if style == SwapOuter || style == SwapBeforeBegin || style == SwapAfterEnd {
		parent = target.Parent
	}
	nodes, err := dom.ParseFragment(markup, parent)
	if err != nil {
		return nil, err
	}

	nodes, oob := splitOOB(nodes)
	loaded, err := rt.swap(target, style, nodes)
	if err != nil {
		return nil, err
	}

	for _, n := range oob {
		id, _ := dom.Attr(n, "id")
		dest := rt.doc.ByID(id)
		if dest == nil {
			rt.log.Debug("oob target missing", zap.String("id", id))
			continue
		}
		mode, _ := dom.Attr(n, oobAttr)
		dom.RemoveAttr(n, oobAttr)
		var more []*html.Node
		if mode == "" || mode == "true" || SwapMode(mode) == SwapOuter {
			more, err = rt.swap(dest, SwapOuter, []*html.Node{n})
		} else {
			more, err = rt.swap(dest, SwapMode(mode), childNodes(n))
		}
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, more...)
	}
	return loaded, nil
}

const oobAttr = "hx-swap-oob"

func splitOOB(nodes []*html.Node) (main, oob []*html.Node) {
	for _, n := range nodes {
		if _, ok := dom.Attr(n, oobAttr); ok && dom.IsElement(n) {
			if _, hasID := dom.Attr(n, "id"); hasID {
				oob = append(oob, n)
				continue
			}
		}
		main = append(main, n)
	}
	return main, oob
}

func childNodes(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

func (rt *Runtime) swap(target *html.Node, style SwapMode, nodes []*html.Node) ([]*html.Node, error) {
	switch style {
	case SwapInner:
		dom.ReplaceChildren(target, nodes)
		return dom.Elements(nodes), nil
	case SwapOuter:
		if target.Parent == nil {
			return nil, fmt.Errorf("%w: outerHTML target is detached", ErrNoTarget)
		}
		insertBefore(target.Parent, nodes, target)
		dom.Remove(target)
		return dom.Elements(nodes), nil
	case SwapBeforeEnd:
		insertBefore(target, nodes, nil)
		return dom.Elements(nodes), nil
	case SwapAfterBegin:
		insertBefore(target, nodes, target.FirstChild)
		return dom.Elements(nodes), nil
	case SwapBeforeBegin, SwapAfterEnd:
		if target.Parent == nil {
			return nil, fmt.Errorf("%w: %s target is detached", ErrNoTarget, style)
		}
		ref := target
		if style == SwapAfterEnd {
			ref = target.NextSibling
		}
		insertBefore(target.Parent, nodes, ref)
		return dom.Elements(nodes), nil
	case SwapDelete:
		dom.Remove(target)
		return nil, nil
	case SwapNone:
		return nil, nil
	}

	for _, sw := range rt.swaps {
		if sw.Handles(string(style)) {
			return sw.Swap(target, nodes)
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSwap, style)
}

func insertBefore(parent *html.Node, nodes []*html.Node, ref *html.Node) {
	for _, n := range nodes {
		dom.Remove(n)
		parent.InsertBefore(n, ref)
	}
}
