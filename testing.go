package hxglue

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pthm/hxglue/lib/dom"
)

// StaticFetcher is a TokenFetcher for tests.
//
// It returns Tokens in order, repeating the last one. With no Tokens it
// generates "token-1", "token-2", ... A non-nil Err fails every fetch.
type StaticFetcher struct {
	Tokens []string
	Err    error

	mu    sync.Mutex
	calls int
}

// Fetch implements TokenFetcher.
func (f *StaticFetcher) Fetch(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.Err != nil {
		return "", f.Err
	}
	if len(f.Tokens) == 0 {
		return fmt.Sprintf("token-%d", f.calls), nil
	}
	i := f.calls - 1
	if i >= len(f.Tokens) {
		i = len(f.Tokens) - 1
	}
	return f.Tokens[i], nil
}

// Calls returns how many times Fetch ran.
func (f *StaticFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// TestPage is a parsed page with a Runtime attached, for testing how markup
// behaves under the runtime without a server.
//
//	page, err := hxglue.NewTestPage(`<main id="main-content"><form><input name="csrf_token"></form></main>`)
//	page.Ready()
//	if page.Token() != "token-1" {
//	    t.Fatal("token not fetched")
//	}
type TestPage struct {
	Doc     *dom.Document
	Runtime *Runtime
	Fetcher *StaticFetcher
}

// NewTestPage parses markup and builds a Runtime with a StaticFetcher.
// opts are applied after the fetcher, so WithFetcher replaces it.
func NewTestPage(markup string, opts ...Option) (*TestPage, error) {
	doc, err := dom.ParseString(markup)
	if err != nil {
		return nil, err
	}
	f := &StaticFetcher{}
	rt := NewRuntime(doc, append([]Option{WithFetcher(f)}, opts...)...)
	return &TestPage{Doc: doc, Runtime: rt, Fetcher: f}, nil
}

// Ready fires OnPageReady for the whole document.
func (p *TestPage) Ready() {
	p.Runtime.OnPageReady(context.Background(), p.Doc.Root())
}

// HTML renders the whole page.
func (p *TestPage) HTML() string {
	return p.Doc.String()
}

// HTMLContains checks if the page contains a substring.
func (p *TestPage) HTMLContains(substr string) bool {
	return strings.Contains(p.HTML(), substr)
}

// InnerHTML renders the children of the element with id, or "" when absent.
func (p *TestPage) InnerHTML(id string) string {
	n := p.Doc.ByID(id)
	if n == nil {
		return ""
	}
	return dom.InnerHTML(n)
}

// Token returns the store's current token.
func (p *TestPage) Token() string {
	return p.Runtime.Store().Value()
}

// FieldValues returns the value of every input named name, in order.
func (p *TestPage) FieldValues(name string) []string {
	var out []string
	for _, n := range p.Doc.InputsByName(name) {
		v, _ := dom.Attr(n, "value")
		out = append(out, v)
	}
	return out
}

// Flashes returns the toasts currently in the region with id footerID.
func (p *TestPage) Flashes(footerID string) []Flash {
	region := p.Doc.ByID(footerID)
	if region == nil {
		return nil
	}
	var flashes []Flash
	for _, n := range dom.ByClass(region, "toast") {
		var level string
		class, _ := dom.Attr(n, "class")
		for _, c := range strings.Fields(class) {
			if strings.HasPrefix(c, "toast-") {
				level = strings.TrimPrefix(c, "toast-")
			}
		}
		flashes = append(flashes, Flash{Level: level, Message: dom.Text(n)})
	}
	return flashes
}
