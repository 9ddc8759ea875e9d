package hxglue

import (
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/pthm/hxglue/lib/dom"
)

// PageHook runs whenever content is loaded into the page, before the token
// refresh. loaded is the new content's root; hooks may look beyond it.
type PageHook interface {
	OnLoad(doc *dom.Document, loaded *html.Node)
}

// PageHookFunc adapts a function to PageHook.
type PageHookFunc func(doc *dom.Document, loaded *html.Node)

// OnLoad implements PageHook.
func (f PageHookFunc) OnLoad(doc *dom.Document, loaded *html.Node) {
	f(doc, loaded)
}

// Navigation highlight markers.
const (
	TagUpdateID     = "tag-update"
	NavItemClass    = "nav-item"
	NavActiveClass  = "nav-item-active"
	LocalDateClass  = "js-date-local"
	tagUpdateTagKey = "data-tag"
)

// NavHighlighter moves the active navigation highlight on request of the
// server. A response carrying
//
//	<div id="tag-update" data-tag="nav-settings"></div>
//
// clears nav-item-active from every .nav-item, sets it on #nav-settings and
// is then removed. An empty data-tag only clears.
type NavHighlighter struct{}

// OnLoad implements PageHook.
func (NavHighlighter) OnLoad(doc *dom.Document, _ *html.Node) {
	marker := doc.ByID(TagUpdateID)
	if marker == nil {
		return
	}
	defer dom.Remove(marker)

	for _, n := range doc.ByClass(NavItemClass) {
		dom.RemoveClass(n, NavActiveClass)
	}
	tag, _ := dom.Attr(marker, tagUpdateTagKey)
	if tag == "" {
		return
	}
	if el := doc.ByID(tag); el != nil {
		dom.AddClass(el, NavActiveClass)
	}
}

// LocalTimeFormatter rewrites RFC 3339 timestamps in .js-date-local
// elements into Layout in Location. Processing stops at the first element
// whose text does not parse or is the zero or epoch time; the marker class
// is then stripped from all of them so they are not visited again.
type LocalTimeFormatter struct {
	Location *time.Location
	Layout   string
}

// OnLoad implements PageHook.
func (f LocalTimeFormatter) OnLoad(doc *dom.Document, _ *html.Node) {
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	layout := f.Layout
	if layout == "" {
		layout = DefaultTimeLayout
	}

	els := doc.ByClass(LocalDateClass)
	for _, el := range els {
		ts, err := time.Parse(time.RFC3339, strings.TrimSpace(dom.Text(el)))
		if err != nil || ts.IsZero() || ts.Unix() == 0 {
			break
		}
		dom.SetText(el, ts.In(loc).Format(layout))
	}
	for _, el := range els {
		dom.RemoveClass(el, LocalDateClass)
	}
}
