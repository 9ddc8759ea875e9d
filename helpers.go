package hxglue

import (
	"net/http"

	"github.com/a-h/templ"
)

// htmx request headers.
const (
	HeaderRequest    = "HX-Request"
	HeaderCurrentURL = "HX-Current-URL"
	HeaderTarget     = "HX-Target"
	HeaderBoosted    = "HX-Boosted"
)

// Render writes a templ component to the HTTP response.
//
// Sets Content-Type to text/html and renders the component using the
// request's context:
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    hxglue.Render(w, r, page())
//	}
func Render(w http.ResponseWriter, r *http.Request, component templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(r.Context(), w)
}

// IsHTMX returns true if the request was sent by a partial-page pipeline.
//
// Use this to render only the swapped fragment for partial requests and the
// full layout otherwise:
//
//	if hxglue.IsHTMX(r) {
//	    return partialView()
//	}
//	return fullPageView()
func IsHTMX(r *http.Request) bool {
	return r.Header.Get(HeaderRequest) == "true"
}

// IsBoosted returns true if the request is a boosted navigation (hx-boost).
func IsBoosted(r *http.Request) bool {
	return r.Header.Get(HeaderBoosted) == "true"
}

// CurrentURL returns the URL the page was on when it sent the request.
//
// Returns empty string if header not present (non-HTMX request).
func CurrentURL(r *http.Request) string {
	return r.Header.Get(HeaderCurrentURL)
}

// TargetID returns the id attribute of the element that will receive the
// response. Returns empty string if not present.
func TargetID(r *http.Request) string {
	return r.Header.Get(HeaderTarget)
}
