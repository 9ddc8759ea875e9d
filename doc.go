// Package hxglue is the page-side runtime for server-rendered applications
// that navigate with partial-page (htmx-style) updates.
//
// The page is a live x/net/html tree (see lib/dom). A navigation pipeline
// reports three events to the runtime through the Lifecycle interface, and
// the runtime keeps the page consistent with the server in response.
//
// # Anti-forgery Tokens
//
// The server issues single-use tokens at GET /csrf/token:
//
//	{"token": "..."}
//
// TokenStore holds the page's current token. Every state-changing request
// (anything but GET and HEAD) carries it in the X-Csrf-Token header, set by
// RequestInterceptor, and reading it marks it spent. The next page-ready
// event fetches a replacement and writes it into every
// <input name="csrf_token"> via FormSynchronizer, so plain form posts stay
// valid too. When nothing was spent, the refresh instead reads the token
// the server rendered into the first form field.
//
// The server can also push a token inside any swapped fragment:
//
//	<div hidden data-csrf-token="..."></div>
//
// The runtime absorbs it and removes the element, so it is used once.
//
// # Error Responses
//
// A failed partial-page response replaces the main content region
// (#main-content) with an error view: a heading "Error <code> <text>" and
// the response body as preformatted text. The title changes to
// "<code> <text>" and the page scrolls to the top. 422 responses carry
// inline validation markup and are swapped normally instead.
//
// # Morphing
//
// DomPatcher reconciles live content toward new markup in place, keeping
// element identity (lib/morph). Elements can opt out:
//
//	<div data-morph-ignore="true">...</div>         left exactly as is
//	<div data-morph-children-only="true">...</div>  own attributes kept
//
// A split payload carries main content and a footer append separated by a
// marker:
//
//	<div>main</div><!-- split --><div class="toast">Saved</div>
//
// PatchFooterSplit morphs the first part into the target and appends the
// second to #footer. The "morph" and "morph-split" swap styles expose the
// same operations to the pipeline.
//
// # Wiring
//
// Create one Runtime per full page load:
//
//	rt := hxglue.NewRuntime(doc,
//	    hxglue.WithBaseURL("https://app.example.com"),
//	    hxglue.WithStandardHooks(),
//	    hxglue.WithLogger(log),
//	)
//	rt.OnPageReady(ctx, doc.Root())
//
// Navigator is a complete pipeline built on Runtime: it loads pages over
// HTTP, sends partial requests and applies the responses, and is what the
// hxglue CLI and the integration tests drive. Code that sends its own
// requests can route them through Runtime.Transport to get the same token
// header.
//
// The server side of the token exchange lives in lib/issuer.
package hxglue
