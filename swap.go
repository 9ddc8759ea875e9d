package hxglue

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/pthm/hxglue/lib/dom"
	"github.com/pthm/hxglue/lib/metrics"
	"github.com/pthm/hxglue/lib/morph"
)

// SwapMode is an hx-swap style: how response HTML lands relative to the
// target.
//
// See https://htmx.org/attributes/hx-swap/ for visual examples.
type SwapMode string

const (
	// SwapOuter replaces the entire element including its tag (outerHTML).
	SwapOuter SwapMode = "outerHTML"

	// SwapInner replaces only the element's contents (innerHTML).
	// This is the default swap mode.
	SwapInner SwapMode = "innerHTML"

	// SwapBeforeEnd appends the response to the end of the target's contents.
	SwapBeforeEnd SwapMode = "beforeend"

	// SwapAfterEnd inserts the response after the target element.
	SwapAfterEnd SwapMode = "afterend"

	// SwapBeforeBegin inserts the response before the target element.
	SwapBeforeBegin SwapMode = "beforebegin"

	// SwapAfterBegin prepends the response to the start of the target's contents.
	SwapAfterBegin SwapMode = "afterbegin"

	// SwapDelete removes the target element entirely.
	// Response content is ignored.
	SwapDelete SwapMode = "delete"

	// SwapNone performs no swap; the response is discarded.
	SwapNone SwapMode = "none"

	// SwapMorph reconciles the target toward the response in place,
	// keeping element identity. Handled by MorphSwap.
	SwapMorph SwapMode = "morph"
)

// SwapStrategy is a pluggable swap style.
type SwapStrategy interface {
	// Handles reports whether the strategy implements style.
	Handles(style string) bool
	// Swap applies fragment to target and returns the nodes whose
	// content changed.
	Swap(target *html.Node, fragment []*html.Node) ([]*html.Node, error)
}

// MorphSwap implements the "morph" swap style.
type MorphSwap struct {
	// Reconciler defaults to morph.Patcher.
	Reconciler morph.Reconciler
}

// Handles implements SwapStrategy.
func (MorphSwap) Handles(style string) bool {
	return style == string(SwapMorph)
}

// Swap implements SwapStrategy. A fragment of several nodes is reduced to
// its first element; a single node is used as is. The target is always
// the only changed node.
func (m MorphSwap) Swap(target *html.Node, fragment []*html.Node) ([]*html.Node, error) {
	r := m.Reconciler
	if r == nil {
		r = morph.Patcher{}
	}

	proposed := fragment
	if len(fragment) > 1 {
		if els := dom.Elements(fragment); len(els) > 0 {
			proposed = els[:1]
		}
	}
	r.Reconcile(target, proposed)
	metrics.Patches.WithLabelValues("swap").Inc()
	return []*html.Node{target}, nil
}

// SplitSwap implements the "morph-split" style: the response is a split
// payload whose main part morphs the target and whose tail is appended to
// the footer region.
type SplitSwap struct {
	Patcher *DomPatcher
}

// SwapMorphSplit is the style handled by SplitSwap.
const SwapMorphSplit SwapMode = "morph-split"

// Handles implements SwapStrategy.
func (SplitSwap) Handles(style string) bool {
	return style == string(SwapMorphSplit)
}

// Swap implements SwapStrategy. The fragment is re-serialized so the split
// marker, a comment node, survives intact.
func (s SplitSwap) Swap(target *html.Node, fragment []*html.Node) ([]*html.Node, error) {
	var sb strings.Builder
	for _, n := range fragment {
		sb.WriteString(dom.OuterHTML(n))
	}
	if err := s.Patcher.PatchFooterSplit(target, sb.String()); err != nil {
		return nil, err
	}
	return []*html.Node{target}, nil
}
