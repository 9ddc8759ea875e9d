package hxglue

import (
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pthm/hxglue/lib/dom"
	"github.com/pthm/hxglue/lib/metrics"
	"github.com/pthm/hxglue/lib/morph"
)

// DomPatcher morphs live content toward server markup and handles split
// payloads that carry an extra footer append.
type DomPatcher struct {
	doc      *dom.Document
	morph    morph.Patcher
	footerID string
	marker   string
	log      *zap.Logger
}

// NewDomPatcher creates a patcher for doc. The footer region is looked up
// by footerID on every split patch.
func NewDomPatcher(doc *dom.Document, footerID, marker string, log *zap.Logger) *DomPatcher {
	if footerID == "" {
		footerID = DefaultFooterID
	}
	if marker == "" {
		marker = DefaultSplitMarker
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DomPatcher{doc: doc, footerID: footerID, marker: marker, log: log.Named("patch")}
}

// Patch reconciles live toward markup. Nodes marked data-morph-ignore are
// left exactly as they are; nodes marked data-morph-children-only keep their
// own attributes.
func (p *DomPatcher) Patch(live *html.Node, markup string) error {
	if err := p.morph.Patch(live, markup); err != nil {
		return err
	}
	metrics.Patches.WithLabelValues("patch").Inc()
	return nil
}

// PatchFooterSplit patches the part of composite before the first split
// marker into live and appends the rest to the end of the footer region.
// Without a marker the whole payload is patched. Without a footer region
// the append is skipped.
func (p *DomPatcher) PatchFooterSplit(live *html.Node, composite string) error {
	main, footer, found := strings.Cut(composite, p.marker)
	if err := p.morph.Patch(live, main); err != nil {
		return err
	}
	metrics.Patches.WithLabelValues("split").Inc()
	if !found {
		return nil
	}

	region := p.doc.ByID(p.footerID)
	if region == nil {
		p.log.Debug("no footer region for split payload", zap.String("id", p.footerID))
		return nil
	}
	_, err := dom.AppendHTML(region, footer)
	return err
}
