package hxglue

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Flash levels for toast notifications.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashWarning = "warning"
	FlashInfo    = "info"
)

// Flash represents a one-time notification message.
//
// Flashes travel in the footer part of a split payload: the server renders
// them after the split marker and the page appends them to the footer
// region, leaving the main content to the morph:
//
//	payload := hxglue.SplitPayload(mainHTML, hxglue.DefaultSplitMarker, []hxglue.Flash{
//	    {Level: hxglue.FlashSuccess, Message: "Saved"},
//	})
//
// Multiple flashes can be carried in one payload - each appears as a
// separate toast.
type Flash struct {
	Level   string // success, error, warning, info
	Message string
}

// RenderFlashes renders flashes as toast markup.
//
// The data-auto-dismiss attribute tells the page script to remove the toast
// after the given delay (milliseconds).
func RenderFlashes(flashes []Flash) string {
	var sb strings.Builder
	for _, f := range flashes {
		sb.WriteString(`<div class="toast toast-`)
		sb.WriteString(templ.EscapeString(f.Level))
		sb.WriteString(`" data-auto-dismiss="3000">`)
		sb.WriteString(templ.EscapeString(f.Message))
		sb.WriteString(`</div>`)
	}
	return sb.String()
}

// SplitPayload composes main content and flashes into one response body for
// DomPatcher.PatchFooterSplit. Without flashes the payload is main alone.
func SplitPayload(main, marker string, flashes []Flash) string {
	if len(flashes) == 0 {
		return main
	}
	if marker == "" {
		marker = DefaultSplitMarker
	}
	return main + marker + RenderFlashes(flashes)
}

// FooterRegion returns a templ component for the footer region.
//
// Add this to your layout template (typically near the end of <body>):
//
//	@hxglue.FooterRegion("footer")
//
// Split payloads append to it. It should be styled with CSS to position
// toasts (typically fixed bottom-right).
func FooterRegion(id string) templ.Component {
	if id == "" {
		id = DefaultFooterID
	}
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<div id="`+templ.EscapeString(id)+`" class="toast-container"></div>`)
		return err
	})
}
