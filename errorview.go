package hxglue

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"github.com/pthm/hxglue/lib/dom"
	"github.com/pthm/hxglue/lib/metrics"
)

// StatusValidation is the status the server uses for form validation
// failures. Its body is swapped like a success, so the error view leaves
// it alone.
const StatusValidation = http.StatusUnprocessableEntity

// FailedResponse describes a response the page received with a failing
// status. StatusCode 0 means the request never got an answer.
type FailedResponse struct {
	StatusCode int
	StatusText string
	Body       string
}

// ErrorPresentation is the markup shown in place of the main content for a
// failed response:
//
//	<div><h1>Error 500 Internal Server Error</h1><br><pre class="pre">...</pre></div>
//
// The body is always rendered as escaped text.
type ErrorPresentation struct {
	StatusCode int
	StatusText string
	Body       string
}

// NewErrorPresentation builds the presentation for resp. An empty status
// text falls back to the standard text for the code.
func NewErrorPresentation(resp FailedResponse) ErrorPresentation {
	text := resp.StatusText
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	if text == "" && resp.StatusCode == 0 {
		text = "Network Error"
	}
	return ErrorPresentation{StatusCode: resp.StatusCode, StatusText: text, Body: resp.Body}
}

// Title returns "<code> <text>", used as the document title.
func (p ErrorPresentation) Title() string {
	return strings.TrimSpace(strconv.Itoa(p.StatusCode) + " " + p.StatusText)
}

// Heading returns "Error <code> <text>".
func (p ErrorPresentation) Heading() string {
	return "Error " + p.Title()
}

// Component renders the presentation.
func (p ErrorPresentation) Component() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		// Parsers drop one newline straight after <pre>; write our own so a
		// body starting with a newline survives.
		_, err := io.WriteString(w, `<div><h1>`+templ.EscapeString(p.Heading())+
			"</h1><br><pre class=\"pre\">\n"+templ.EscapeString(p.Body)+`</pre></div>`)
		return err
	})
}

// HTML renders the presentation to a string.
func (p ErrorPresentation) HTML() (string, error) {
	var sb strings.Builder
	if err := p.Component().Render(context.Background(), &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// ErrorResponseHandler replaces the main content region with an error view
// when a request fails.
type ErrorResponseHandler struct {
	doc    *dom.Document
	mainID string
	log    *zap.Logger
}

// NewErrorResponseHandler renders into the element with id mainID in doc.
func NewErrorResponseHandler(doc *dom.Document, mainID string, log *zap.Logger) *ErrorResponseHandler {
	if mainID == "" {
		mainID = DefaultMainID
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ErrorResponseHandler{doc: doc, mainID: mainID, log: log.Named("errors")}
}

// OnResponseError presents resp and reports whether the page changed.
//
// Validation failures (422) and non-error statuses are ignored, as is a
// page without a main region. Otherwise the region's contents become the
// error view, the title becomes "<code> <text>" and the page scrolls to
// the top.
func (h *ErrorResponseHandler) OnResponseError(resp FailedResponse) bool {
	if resp.StatusCode == StatusValidation {
		return false
	}
	if resp.StatusCode > 0 && resp.StatusCode < 400 {
		return false
	}

	main := h.doc.ByID(h.mainID)
	if main == nil {
		h.log.Debug("no main region for error view", zap.String("id", h.mainID), zap.Int("status", resp.StatusCode))
		return false
	}

	p := NewErrorPresentation(resp)
	markup, err := p.HTML()
	if err != nil {
		h.log.Error("render error view", zap.Error(err))
		return false
	}
	if err := dom.SetInnerHTML(main, markup); err != nil {
		h.log.Error("swap error view", zap.Error(err))
		return false
	}
	h.doc.SetTitle(p.Title())
	h.doc.ScrollTo(0)

	metrics.ErrorPresentations.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	h.log.Info("presented error response", zap.Int("status", resp.StatusCode))
	return true
}
