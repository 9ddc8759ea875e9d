package hxglue

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pthm/hxglue/lib/config"
)

// Wire-level defaults shared with the server.
const (
	DefaultTokenPath   = "/csrf/token"
	DefaultHeader      = "X-Csrf-Token"
	DefaultField       = "csrf_token"
	DefaultTokenAttr   = "data-csrf-token"
	DefaultMainID      = "main-content"
	DefaultFooterID    = "footer"
	DefaultSplitMarker = "<!-- split -->"
	DefaultTimeLayout  = "2006-01-02 15:04:05"
)

// Option configures a Runtime or Navigator.
type Option func(*settings)

type settings struct {
	tokenPath  string
	header     string
	field      string
	attr       string
	mainID     string
	footerID   string
	marker     string
	location   *time.Location
	timeLayout string
	baseURL    string
	client     *http.Client
	fetcher    TokenFetcher
	hooks      []PageHook
	standard   bool
	swaps      []SwapStrategy
	log        *zap.Logger
}

func newSettings(opts []Option) settings {
	s := settings{
		tokenPath:  DefaultTokenPath,
		header:     DefaultHeader,
		field:      DefaultField,
		attr:       DefaultTokenAttr,
		mainID:     DefaultMainID,
		footerID:   DefaultFooterID,
		marker:     DefaultSplitMarker,
		location:   time.Local,
		timeLayout: DefaultTimeLayout,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.client == nil {
		s.client = http.DefaultClient
	}
	if s.fetcher == nil {
		s.fetcher = &HTTPFetcher{Client: s.client, URL: s.baseURL + s.tokenPath}
	}
	return s
}

// WithTokenPath sets the token-issuing endpoint path (default /csrf/token).
func WithTokenPath(path string) Option {
	return func(s *settings) { s.tokenPath = path }
}

// WithHeader sets the header carrying the token (default X-Csrf-Token).
func WithHeader(name string) Option {
	return func(s *settings) { s.header = name }
}

// WithField sets the name of the hidden form field (default csrf_token).
func WithField(name string) Option {
	return func(s *settings) { s.field = name }
}

// WithTokenAttr sets the attribute marking one-shot token carriers
// (default data-csrf-token).
func WithTokenAttr(attr string) Option {
	return func(s *settings) { s.attr = attr }
}

// WithMainID sets the id of the main content region (default main-content).
func WithMainID(id string) Option {
	return func(s *settings) { s.mainID = id }
}

// WithFooterID sets the id of the footer region split payloads append to.
func WithFooterID(id string) Option {
	return func(s *settings) { s.footerID = id }
}

// WithSplitMarker sets the marker dividing split payloads.
func WithSplitMarker(marker string) Option {
	return func(s *settings) { s.marker = marker }
}

// WithTimeFormat sets how LocalTimeFormatter renders timestamps.
func WithTimeFormat(loc *time.Location, layout string) Option {
	return func(s *settings) {
		if loc != nil {
			s.location = loc
		}
		if layout != "" {
			s.timeLayout = layout
		}
	}
}

// WithBaseURL sets the origin the default fetcher resolves the token path
// against, e.g. "http://localhost:8080".
func WithBaseURL(base string) Option {
	return func(s *settings) { s.baseURL = base }
}

// WithHTTPClient sets the client used for token fetches and navigation.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) { s.client = c }
}

// WithFetcher replaces the token fetcher.
func WithFetcher(f TokenFetcher) Option {
	return func(s *settings) { s.fetcher = f }
}

// WithHook adds a page-load hook. Hooks run in order before the token
// refresh.
func WithHook(h PageHook) Option {
	return func(s *settings) { s.hooks = append(s.hooks, h) }
}

// WithStandardHooks runs NavHighlighter and a LocalTimeFormatter (using the
// WithTimeFormat location and layout) before any WithHook hooks.
func WithStandardHooks() Option {
	return func(s *settings) { s.standard = true }
}

// WithSwap registers an extra swap strategy.
func WithSwap(sw SwapStrategy) Option {
	return func(s *settings) { s.swaps = append(s.swaps, sw) }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// FromConfig maps a loaded configuration onto options.
func FromConfig(c *config.Config) Option {
	return func(s *settings) {
		s.tokenPath = c.Token.Path
		s.header = c.Token.Header
		s.field = c.Token.Field
		s.attr = c.Token.Attr
		s.mainID = c.Page.MainID
		s.footerID = c.Page.FooterID
		s.marker = c.Page.SplitMarker
		if c.Page.TimeLayout != "" {
			s.timeLayout = c.Page.TimeLayout
		}
		if loc, err := time.LoadLocation(c.Page.Timezone); err == nil {
			s.location = loc
		}
		if c.Server.BaseURL != "" {
			s.baseURL = c.Server.BaseURL
		}
	}
}
