package main

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pthm/hxglue"
	"github.com/pthm/hxglue/lib/config"
	"github.com/pthm/hxglue/lib/issuer"
)

const itemListID = "item-list"

type demoItem struct {
	ID      string
	Name    string
	Created time.Time
}

// demoApp is a small item list exercising every runtime contract: the
// token endpoint, protected posts, 422 validation swaps, a failing route
// for the error view and split responses carrying flashes.
type demoApp struct {
	cfg *config.Config
	iss *issuer.Issuer
	log *zap.Logger

	mu    sync.Mutex
	items []demoItem
	now   func() time.Time
}

func newDemoApp(cfg *config.Config, iss *issuer.Issuer, log *zap.Logger) *demoApp {
	return &demoApp{cfg: cfg, iss: iss, log: log, now: time.Now}
}

func (a *demoApp) routes(metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok")
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}
	r.Method(http.MethodGet, a.cfg.Token.Path, a.iss.TokenHandler())
	r.Get("/", a.index)

	r.Group(func(r chi.Router) {
		r.Use(a.iss.Protect)
		r.Post("/items", a.createItem)
		r.Delete("/items", a.clearItems)
		r.Post("/fail", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "simulated failure", http.StatusInternalServerError)
		})
	})
	return r
}

func (a *demoApp) snapshot() []demoItem {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]demoItem(nil), a.items...)
}

func (a *demoApp) index(w http.ResponseWriter, r *http.Request) {
	token, err := a.iss.Issue(r.Context())
	if err != nil {
		a.log.Error("issue token", zap.Error(err))
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	content := a.mainContent(token, a.snapshot())
	if hxglue.IsHTMX(r) {
		_ = hxglue.Render(w, r, content)
		return
	}
	_ = hxglue.Render(w, r, a.layout(content))
}

func (a *demoApp) createItem(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(hxglue.StatusValidation)
		_, _ = io.WriteString(w, `<p class="form-error">Name is required</p>`)
		return
	}

	a.mu.Lock()
	a.items = append(a.items, demoItem{ID: uuid.NewString(), Name: name, Created: a.now()})
	items := append([]demoItem(nil), a.items...)
	a.mu.Unlock()

	a.log.Debug("item created", zap.String("name", name), zap.Int("count", len(items)))
	a.writeSplit(w, r, items, hxglue.Flash{Level: hxglue.FlashSuccess, Message: "Added " + name})
}

func (a *demoApp) clearItems(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.items = nil
	a.mu.Unlock()
	a.writeSplit(w, r, nil, hxglue.Flash{Level: hxglue.FlashInfo, Message: "List cleared"})
}

func (a *demoApp) writeSplit(w http.ResponseWriter, r *http.Request, items []demoItem, flashes ...hxglue.Flash) {
	var sb strings.Builder
	if err := itemList(items).Render(r.Context(), &sb); err != nil {
		a.log.Error("render item list", zap.Error(err))
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, hxglue.SplitPayload(sb.String(), a.cfg.Page.SplitMarker, flashes))
}

func (a *demoApp) layout(content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html><head><title>hxglue</title>`+
			`<script src="https://unpkg.com/htmx.org@2.0.4"></script></head><body>`+
			`<nav><a id="nav-items" class="`+hxglue.NavItemClass+`" href="/">Items</a></nav>`+
			`<main id="`+templ.EscapeString(a.cfg.Page.MainID)+`">`); err != nil {
			return err
		}
		if err := content.Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `</main>`); err != nil {
			return err
		}
		if err := hxglue.FooterRegion(a.cfg.Page.FooterID).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

func (a *demoApp) mainContent(token string, items []demoItem) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<span id="`+hxglue.TagUpdateID+`" data-tag="nav-items" hidden></span>`+
			`<form hx-post="/items" hx-target="#`+itemListID+`" hx-swap="`+string(hxglue.SwapMorphSplit)+`">`); err != nil {
			return err
		}
		if err := a.iss.HiddenInput(token).Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `<input name="name" placeholder="Item"><button>Add</button></form>`+
			`<button hx-delete="/items" hx-target="#`+itemListID+`" hx-swap="`+string(hxglue.SwapMorphSplit)+`">Clear</button>`+
			`<button hx-post="/fail">Fail</button>`); err != nil {
			return err
		}
		return itemList(items).Render(ctx, w)
	})
}

func itemList(items []demoItem) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var sb strings.Builder
		sb.WriteString(`<ul id="` + itemListID + `">`)
		for _, it := range items {
			sb.WriteString(`<li id="item-` + templ.EscapeString(it.ID) + `">`)
			sb.WriteString(templ.EscapeString(it.Name))
			sb.WriteString(` <span class="` + hxglue.LocalDateClass + `">`)
			sb.WriteString(it.Created.UTC().Format(time.RFC3339))
			sb.WriteString(`</span></li>`)
		}
		sb.WriteString(`</ul>`)
		_, err := io.WriteString(w, sb.String())
		return err
	})
}
