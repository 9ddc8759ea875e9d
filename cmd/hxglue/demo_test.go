package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pthm/hxglue"
	"github.com/pthm/hxglue/lib/config"
	"github.com/pthm/hxglue/lib/dom"
)

func newDemoServer(t *testing.T) (*config.Config, *httptest.Server) {
	t.Helper()
	cfg := config.Default()
	iss, err := newIssuer(cfg, nil, zap.NewNop())
	require.NoError(t, err)

	srv := httptest.NewServer(newDemoApp(cfg, iss, zap.NewNop()).routes(nil))
	t.Cleanup(srv.Close)
	return cfg, srv
}

func loadDemo(t *testing.T) (*config.Config, *httptest.Server, *hxglue.Navigator) {
	t.Helper()
	cfg, srv := newDemoServer(t)
	nav, err := hxglue.NewNavigator(srv.URL,
		hxglue.FromConfig(cfg),
		hxglue.WithStandardHooks(),
		hxglue.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	require.NoError(t, nav.Load(context.Background(), "/"))
	return cfg, srv, nav
}

func TestDemoLoad(t *testing.T) {
	cfg, _, nav := loadDemo(t)
	rt := nav.Runtime()
	doc := rt.Document()

	assert.NotEmpty(t, rt.Store().Value())
	v, ok := rt.Forms().First()
	assert.True(t, ok)
	assert.Equal(t, rt.Store().Value(), v)
	assert.True(t, dom.HasClass(doc.ByID("nav-items"), hxglue.NavActiveClass))
	assert.Nil(t, doc.ByID(hxglue.TagUpdateID))
	assert.NotNil(t, doc.ByID(cfg.Page.FooterID))
}

func TestDemoAddItem(t *testing.T) {
	cfg, _, nav := loadDemo(t)
	ctx := context.Background()
	first := nav.Runtime().Store().Value()

	err := nav.Do(ctx, hxglue.Request{
		Verb:   http.MethodPost,
		Path:   "/items",
		Form:   url.Values{"name": {"pen"}},
		Target: itemListID,
		Swap:   hxglue.SwapMorphSplit,
	})
	require.NoError(t, err)

	rt := nav.Runtime()
	list := rt.Document().ByID(itemListID)
	require.NotNil(t, list)
	assert.Contains(t, dom.InnerHTML(list), "pen")
	assert.Empty(t, dom.ByClass(list, hxglue.LocalDateClass))

	page := &hxglue.TestPage{Doc: rt.Document(), Runtime: rt}
	flashes := page.Flashes(cfg.Page.FooterID)
	require.Len(t, flashes, 1)
	assert.Equal(t, hxglue.Flash{Level: hxglue.FlashSuccess, Message: "Added pen"}, flashes[0])

	assert.NotEqual(t, first, rt.Store().Value(), "token should rotate after a post")

	// The list element is morphed in place
	err = nav.Do(ctx, hxglue.Request{
		Verb:   http.MethodPost,
		Path:   "/items",
		Form:   url.Values{"name": {"cup"}},
		Target: itemListID,
		Swap:   hxglue.SwapMorphSplit,
	})
	require.NoError(t, err)
	assert.Same(t, list, rt.Document().ByID(itemListID))
	assert.Len(t, dom.FindAll(list, "./li"), 2)
	assert.Len(t, page.Flashes(cfg.Page.FooterID), 2)
}

func TestDemoValidation(t *testing.T) {
	_, _, nav := loadDemo(t)

	err := nav.Do(context.Background(), hxglue.Request{
		Verb:   http.MethodPost,
		Path:   "/items",
		Target: itemListID,
	})
	require.NoError(t, err)
	assert.Len(t, nav.Runtime().Document().ByClass("form-error"), 1)
}

func TestDemoFailureShowsErrorView(t *testing.T) {
	cfg, _, nav := loadDemo(t)

	err := nav.Do(context.Background(), hxglue.Request{Verb: http.MethodPost, Path: "/fail"})
	assert.True(t, hxglue.IsResponseError(err))

	doc := nav.Runtime().Document()
	assert.Equal(t, "500 Internal Server Error", doc.Title())
	pre := dom.FindOne(doc.ByID(cfg.Page.MainID), ".//pre")
	require.NotNil(t, pre)
	assert.Contains(t, dom.Text(pre), "simulated failure")
}

func TestDemoRejectsMissingToken(t *testing.T) {
	_, srv := newDemoServer(t)

	resp, err := srv.Client().PostForm(srv.URL+"/items", url.Values{"name": {"pen"}})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDemoPartialIndex(t *testing.T) {
	_, srv := newDemoServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/", nil)
	require.NoError(t, err)
	req.Header.Set(hxglue.HeaderRequest, "true")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(body), "<html"), "partial request should not get the layout")
	assert.Contains(t, string(body), `id="`+itemListID+`"`)
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	cfg := config.Default()
	store, closeStore, err := newStore(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, store)
	closeStore()

	mr := miniredis.RunT(t)
	cfg.Token.Store.Kind = "redis"
	cfg.Token.Store.Redis.Addr = mr.Addr()
	store, closeStore, err = newStore(ctx, cfg)
	require.NoError(t, err)
	defer closeStore()

	iss, err := newIssuer(cfg, store, zap.NewNop())
	require.NoError(t, err)
	token, err := iss.Issue(ctx)
	require.NoError(t, err)
	assert.NoError(t, iss.Verify(ctx, token))
	assert.NotEmpty(t, mr.Keys())

	cfg.Token.Store.Kind = "bogus"
	_, _, err = newStore(ctx, cfg)
	assert.Error(t, err)
}
