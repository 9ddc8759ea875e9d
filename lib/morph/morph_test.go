package morph

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/pthm/hxglue/lib/dom"
)

func liveNode(t *testing.T, markup, id string) (*dom.Document, *html.Node) {
	t.Helper()
	doc, err := dom.ParseString(markup)
	require.NoError(t, err)
	n := doc.ByID(id)
	require.NotNil(t, n, "missing #%s", id)
	return doc, n
}

func TestPatch(t *testing.T) {
	tests := []struct {
		name   string
		live   string
		markup string
		want   string
	}{
		{
			name:   "outer morph syncs attributes",
			live:   `<div id="root" class="a"><span>x</span></div>`,
			markup: `<div id="root" class="b"><span>y</span></div>`,
			want:   `<div id="root" class="b"><span>y</span></div>`,
		},
		{
			name:   "children replaced when tags differ",
			live:   `<section id="root"><p>old</p></section>`,
			markup: `<div>A</div>`,
			want:   `<section id="root"><div>A</div></section>`,
		},
		{
			name:   "surplus children removed",
			live:   `<div id="root"><p>1</p><p>2</p><p>3</p></div>`,
			markup: `<p>1</p>`,
			want:   `<div id="root"><p>1</p></div>`,
		},
		{
			name:   "new children inserted",
			live:   `<div id="root"><p>1</p></div>`,
			markup: `<h1>t</h1><p>1</p><p>2</p>`,
			want:   `<div id="root"><h1>t</h1><p>1</p><p>2</p></div>`,
		},
		{
			name:   "children-only keeps live attributes",
			live:   `<div id="root" class="live" data-morph-children-only="true"><span>a</span></div>`,
			markup: `<div id="root" class="server"><span>b</span></div>`,
			want:   `<div id="root" class="live" data-morph-children-only="true"><span>b</span></div>`,
		},
		{
			name:   "ignored child discards proposed branch",
			live:   `<div id="root"><p>old</p><section data-morph-ignore="true"><b>keep</b></section></div>`,
			markup: `<p>new</p><section data-morph-ignore="true"><i>replaced</i></section>`,
			want:   `<div id="root"><p>new</p><section data-morph-ignore="true"><b>keep</b></section></div>`,
		},
		{
			name:   "ignored child survives mismatched markup",
			live:   `<div id="root"><ul data-morph-ignore="true"><li>1</li></ul></div>`,
			markup: `<ol><li>x</li></ol>`,
			want:   `<div id="root"><ul data-morph-ignore="true"><li>1</li></ul><ol><li>x</li></ol></div>`,
		},
		{
			name:   "ignored root untouched",
			live:   `<div id="root" data-morph-ignore="true"><p>keep</p></div>`,
			markup: `<p>gone</p>`,
			want:   `<div id="root" data-morph-ignore="true"><p>keep</p></div>`,
		},
		{
			name:   "ignored keyed node reordered after a sibling",
			live:   `<div id="root"><div id="x" data-morph-ignore="true">keep</div><p id="y">old</p></div>`,
			markup: `<p id="y">new</p><div id="x">server</div>`,
			want:   `<div id="root"><div id="x" data-morph-ignore="true">keep</div><p id="y">new</p></div>`,
		},
		{
			name:   "ignored keyed node is not moved forward",
			live:   `<div id="root"><p id="a">A</p><div id="x" data-morph-ignore="true">keep</div></div>`,
			markup: `<div id="x">server</div><p id="a">A</p>`,
			want:   `<div id="root"><p id="a">A</p><div id="x" data-morph-ignore="true">keep</div></div>`,
		},
		{
			name:   "comments and text reconciled",
			live:   `<div id="root">a<!--x--></div>`,
			markup: `b<!--y-->`,
			want:   `<div id="root">b<!--y--></div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, live := liveNode(t, tt.live, "root")
			require.NoError(t, Patcher{}.Patch(live, tt.markup))
			if diff := cmp.Diff(tt.want, dom.OuterHTML(live)); diff != "" {
				t.Errorf("Patch() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPatchPreservesIdentity(t *testing.T) {
	_, live := liveNode(t, `<div id="root"><span id="s">x</span></div>`, "root")
	span := live.FirstChild

	require.NoError(t, Patcher{}.Patch(live, `<div id="root"><span id="s" class="c">y</span></div>`))

	assert.Same(t, span, live.FirstChild)
	assert.Equal(t, `<span id="s" class="c">y</span>`, dom.OuterHTML(span))
}

func TestPatchKeyedReorder(t *testing.T) {
	_, live := liveNode(t, `<ul id="root"><li id="a">A</li><li id="b">B</li></ul>`, "root")
	a, b := live.FirstChild, live.LastChild

	require.NoError(t, Patcher{}.Patch(live, `<li id="b">B2</li><li id="a">A</li>`))

	assert.Same(t, b, live.FirstChild)
	assert.Same(t, a, live.LastChild)
	assert.Equal(t, `<ul id="root"><li id="b">B2</li><li id="a">A</li></ul>`, dom.OuterHTML(live))
}

func TestIgnoredSubtreeByteIdentical(t *testing.T) {
	_, live := liveNode(t, `<div id="root"><div id="w" data-morph-ignore="true" x-data="{open: true}"><input value="typed"><p class="p">text</p></div></div>`, "root")
	w := live.FirstChild
	before := dom.OuterHTML(w)

	require.NoError(t, Patcher{}.Patch(live, `<div id="w"><p>server</p></div><footer>f</footer>`))

	assert.Same(t, w, live.FirstChild)
	assert.Equal(t, before, dom.OuterHTML(w))
}

func TestReconcileReturnsLive(t *testing.T) {
	_, live := liveNode(t, `<div id="root"></div>`, "root")
	nodes, err := dom.ParseFragment(`<p>x</p>`, live)
	require.NoError(t, err)

	changed := Patcher{}.Reconcile(live, nodes)
	require.Len(t, changed, 1)
	assert.Same(t, live, changed[0])
}

func TestPolicyOf(t *testing.T) {
	tests := []struct {
		markup string
		want   Policy
	}{
		{`<div id="n"></div>`, PolicyDefault},
		{`<div id="n" data-morph-ignore="true"></div>`, PolicyIgnore},
		{`<div id="n" data-morph-ignore></div>`, PolicyIgnore},
		{`<div id="n" data-morph-ignore="false"></div>`, PolicyDefault},
		{`<div id="n" data-morph-children-only="true"></div>`, PolicyChildrenOnly},
		{`<div id="n" data-morph-children-only="true" data-morph-ignore="true"></div>`, PolicyIgnore},
	}
	for _, tt := range tests {
		t.Run(tt.markup, func(t *testing.T) {
			_, n := liveNode(t, tt.markup, "n")
			assert.Equal(t, tt.want, PolicyOf(n))
		})
	}
}
