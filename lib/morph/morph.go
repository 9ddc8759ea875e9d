// Package morph reconciles a live node tree toward new markup in place.
//
// Live nodes are reused whenever they match a proposed node (same type, same
// tag, same id), so element identity survives a patch. Each live element is
// checked for a policy attribute at the moment it is visited:
//
//	data-morph-ignore="true"         the node and its subtree are left as is
//	data-morph-children-only="true"  own attributes are kept, children are reconciled
//
// Ignored nodes are never modified or removed; proposed markup aimed at them
// is discarded.
package morph

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/pthm/hxglue/lib/dom"
)

// Policy attributes read from live elements.
const (
	IgnoreAttr       = "data-morph-ignore"
	ChildrenOnlyAttr = "data-morph-children-only"
)

// Policy is the per-node reconciliation mode.
type Policy int

const (
	// PolicyDefault reconciles attributes and children.
	PolicyDefault Policy = iota
	// PolicyChildrenOnly leaves the node's own attributes untouched.
	PolicyChildrenOnly
	// PolicyIgnore skips the node and its subtree.
	PolicyIgnore
)

func (p Policy) String() string {
	switch p {
	case PolicyChildrenOnly:
		return "children-only"
	case PolicyIgnore:
		return "ignore"
	default:
		return "default"
	}
}

// PolicyOf reads the policy of a live node. Non-elements are always default.
func PolicyOf(n *html.Node) Policy {
	if !dom.IsElement(n) {
		return PolicyDefault
	}
	if flagSet(n, IgnoreAttr) {
		return PolicyIgnore
	}
	if flagSet(n, ChildrenOnlyAttr) {
		return PolicyChildrenOnly
	}
	return PolicyDefault
}

func flagSet(n *html.Node, key string) bool {
	v, ok := dom.Attr(n, key)
	return ok && (v == "" || strings.EqualFold(v, "true"))
}

// Reconciler updates live toward proposed and returns the nodes that changed.
type Reconciler interface {
	Reconcile(live *html.Node, proposed []*html.Node) []*html.Node
}

// Patcher is the default Reconciler.
type Patcher struct{}

// Patch parses markup in the context of live and reconciles live toward it.
func (p Patcher) Patch(live *html.Node, markup string) error {
	nodes, err := dom.ParseFragment(markup, live)
	if err != nil {
		return err
	}
	p.Reconcile(live, nodes)
	return nil
}

// Reconcile morphs live toward proposed. When proposed is a single element
// with live's tag, live itself is reconciled against it; otherwise proposed
// becomes live's new child list. The result is always live, whose identity
// is never replaced.
func (Patcher) Reconcile(live *html.Node, proposed []*html.Node) []*html.Node {
	if PolicyOf(live) == PolicyIgnore {
		return []*html.Node{live}
	}
	if root := soleElement(proposed); root != nil && sameTag(live, root) {
		morphNode(live, root)
	} else {
		morphChildren(live, proposed)
	}
	return []*html.Node{live}
}

// soleElement returns the only element in nodes when everything else is
// whitespace text.
func soleElement(nodes []*html.Node) *html.Node {
	var el *html.Node
	for _, n := range nodes {
		switch n.Type {
		case html.ElementNode:
			if el != nil {
				return nil
			}
			el = n
		case html.TextNode:
			if strings.TrimSpace(n.Data) != "" {
				return nil
			}
		default:
			return nil
		}
	}
	return el
}

func morphNode(live, next *html.Node) {
	switch live.Type {
	case html.TextNode, html.CommentNode:
		if live.Data != next.Data {
			live.Data = next.Data
		}
		return
	case html.ElementNode:
	default:
		return
	}

	switch PolicyOf(live) {
	case PolicyIgnore:
		return
	case PolicyDefault:
		syncAttrs(live, next)
	}
	morphChildren(live, childList(next))
}

func morphChildren(parent *html.Node, proposed []*html.Node) {
	cursor := parent.FirstChild
	for _, next := range proposed {
		// Ignored live nodes keep their position; step over them.
		for cursor != nil && PolicyOf(cursor) == PolicyIgnore && !matches(cursor, next) {
			cursor = cursor.NextSibling
		}

		// The proposed branch for an ignored keyed node is dropped wherever
		// the live node sits.
		if kept := ignoredByID(parent, next); kept != nil {
			if kept == cursor {
				cursor = cursor.NextSibling
			}
			continue
		}

		match := findMatch(cursor, next)
		if match == nil {
			dom.Remove(next)
			parent.InsertBefore(next, cursor)
			continue
		}
		if match == cursor {
			cursor = cursor.NextSibling
		} else {
			parent.RemoveChild(match)
			parent.InsertBefore(match, cursor)
		}
		morphNode(match, next)
	}

	for c := cursor; c != nil; {
		following := c.NextSibling
		if PolicyOf(c) != PolicyIgnore {
			parent.RemoveChild(c)
		}
		c = following
	}
}

// findMatch picks the live node to reuse for next: by id among the
// remaining siblings when next is keyed, otherwise the node at cursor.
func findMatch(cursor, next *html.Node) *html.Node {
	if id := idOf(next); id != "" {
		for c := cursor; c != nil; c = c.NextSibling {
			if matches(c, next) && PolicyOf(c) != PolicyIgnore {
				return c
			}
		}
		return nil
	}
	if cursor != nil && matches(cursor, next) {
		return cursor
	}
	return nil
}

// ignoredByID returns the ignored child of parent sharing next's id.
func ignoredByID(parent, next *html.Node) *html.Node {
	id := idOf(next)
	if id == "" {
		return nil
	}
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if idOf(c) == id && PolicyOf(c) == PolicyIgnore {
			return c
		}
	}
	return nil
}

func matches(live, next *html.Node) bool {
	if live.Type != next.Type {
		return false
	}
	if live.Type != html.ElementNode {
		return true
	}
	return sameTag(live, next) && idOf(live) == idOf(next)
}

func sameTag(a, b *html.Node) bool {
	return a.Type == html.ElementNode && b.Type == html.ElementNode &&
		a.Namespace == b.Namespace && a.Data == b.Data
}

func idOf(n *html.Node) string {
	if n.Type != html.ElementNode {
		return ""
	}
	id, _ := dom.Attr(n, "id")
	return id
}

func syncAttrs(live, next *html.Node) {
	if attrsEqual(live.Attr, next.Attr) {
		return
	}
	live.Attr = append([]html.Attribute(nil), next.Attr...)
}

func attrsEqual(a, b []html.Attribute) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func childList(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}
