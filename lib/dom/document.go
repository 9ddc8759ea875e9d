// Package dom models a live page as an x/net/html node tree.
//
// It provides the handful of DOM operations the runtime needs: lookup by id,
// class and input name (XPath via htmlquery), attribute and class helpers,
// innerHTML/outerHTML round-tripping, the document title and a scroll
// position. Nothing here is safe for concurrent use; callers serialize access.
package dom

import (
	"io"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed page plus the bits of browser state the runtime
// touches (title and vertical scroll offset).
type Document struct {
	root    *html.Node
	scrollY int
}

// New wraps an already parsed document or element tree.
func New(root *html.Node) *Document {
	return &Document{root: root}
}

// Parse reads a full HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return New(root), nil
}

// ParseString is Parse for an in-memory document.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// ByID returns the first element with the given id, or nil.
func (d *Document) ByID(id string) *html.Node {
	return FindOne(d.root, "//*[@id="+Literal(id)+"]")
}

// InputsByName returns every <input> whose name attribute equals name,
// in document order.
func (d *Document) InputsByName(name string) []*html.Node {
	return FindAll(d.root, "//input[@name="+Literal(name)+"]")
}

// ByClass returns every element carrying class in its class list.
func (d *Document) ByClass(class string) []*html.Node {
	return ByClass(d.root, class)
}

// Title returns the text of the first <title> element.
func (d *Document) Title() string {
	n := FindOne(d.root, "//title")
	if n == nil {
		return ""
	}
	return htmlquery.InnerText(n)
}

// SetTitle replaces the title text. A missing <title> is created inside
// <head>; a document without <head> is left alone.
func (d *Document) SetTitle(title string) {
	n := FindOne(d.root, "//title")
	if n == nil {
		head := FindOne(d.root, "//head")
		if head == nil {
			return
		}
		n = &html.Node{Type: html.ElementNode, Data: "title", DataAtom: atom.Title}
		head.AppendChild(n)
	}
	SetText(n, title)
}

// ScrollY returns the vertical scroll offset.
func (d *Document) ScrollY() int {
	return d.scrollY
}

// ScrollTo sets the vertical scroll offset.
func (d *Document) ScrollTo(y int) {
	if y < 0 {
		y = 0
	}
	d.scrollY = y
}

// String renders the whole document.
func (d *Document) String() string {
	var sb strings.Builder
	if err := html.Render(&sb, d.root); err != nil {
		return ""
	}
	return sb.String()
}
