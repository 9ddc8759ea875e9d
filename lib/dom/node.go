package dom

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// FindOne returns the first node matching expr under top, or nil.
// An invalid expression is treated as no match.
func FindOne(top *html.Node, expr string) *html.Node {
	if top == nil {
		return nil
	}
	n, err := htmlquery.Query(top, expr)
	if err != nil {
		return nil
	}
	return n
}

// FindAll returns every node matching expr under top.
// An invalid expression is treated as no match.
func FindAll(top *html.Node, expr string) []*html.Node {
	if top == nil {
		return nil
	}
	nodes, err := htmlquery.QueryAll(top, expr)
	if err != nil {
		return nil
	}
	return nodes
}

// ByClass returns the elements under top (top included) carrying class.
func ByClass(top *html.Node, class string) []*html.Node {
	return FindAll(top, "descendant-or-self::*[contains(concat(' ', normalize-space(@class), ' '), "+Literal(" "+class+" ")+")]")
}

// WithAttr returns the elements under top (top included) that carry key.
func WithAttr(top *html.Node, key string) []*html.Node {
	return FindAll(top, "descendant-or-self::*[@"+key+"]")
}

// Literal quotes s as an XPath string literal.
func Literal(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	var sb strings.Builder
	sb.WriteString("concat(")
	for i, p := range parts {
		if i > 0 {
			sb.WriteString(`, "'", `)
		}
		sb.WriteString("'" + p + "'")
	}
	sb.WriteString(")")
	return sb.String()
}

// Attr returns the value of key on n.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets key on n, replacing an existing value.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes key from n.
func RemoveAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

// HasClass reports whether class is in n's class list.
func HasClass(n *html.Node, class string) bool {
	v, _ := Attr(n, "class")
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// AddClass appends class to n's class list when missing.
func AddClass(n *html.Node, class string) {
	if HasClass(n, class) {
		return
	}
	v, _ := Attr(n, "class")
	SetAttr(n, "class", strings.TrimSpace(v+" "+class))
}

// RemoveClass drops class from n's class list. The attribute is kept even
// when it ends up empty.
func RemoveClass(n *html.Node, class string) {
	v, ok := Attr(n, "class")
	if !ok {
		return
	}
	fields := strings.Fields(v)
	kept := fields[:0]
	for _, c := range fields {
		if c != class {
			kept = append(kept, c)
		}
	}
	SetAttr(n, "class", strings.Join(kept, " "))
}

// Remove detaches n from its parent. It reports false when n was already
// detached.
func Remove(n *html.Node) bool {
	if n == nil || n.Parent == nil {
		return false
	}
	n.Parent.RemoveChild(n)
	return true
}

// Text returns the concatenated text content of n.
func Text(n *html.Node) string {
	return htmlquery.InnerText(n)
}

// SetText replaces n's children with a single text node.
func SetText(n *html.Node, s string) {
	ReplaceChildren(n, []*html.Node{{Type: html.TextNode, Data: s}})
}

// InnerHTML renders n's children.
func InnerHTML(n *html.Node) string {
	return htmlquery.OutputHTML(n, false)
}

// OuterHTML renders n itself.
func OuterHTML(n *html.Node) string {
	return htmlquery.OutputHTML(n, true)
}

// ParseFragment parses markup as the content of context. A nil context
// parses as <body> content. The returned nodes are detached.
func ParseFragment(markup string, context *html.Node) ([]*html.Node, error) {
	if context == nil || context.Type != html.ElementNode {
		context = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	}
	return html.ParseFragment(strings.NewReader(markup), context)
}

// ReplaceChildren detaches n's children and appends nodes in order.
func ReplaceChildren(n *html.Node, nodes []*html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	for _, c := range nodes {
		Remove(c)
		n.AppendChild(c)
	}
}

// SetInnerHTML replaces n's children with the parsed markup.
func SetInnerHTML(n *html.Node, markup string) error {
	nodes, err := ParseFragment(markup, n)
	if err != nil {
		return err
	}
	ReplaceChildren(n, nodes)
	return nil
}

// AppendHTML parses markup and appends it after n's last child.
func AppendHTML(n *html.Node, markup string) ([]*html.Node, error) {
	nodes, err := ParseFragment(markup, n)
	if err != nil {
		return nil, err
	}
	for _, c := range nodes {
		n.AppendChild(c)
	}
	return nodes, nil
}

// PrependHTML parses markup and inserts it before n's first child.
func PrependHTML(n *html.Node, markup string) ([]*html.Node, error) {
	nodes, err := ParseFragment(markup, n)
	if err != nil {
		return nil, err
	}
	first := n.FirstChild
	for _, c := range nodes {
		n.InsertBefore(c, first)
	}
	return nodes, nil
}

// IsElement reports whether n is an element node.
func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// Elements filters nodes down to element nodes.
func Elements(nodes []*html.Node) []*html.Node {
	var out []*html.Node
	for _, n := range nodes {
		if IsElement(n) {
			out = append(out, n)
		}
	}
	return out
}
