// Package page holds the live HTML document that fragment swaps write into.
// Regions are elements addressed by their id attribute.
package page

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/fixkme/grouprefresh/errs"
)

// Document is safe for concurrent use.
type Document struct {
	mu        sync.Mutex
	root      *html.Node
	observers []func(id string)
}

// Mark is an element carrying a scanned attribute.
type Mark struct {
	ID    string
	Value string
}

func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Document{root: root}, nil
}

func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// OnSwap registers f to run after every SetInnerHTML, outside the lock.
func (d *Document) OnSwap(f func(id string)) {
	d.mu.Lock()
	d.observers = append(d.observers, f)
	d.mu.Unlock()
}

func (d *Document) HasRegion(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return findByID(d.root, id) != nil
}

func (d *Document) InnerHTML(id string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := findByID(d.root, id)
	if n == nil {
		return "", false
	}
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", false
		}
	}
	return buf.String(), true
}

// SetInnerHTML replaces the children of region id with the parsed fragment.
func (d *Document) SetInnerHTML(id, fragment string) error {
	d.mu.Lock()
	n := findByID(d.root, id)
	if n == nil {
		d.mu.Unlock()
		return errs.RegionMissing.Printf("%s", id)
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), n)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	removeChildren(n)
	for _, c := range nodes {
		n.AppendChild(c)
	}
	observers := append([]func(string){}, d.observers...)
	d.mu.Unlock()

	for _, f := range observers {
		f(id)
	}
	return nil
}

// Text returns the concatenated text content of element id.
func (d *Document) Text(id string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := findByID(d.root, id)
	if n == nil {
		return "", false
	}
	var sb strings.Builder
	collectText(n, &sb)
	return sb.String(), true
}

// SetText replaces the children of element id with a single text node.
// It does not notify swap observers.
func (d *Document) SetText(id, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := findByID(d.root, id)
	if n == nil {
		return errs.RegionMissing.Printf("%s", id)
	}
	removeChildren(n)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return nil
}

// Scan lists the elements inside region (the whole document when region is
// empty) that carry attr. Elements without an id get a generated one so the
// caller can address them later.
func (d *Document) Scan(region, attr string) []Mark {
	d.mu.Lock()
	defer d.mu.Unlock()
	scope := d.root
	if region != "" {
		if scope = findByID(d.root, region); scope == nil {
			return nil
		}
	}
	var marks []Mark
	walk(scope, func(n *html.Node) bool {
		if n == scope || n.Type != html.ElementNode {
			return true
		}
		v, ok := getAttr(n, attr)
		if !ok {
			return true
		}
		id, _ := getAttr(n, "id")
		if id == "" {
			id = "gr-" + uuid.NewString()
			n.Attr = append(n.Attr, html.Attribute{Key: "id", Val: id})
		}
		marks = append(marks, Mark{ID: id, Value: v})
		return true
	})
	return marks
}

// Contains reports whether element id sits inside region.
func (d *Document) Contains(region, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	scope := findByID(d.root, region)
	if scope == nil {
		return false
	}
	n := findByID(scope, id)
	return n != nil && n != scope
}

func (d *Document) Render() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return ""
	}
	return buf.String()
}

func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

func findByID(root *html.Node, id string) *html.Node {
	if id == "" {
		return nil
	}
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			if v, ok := getAttr(n, "id"); ok && v == id {
				found = n
				return false
			}
		}
		return true
	})
	return found
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func removeChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}
