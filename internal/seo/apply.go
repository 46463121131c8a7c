package seo

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Apply parses an HTML document, replays the operations against its head
// and renders the result. Documents without a head are left untouched.
func Apply(r io.Reader, ops []PatchOp, w io.Writer) error {
	doc, err := html.Parse(r)
	if err != nil {
		return fmt.Errorf("seo: parse document: %w", err)
	}

	head := findElement(doc, atom.Head)
	if head != nil {
		for _, op := range ops {
			applyOp(head, op)
		}
	}

	if err := html.Render(w, doc); err != nil {
		return fmt.Errorf("seo: render document: %w", err)
	}
	return nil
}

// ApplyString is Apply over in-memory documents.
func ApplyString(doc string, ops []PatchOp) (string, error) {
	var out strings.Builder
	if err := Apply(strings.NewReader(doc), ops, &out); err != nil {
		return "", err
	}
	return out.String(), nil
}

func applyOp(head *html.Node, op PatchOp) {
	switch op.Op {
	case OpSet:
		removeMatches(head, op)
		appendElement(head, op)
	case OpRemove:
		removeMatches(head, op)
	case OpAppend:
		appendElement(head, op)
	}
}

func removeMatches(head *html.Node, op PatchOp) {
	var doomed []*html.Node
	for child := head.FirstChild; child != nil; child = child.NextSibling {
		if matchesTarget(child, op) {
			doomed = append(doomed, child)
		}
	}
	for _, node := range doomed {
		head.RemoveChild(node)
	}
}

func matchesTarget(node *html.Node, op PatchOp) bool {
	if node.Type != html.ElementNode {
		return false
	}
	switch op.Target {
	case TargetTitle:
		return node.DataAtom == atom.Title
	case TargetMetaName:
		return node.DataAtom == atom.Meta && attrValue(node, "name") == op.Key
	case TargetMetaProperty:
		return node.DataAtom == atom.Meta && attrValue(node, "property") == op.Key
	case TargetCanonical:
		return node.DataAtom == atom.Link && attrValue(node, "rel") == "canonical"
	case TargetHreflang:
		if node.DataAtom != atom.Link || attrValue(node, "rel") != "alternate" {
			return false
		}
		// A remove without a key clears every alternate link.
		return op.Key == "" || attrValue(node, "hreflang") == op.Key
	case TargetJSONLD:
		return node.DataAtom == atom.Script && attrValue(node, "type") == "application/ld+json"
	}
	return false
}

func appendElement(head *html.Node, op PatchOp) {
	var node *html.Node
	switch op.Target {
	case TargetTitle:
		node = &html.Node{Type: html.ElementNode, DataAtom: atom.Title, Data: "title"}
		node.AppendChild(&html.Node{Type: html.TextNode, Data: op.Value})
	case TargetMetaName:
		node = metaNode("name", op.Key, op.Value)
	case TargetMetaProperty:
		node = metaNode("property", op.Key, op.Value)
	case TargetCanonical:
		node = &html.Node{Type: html.ElementNode, DataAtom: atom.Link, Data: "link", Attr: []html.Attribute{
			{Key: "rel", Val: "canonical"},
			{Key: "href", Val: op.Value},
		}}
	case TargetHreflang:
		node = &html.Node{Type: html.ElementNode, DataAtom: atom.Link, Data: "link", Attr: []html.Attribute{
			{Key: "rel", Val: "alternate"},
			{Key: "hreflang", Val: op.Key},
			{Key: "href", Val: op.Value},
		}}
	case TargetJSONLD:
		node = &html.Node{Type: html.ElementNode, DataAtom: atom.Script, Data: "script", Attr: []html.Attribute{
			{Key: "type", Val: "application/ld+json"},
		}}
		node.AppendChild(&html.Node{Type: html.TextNode, Data: op.Value})
	default:
		return
	}
	head.AppendChild(node)
}

func metaNode(attr string, key string, value string) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: atom.Meta, Data: "meta", Attr: []html.Attribute{
		{Key: attr, Val: key},
		{Key: "content", Val: value},
	}}
}

func attrValue(node *html.Node, key string) string {
	for _, attr := range node.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func findElement(node *html.Node, target atom.Atom) *html.Node {
	if node.Type == html.ElementNode && node.DataAtom == target {
		return node
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, target); found != nil {
			return found
		}
	}
	return nil
}
