// Package render rebuilds HTML from a document's content tree and resolves
// the nearest meaningful container around a node for citation snippets. All
// operations are read-only against a Tree snapshot and safe for concurrent
// use.
package render

import (
	"html"
	"strings"

	"github.com/Teal-Insights/ccdr-extraction-workflow/internal/content"
)

// Renderer reconstructs markup from one document's tree snapshot.
type Renderer struct {
	tree *content.Tree
}

// New returns a renderer over the given snapshot.
func New(tree *content.Tree) *Renderer {
	return &Renderer{tree: tree}
}

// Render produces pretty-printed HTML for the subtree rooted at nodeID.
// When citations is true the top-level element carries publication
// provenance attributes and every element whose subtree touched a page
// carries a range-compressed data-pages attribute. An unknown id returns
// content.ErrNotFound.
func (r *Renderer) Render(nodeID string, citations bool) (string, error) {
	n, ok := r.tree.Node(nodeID)
	if !ok {
		return "", content.ErrNotFound
	}
	markup, _ := r.renderNode(n, citations, true)
	return Prettify(markup), nil
}

type attr struct {
	key   string
	value string
}

// renderNode walks depth-first in sibling order and returns the node's
// markup plus every page its subtree touched.
func (r *Renderer) renderNode(n *content.Node, citations, topLevel bool) (string, []int) {
	pages := n.Pages()

	// img is a void element: always a leaf, any children are ignored.
	children := r.tree.Children(n.ID)
	if len(children) > 0 && n.TagName != content.TagImg {
		parts := make([]string, 0, len(children))
		for _, child := range children {
			childMarkup, childPages := r.renderNode(child, citations, false)
			parts = append(parts, childMarkup)
			pages = append(pages, childPages...)
		}
		body := strings.Join(parts, "\n")
		if n.TagName == "" {
			// Anonymous grouping node: children only, no wrapper.
			return body, pages
		}
		attrs := r.citationAttrs(n, citations, topLevel, pages)
		return openTag(string(n.TagName), attrs) + body + "</" + string(n.TagName) + ">", pages
	}

	attrs := r.citationAttrs(n, citations, topLevel, pages)

	if n.TagName == content.TagImg {
		// Captions are citation metadata, never visible text.
		var src, alt string
		if n.Payload != nil {
			src = n.Payload.StorageURL
			alt = n.Payload.Description
		}
		imgAttrs := []attr{{"src", src}, {"alt", alt}}
		imgAttrs = append(imgAttrs, attrs...)
		return selfClosingTag("img", imgAttrs), pages
	}

	// A node ingested without its payload renders as an empty body rather
	// than failing the subtree.
	var text string
	if n.Payload != nil {
		text = html.EscapeString(n.Payload.TextContent)
	}
	tag := string(n.TagName)
	if tag == "" {
		tag = "span"
	}
	return openTag(tag, attrs) + text + "</" + tag + ">", pages
}

// citationAttrs assembles the attribute list for one element. Publication
// provenance appears only on the top-level element and only when it has a
// tag to carry it; data-pages appears at any depth with page coverage.
func (r *Renderer) citationAttrs(n *content.Node, citations, topLevel bool, pages []int) []attr {
	if !citations {
		return nil
	}
	var attrs []attr
	if topLevel && n.TagName != "" {
		pub := r.tree.Publication
		for _, a := range []attr{
			{"data-publication-authors", pub.Authors},
			{"data-publication-title", pub.Title},
			{"data-publication-date", pub.PublicationDate},
			{"data-publication-source", pub.Source},
			{"data-publication-url", pub.SourceURL},
			{"data-document-description", r.tree.Document.Description},
		} {
			if a.value != "" {
				attrs = append(attrs, a)
			}
		}
	}
	if ranges := content.PagesToRanges(pages); ranges != "" {
		attrs = append(attrs, attr{"data-pages", ranges})
	}
	return attrs
}

func openTag(name string, attrs []attr) string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(name)
	writeAttrs(&b, attrs)
	b.WriteByte('>')
	return b.String()
}

func selfClosingTag(name string, attrs []attr) string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(name)
	writeAttrs(&b, attrs)
	b.WriteString("/>")
	return b.String()
}

func writeAttrs(b *strings.Builder, attrs []attr) {
	for _, a := range attrs {
		b.WriteByte(' ')
		b.WriteString(a.key)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(a.value))
		b.WriteByte('"')
	}
}
