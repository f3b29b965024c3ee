package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/Teal-Insights/ccdr-extraction-workflow/internal/content"
)

func testPublication() content.Publication {
	return content.Publication{
		ID:              "pub_001",
		Title:           "Nepal Country Climate & Development Report",
		Authors:         "World Bank Group",
		PublicationDate: "2022-09-01",
		Source:          "World Bank",
		SourceURL:       "https://example.org/ccdr/nepal",
	}
}

func testDocument() content.Document {
	return content.Document{
		ID:            "doc_001",
		PublicationID: "pub_001",
		Type:          content.DocumentMain,
		Description:   "Main report PDF",
	}
}

func buildTree(nodes []*content.Node) *content.Tree {
	return content.NewTree(testDocument(), testPublication(), nodes)
}

func pageRec(page int) content.PositionalRecord {
	return content.PositionalRecord{PagePDF: page, BoundingBox: content.BoundingBox{X1: 0.1, Y1: 0.1, X2: 0.9, Y2: 0.2}}
}

func TestRender_LeafParagraphEscapesText(t *testing.T) {
	tree := buildTree([]*content.Node{
		{ID: "n1", DocumentID: "doc_001", TagName: content.TagP, SequenceInParent: 1,
			Payload: &content.ContentPayload{NodeID: "n1", TextContent: "Fish & chips <tasty>"}},
	})
	out, err := New(tree).Render("n1", false)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "Fish &amp; chips &lt;tasty&gt;") {
		t.Errorf("text not escaped: %q", out)
	}
	if !strings.HasPrefix(out, "<p>") || !strings.HasSuffix(out, "</p>") {
		t.Errorf("expected p wrapper, got %q", out)
	}
}

func TestRender_AnonymousInteriorHasNoWrapper(t *testing.T) {
	tree := buildTree([]*content.Node{
		{ID: "group", DocumentID: "doc_001", SequenceInParent: 1},
		{ID: "a", DocumentID: "doc_001", TagName: content.TagP, ParentID: "group", SequenceInParent: 1,
			Payload: &content.ContentPayload{NodeID: "a", TextContent: "first"}},
		{ID: "b", DocumentID: "doc_001", TagName: content.TagP, ParentID: "group", SequenceInParent: 2,
			Payload: &content.ContentPayload{NodeID: "b", TextContent: "second"}},
	})
	out, err := New(tree).Render("group", false)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(out, "<span") {
		t.Errorf("anonymous interior node must not emit a wrapper: %q", out)
	}
	first := strings.Index(out, "first")
	second := strings.Index(out, "second")
	if first < 0 || second < 0 || first > second {
		t.Errorf("children out of order: %q", out)
	}
}

func TestRender_AnonymousLeafUsesSpan(t *testing.T) {
	tree := buildTree([]*content.Node{
		{ID: "n1", DocumentID: "doc_001", SequenceInParent: 1,
			Payload: &content.ContentPayload{NodeID: "n1", TextContent: "loose text"}},
	})
	out, err := New(tree).Render("n1", false)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "<span>") || !strings.Contains(out, "loose text") {
		t.Errorf("expected span-wrapped text, got %q", out)
	}
}

func TestRender_ImageLeaf(t *testing.T) {
	tree := buildTree([]*content.Node{
		{ID: "img1", DocumentID: "doc_001", TagName: content.TagImg, SequenceInParent: 1,
			Payload: &content.ContentPayload{
				NodeID:      "img1",
				StorageURL:  "s3://bucket/fig3.png",
				Description: "GDP growth by scenario",
				Caption:     "Figure 3: GDP growth",
			}},
	})
	out, err := New(tree).Render("img1", false)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, `src="s3://bucket/fig3.png"`) {
		t.Errorf("missing src: %q", out)
	}
	if !strings.Contains(out, `alt="GDP growth by scenario"`) {
		t.Errorf("missing alt: %q", out)
	}
	if strings.Contains(out, "Figure 3") {
		t.Errorf("caption must never appear as visible text: %q", out)
	}
	if !strings.Contains(out, "/>") {
		t.Errorf("img must self-close: %q", out)
	}
}

func TestRender_ImageWithChildrenStaysVoid(t *testing.T) {
	// A malformed tree may hang children off an img node; the renderer
	// still treats img as a leaf.
	tree := buildTree([]*content.Node{
		{ID: "img1", DocumentID: "doc_001", TagName: content.TagImg, SequenceInParent: 1,
			Payload: &content.ContentPayload{NodeID: "img1", StorageURL: "s3://b/f.png", Description: "chart"}},
		{ID: "stray", DocumentID: "doc_001", TagName: content.TagP, ParentID: "img1", SequenceInParent: 1,
			Payload: &content.ContentPayload{NodeID: "stray", TextContent: "should not appear"}},
	})
	out, err := New(tree).Render("img1", false)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(out, "</img>") {
		t.Errorf("img must never have a closing tag: %q", out)
	}
	if strings.Contains(out, "should not appear") {
		t.Errorf("children of a void element leaked into output: %q", out)
	}
	if !strings.Contains(out, `src="s3://b/f.png"`) {
		t.Errorf("img attributes lost: %q", out)
	}
}

func TestRender_MissingPayloadRendersEmptyBody(t *testing.T) {
	tree := buildTree([]*content.Node{
		{ID: "n1", DocumentID: "doc_001", TagName: content.TagSection, SequenceInParent: 1},
		{ID: "n2", DocumentID: "doc_001", TagName: content.TagP, ParentID: "n1", SequenceInParent: 1},
	})
	out, err := New(tree).Render("n1", false)
	if err != nil {
		t.Fatalf("partial ingestion must not block rendering: %v", err)
	}
	if !strings.Contains(out, "<p>") || !strings.Contains(out, "</p>") {
		t.Errorf("expected empty p element, got %q", out)
	}
}

func TestRender_UnknownNodeIsLookupMiss(t *testing.T) {
	tree := buildTree(nil)
	_, err := New(tree).Render("ghost", true)
	if !errors.Is(err, content.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRender_CitationAttributes(t *testing.T) {
	tree := buildTree([]*content.Node{
		{ID: "sec", DocumentID: "doc_001", TagName: content.TagSection, SequenceInParent: 1},
		{ID: "p1", DocumentID: "doc_001", TagName: content.TagP, ParentID: "sec", SequenceInParent: 1,
			PositionalRecords: []content.PositionalRecord{pageRec(3), pageRec(4)},
			Payload:           &content.ContentPayload{NodeID: "p1", TextContent: "one"}},
		{ID: "p2", DocumentID: "doc_001", TagName: content.TagP, ParentID: "sec", SequenceInParent: 2,
			PositionalRecords: []content.PositionalRecord{pageRec(5), pageRec(9)},
			Payload:           &content.ContentPayload{NodeID: "p2", TextContent: "two"}},
	})
	r := New(tree)

	out, err := r.Render("sec", true)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		`data-publication-authors="World Bank Group"`,
		`data-publication-title="Nepal Country Climate &amp; Development Report"`,
		`data-publication-date="2022-09-01"`,
		`data-publication-source="World Bank"`,
		`data-publication-url="https://example.org/ccdr/nepal"`,
		`data-document-description="Main report PDF"`,
		`data-pages="3-5,9"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in:\n%s", want, out)
		}
	}
	// Leaf elements carry their own page coverage.
	if !strings.Contains(out, `data-pages="3-4"`) {
		t.Errorf("expected leaf data-pages 3-4 in:\n%s", out)
	}

	// Provenance stays at the top level.
	if strings.Count(out, "data-publication-title") != 1 {
		t.Errorf("publication attributes must appear once, at top level:\n%s", out)
	}

	plain, err := r.Render("sec", false)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(plain, "data-pages") || strings.Contains(plain, "data-publication") {
		t.Errorf("citation attributes leaked with citations off:\n%s", plain)
	}
}

func TestRender_IsIdempotentUnderPrettify(t *testing.T) {
	tree := buildTree([]*content.Node{
		{ID: "sec", DocumentID: "doc_001", TagName: content.TagSection, SequenceInParent: 1},
		{ID: "t", DocumentID: "doc_001", TagName: content.TagTable, ParentID: "sec", SequenceInParent: 1},
		{ID: "row", DocumentID: "doc_001", TagName: content.TagTr, ParentID: "t", SequenceInParent: 1},
		{ID: "cell", DocumentID: "doc_001", TagName: content.TagTd, ParentID: "row", SequenceInParent: 1,
			Payload: &content.ContentPayload{NodeID: "cell", TextContent: "42 & counting"}},
		{ID: "pic", DocumentID: "doc_001", TagName: content.TagImg, ParentID: "sec", SequenceInParent: 2,
			Payload: &content.ContentPayload{NodeID: "pic", StorageURL: "s3://b/i.png", Description: "chart"}},
	})
	out, err := New(tree).Render("sec", true)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	once := Prettify(out)
	if once != out {
		t.Errorf("render output should already be pretty:\n%q\nvs\n%q", out, once)
	}
	if twice := Prettify(once); twice != once {
		t.Errorf("prettify not idempotent:\n%q\nvs\n%q", once, twice)
	}
}

func TestPrettify_PreservesTableFragments(t *testing.T) {
	in := `<td data-pages="2">cell</td>`
	out := Prettify(in)
	if !strings.Contains(out, "<td") || !strings.Contains(out, "</td>") {
		t.Fatalf("td fragment lost: %q", out)
	}
	if Prettify(out) != out {
		t.Errorf("prettify not idempotent on fragment: %q", out)
	}
}

func TestPrettify_CollapsesWhitespace(t *testing.T) {
	in := "<p>\n   spaced    out\t text </p>"
	out := Prettify(in)
	if !strings.Contains(out, "spaced out text") {
		t.Errorf("whitespace not collapsed: %q", out)
	}
}
