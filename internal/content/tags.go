package content

// TagName is the structural vocabulary for content nodes. It mirrors the HTML
// elements the extraction stage is allowed to emit; the empty string marks an
// anonymous grouping node with no wrapper of its own.
type TagName string

const (
	TagHeader     TagName = "header"
	TagMain       TagName = "main"
	TagFooter     TagName = "footer"
	TagFigure     TagName = "figure"
	TagFigcaption TagName = "figcaption"
	TagTable      TagName = "table"
	TagThead      TagName = "thead"
	TagTbody      TagName = "tbody"
	TagTfoot      TagName = "tfoot"
	TagTh         TagName = "th"
	TagTr         TagName = "tr"
	TagTd         TagName = "td"
	TagCaption    TagName = "caption"
	TagSection    TagName = "section"
	TagNav        TagName = "nav"
	TagAside      TagName = "aside"
	TagP          TagName = "p"
	TagUl         TagName = "ul"
	TagOl         TagName = "ol"
	TagLi         TagName = "li"
	TagH1         TagName = "h1"
	TagH2         TagName = "h2"
	TagH3         TagName = "h3"
	TagH4         TagName = "h4"
	TagH5         TagName = "h5"
	TagH6         TagName = "h6"
	TagImg        TagName = "img"
	TagMath       TagName = "math"
	TagCode       TagName = "code"
	TagCite       TagName = "cite"
	TagBlockquote TagName = "blockquote"
)

var validTags = map[TagName]bool{
	TagHeader: true, TagMain: true, TagFooter: true,
	TagFigure: true, TagFigcaption: true,
	TagTable: true, TagThead: true, TagTbody: true, TagTfoot: true,
	TagTh: true, TagTr: true, TagTd: true, TagCaption: true,
	TagSection: true, TagNav: true, TagAside: true,
	TagP: true, TagUl: true, TagOl: true, TagLi: true,
	TagH1: true, TagH2: true, TagH3: true, TagH4: true, TagH5: true, TagH6: true,
	TagImg: true, TagMath: true, TagCode: true, TagCite: true, TagBlockquote: true,
}

// Valid reports whether t is in the closed vocabulary. The empty tag
// (anonymous node) is valid.
func (t TagName) Valid() bool {
	return t == "" || validTags[t]
}

// CanCarryMedia reports whether a node with this tag may hold a non-empty
// description or caption on its payload.
func (t TagName) CanCarryMedia() bool {
	return t == TagImg || t == TagTable
}

// SectionType classifies what role a subtree plays in the publication. It is
// orthogonal to TagName: a "chapter" may be a section element, an "appendix"
// may be an anonymous group.
type SectionType string

const (
	SectionAbstract         SectionType = "abstract"
	SectionExecutiveSummary SectionType = "executive_summary"
	SectionChapter          SectionType = "chapter"
	SectionSection          SectionType = "section"
	SectionAppendix         SectionType = "appendix"
	SectionTableOfContents  SectionType = "table_of_contents"
	SectionAcknowledgments  SectionType = "acknowledgments"
	SectionReferences       SectionType = "references"
	SectionFootnotes        SectionType = "footnotes"
	SectionIndex            SectionType = "index"
	SectionListOfFigures    SectionType = "list_of_figures"
	SectionListOfTables     SectionType = "list_of_tables"
	SectionListOfBoxes      SectionType = "list_of_boxes"
	SectionCopyrightPage    SectionType = "copyright_page"
	SectionTitlePage        SectionType = "title_page"
	SectionTextBox          SectionType = "text_box"
)

var validSectionTypes = map[SectionType]bool{
	SectionAbstract: true, SectionExecutiveSummary: true, SectionChapter: true,
	SectionSection: true, SectionAppendix: true, SectionTableOfContents: true,
	SectionAcknowledgments: true, SectionReferences: true, SectionFootnotes: true,
	SectionIndex: true, SectionListOfFigures: true, SectionListOfTables: true,
	SectionListOfBoxes: true, SectionCopyrightPage: true, SectionTitlePage: true,
	SectionTextBox: true,
}

// Valid reports whether s is in the closed vocabulary; empty means unclassified.
func (s SectionType) Valid() bool {
	return s == "" || validSectionTypes[s]
}
