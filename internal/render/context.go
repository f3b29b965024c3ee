package render

import "github.com/Teal-Insights/ccdr-extraction-workflow/internal/content"

// directContainers render themselves: they are already meaningful citation
// units, so no ancestor search happens.
var directContainers = map[content.TagName]bool{
	content.TagSection: true,
	content.TagAside:   true,
	content.TagNav:     true,
	content.TagFigure:  true,
	content.TagTable:   true,
	content.TagUl:      true,
	content.TagOl:      true,
}

// containerPreference maps a node's tag to the ordered list of ancestor tags
// worth expanding to. The lists are editorial policy, tunable without
// touching the walk below; first match wins.
var containerPreference = map[content.TagName][]content.TagName{
	content.TagTd:      tableCellPreference,
	content.TagTh:      tableCellPreference,
	content.TagTr:      tableCellPreference,
	content.TagThead:   tableCellPreference,
	content.TagTbody:   tableCellPreference,
	content.TagTfoot:   tableCellPreference,
	content.TagCaption: tableCellPreference,

	content.TagFigcaption: figurePartPreference,
	content.TagImg:        figurePartPreference,

	content.TagLi: listItemPreference,
}

var (
	tableCellPreference = []content.TagName{
		content.TagTable, content.TagSection, content.TagMain,
		content.TagHeader, content.TagFooter,
	}
	figurePartPreference = []content.TagName{
		content.TagFigure, content.TagSection, content.TagMain,
		content.TagHeader, content.TagFooter,
	}
	listItemPreference = []content.TagName{
		content.TagUl, content.TagOl, content.TagSection, content.TagMain,
		content.TagHeader, content.TagFooter,
	}
	defaultPreference = []content.TagName{
		content.TagFigure, content.TagTable, content.TagSection,
		content.TagAside, content.TagNav, content.TagMain,
		content.TagHeader, content.TagFooter,
	}
)

// NearestAncestorWithTag walks strictly upward, starting at the node's
// parent, and returns the first ancestor whose tag is in the requested set.
// The node itself is never a candidate. Returns nil when the root is reached
// without a match.
func NearestAncestorWithTag(tree *content.Tree, n *content.Node, tags []content.TagName) *content.Node {
	wanted := make(map[content.TagName]bool, len(tags))
	for _, t := range tags {
		wanted[t] = true
	}
	for anc := tree.Parent(n); anc != nil; anc = tree.Parent(anc) {
		if anc.TagName != "" && wanted[anc.TagName] {
			return anc
		}
	}
	return nil
}

// RenderContext renders the smallest enclosing container suitable for citing
// the given node: the node itself when it already is a direct container, the
// nearest preferred ancestor otherwise, or the bare node when no ancestor
// qualifies.
func (r *Renderer) RenderContext(nodeID string, citations bool) (string, error) {
	n, ok := r.tree.Node(nodeID)
	if !ok {
		return "", content.ErrNotFound
	}
	if directContainers[n.TagName] {
		return r.Render(nodeID, citations)
	}
	prefs, ok := containerPreference[n.TagName]
	if !ok {
		prefs = defaultPreference
	}
	return r.renderContainingParent(n, prefs, citations)
}

// renderContainingParent renders the nearest ancestor matching the
// preference list, falling back to the node itself.
func (r *Renderer) renderContainingParent(n *content.Node, prefs []content.TagName, citations bool) (string, error) {
	if anc := NearestAncestorWithTag(r.tree, n, prefs); anc != nil {
		return r.Render(anc.ID, citations)
	}
	return r.Render(n.ID, citations)
}
