package render

import (
	"html"
	"strings"

	xhtml "golang.org/x/net/html"
)

var voidElements = map[string]bool{
	"img": true,
	"br":  true,
	"hr":  true,
}

// Prettify re-indents an HTML fragment deterministically: every tag and
// every text run on its own line, two-space indentation, whitespace in text
// collapsed. The token stream is preserved as-is, so table fragments (td, tr)
// survive without a document context. Prettifying already-pretty output is a
// no-op.
func Prettify(markup string) string {
	z := xhtml.NewTokenizer(strings.NewReader(markup))
	var b strings.Builder
	depth := 0

	for {
		switch z.Next() {
		case xhtml.ErrorToken:
			return strings.TrimRight(b.String(), "\n")

		case xhtml.TextToken:
			text := strings.Join(strings.Fields(z.Token().Data), " ")
			if text == "" {
				continue // indentation from a previous pass
			}
			writeIndent(&b, depth)
			b.WriteString(html.EscapeString(text))
			b.WriteByte('\n')

		case xhtml.StartTagToken:
			tok := z.Token()
			writeIndent(&b, depth)
			writeTag(&b, tok, voidElements[tok.Data])
			b.WriteByte('\n')
			if !voidElements[tok.Data] {
				depth++
			}

		case xhtml.SelfClosingTagToken:
			tok := z.Token()
			writeIndent(&b, depth)
			writeTag(&b, tok, true)
			b.WriteByte('\n')

		case xhtml.EndTagToken:
			tok := z.Token()
			if depth > 0 {
				depth--
			}
			writeIndent(&b, depth)
			b.WriteString("</")
			b.WriteString(tok.Data)
			b.WriteString(">\n")
		}
	}
}

func writeIndent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
}

func writeTag(b *strings.Builder, tok xhtml.Token, selfClose bool) {
	b.WriteByte('<')
	b.WriteString(tok.Data)
	for _, a := range tok.Attr {
		b.WriteByte(' ')
		b.WriteString(a.Key)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(a.Val))
		b.WriteByte('"')
	}
	if selfClose {
		b.WriteString("/>")
	} else {
		b.WriteByte('>')
	}
}
