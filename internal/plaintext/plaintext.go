// Package plaintext turns model markdown into text that reads well in a
// Telegram message sent without a parse mode.
package plaintext

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	gmtext "github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

const (
	bullet = "• "
	indent = "  "
)

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.Strikethrough, extension.Table))

	invisibleReplacer = strings.NewReplacer(
		"\u200B", "", "\u200C", "", "\u200D", "", "\u2060", "",
		"\uFEFF", "", "\u00AD", "", "\u180E", "",
		"\u202A", "", "\u202B", "", "\u202C", "", "\u202D", "", "\u202E", "",
		"\u2028", "\n", "\u2029", "\n\n",
	)
)

// FromMarkdown strips markdown markup, raw HTML, invisible characters and
// control characters from s. Blocks are separated by a single blank line,
// unordered list items get a bullet and code block contents are kept
// verbatim.
func FromMarkdown(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = invisibleReplacer.Replace(s)
	s = strings.Map(func(r rune) rune {
		if r != '\n' && r != '\t' && unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)

	src := []byte(s)
	doc := markdown.Parser().Parse(gmtext.NewReader(src))
	r := &renderer{src: src}
	return tidy(r.block(doc, 0))
}

type renderer struct {
	src []byte
}

// block renders a block node, indenting nested lists by depth.
func (r *renderer) block(n ast.Node, depth int) string {
	switch n := n.(type) {
	case *ast.Heading, *ast.Paragraph, *ast.TextBlock:
		return r.inline(n)
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		return r.code(n)
	case *ast.List:
		return r.list(n, depth)
	case *east.Table:
		return r.table(n)
	case *ast.ThematicBreak, *ast.HTMLBlock:
		return ""
	}

	if fc := n.FirstChild(); fc != nil && fc.Type() == ast.TypeInline {
		return r.inline(n)
	}
	var parts []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if s := r.block(c, depth); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

func (r *renderer) code(n ast.Node) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(r.src))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (r *renderer) list(l *ast.List, depth int) string {
	pad := strings.Repeat(indent, depth)
	num := l.Start
	var lines []string
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		marker := bullet
		if l.IsOrdered() {
			marker = strconv.Itoa(num) + ". "
			num++
		}

		first := true
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if sub, ok := c.(*ast.List); ok {
				lines = append(lines, r.list(sub, depth+1))
				continue
			}
			s := r.block(c, depth+1)
			if s == "" {
				continue
			}
			for _, line := range strings.Split(s, "\n") {
				if first {
					lines = append(lines, pad+marker+line)
					first = false
					continue
				}
				lines = append(lines, pad+indent+line)
			}
		}
	}
	return strings.Join(lines, "\n")
}

// table renders one line per row with cells separated by a space.
func (r *renderer) table(t *east.Table) string {
	var rows []string
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			if c := strings.TrimSpace(r.inline(cell)); c != "" {
				cells = append(cells, c)
			}
		}
		if len(cells) > 0 {
			rows = append(rows, strings.Join(cells, " "))
		}
	}
	return strings.Join(rows, "\n")
}

// inline renders the inline children of n.
func (r *renderer) inline(n ast.Node) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		_ = ast.Walk(c, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
			if !entering {
				return ast.WalkContinue, nil
			}
			switch n := n.(type) {
			case *ast.Text:
				b.Write(unescape(n.Segment.Value(r.src)))
				if n.SoftLineBreak() || n.HardLineBreak() {
					b.WriteByte('\n')
				}
			case *ast.String:
				b.Write(n.Value)
			case *ast.CodeSpan:
				b.WriteString(r.codeSpan(n))
				return ast.WalkSkipChildren, nil
			case *ast.Link:
				b.WriteString(linkText(r.inline(n), string(n.Destination)))
				return ast.WalkSkipChildren, nil
			case *ast.AutoLink:
				b.Write(n.URL(r.src))
				return ast.WalkSkipChildren, nil
			case *ast.Image:
				b.WriteString(r.inline(n))
				return ast.WalkSkipChildren, nil
			case *ast.RawHTML:
				return ast.WalkSkipChildren, nil
			}
			return ast.WalkContinue, nil
		})
	}
	return b.String()
}

func (r *renderer) codeSpan(n *ast.CodeSpan) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(r.src))
		case *ast.String:
			b.Write(c.Value)
		}
	}
	return strings.ReplaceAll(b.String(), "\n", " ")
}

func linkText(label, dest string) string {
	label = strings.TrimSpace(label)
	if label == "" || label == dest {
		return dest
	}
	if dest == "" {
		return label
	}
	return label + " (" + dest + ")"
}

func unescape(v []byte) []byte {
	return util.ResolveEntityNames(util.ResolveNumericReferences(util.UnescapePunctuations(v)))
}

// tidy trims line ends and collapses blank runs to one blank line.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	blank := 0
	for _, l := range lines {
		l = strings.TrimRightFunc(l, unicode.IsSpace)
		if l == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
