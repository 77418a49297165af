// Package markdown flattens model-generated markdown into the plain text
// YouTube comments accept.
package markdown

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// Flattener converts markdown to plain text.
type Flattener struct {
	md goldmark.Markdown
}

// NewFlattener creates a Flattener with GitHub Flavored Markdown enabled.
func NewFlattener() *Flattener {
	return &Flattener{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM, // Table, Strikethrough, TaskList, Linkify
			),
		),
	}
}

// PlainText strips markup and keeps the visible text, link targets and
// paragraph structure.
func (f *Flattener) PlainText(source string) string {
	src := []byte(source)
	doc := f.md.Parser().Parse(text.NewReader(src))

	var buf bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			return enter(&buf, n, src), nil
		}
		exit(&buf, n, src)
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}

func enter(buf *bytes.Buffer, n ast.Node, src []byte) ast.WalkStatus {
	switch node := n.(type) {
	case *ast.Text:
		buf.Write(node.Segment.Value(src))
		if node.SoftLineBreak() || node.HardLineBreak() {
			buf.WriteByte('\n')
		}
	case *ast.String:
		buf.Write(node.Value)
	case *ast.AutoLink:
		buf.Write(node.URL(src))
		return ast.WalkSkipChildren
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		trimTrailingNewline(buf)
		return ast.WalkSkipChildren
	case *ast.RawHTML, *ast.HTMLBlock, *east.TaskCheckBox:
		return ast.WalkSkipChildren
	case *ast.ListItem:
		buf.WriteString(bullet(node))
	}
	return ast.WalkContinue
}

func exit(buf *bytes.Buffer, n ast.Node, src []byte) {
	if link, ok := n.(*ast.Link); ok {
		dest := string(link.Destination)
		if dest != "" && dest != linkText(link, src) {
			buf.WriteString(" (" + dest + ")")
		}
		return
	}

	switch n.Kind() {
	case east.KindTableCell:
		if n.NextSibling() != nil {
			buf.WriteString(" | ")
		}
		return
	case east.KindTableRow, east.KindTableHeader:
		buf.WriteByte('\n')
		return
	}

	if n.Type() != ast.TypeBlock || n.NextSibling() == nil {
		return
	}
	trimTrailingNewline(buf)
	switch n.Kind() {
	case ast.KindListItem, ast.KindTextBlock:
		buf.WriteByte('\n')
	default:
		buf.WriteString("\n\n")
	}
}

func bullet(item *ast.ListItem) string {
	list, ok := item.Parent().(*ast.List)
	if !ok || !list.IsOrdered() {
		return "- "
	}
	idx := list.Start
	for sib := item.PreviousSibling(); sib != nil; sib = sib.PreviousSibling() {
		idx++
	}
	return strconv.Itoa(idx) + ". "
}

func linkText(link *ast.Link, src []byte) string {
	var sb strings.Builder
	for c := link.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			sb.Write(t.Segment.Value(src))
		}
	}
	return sb.String()
}

func trimTrailingNewline(buf *bytes.Buffer) {
	for buf.Len() > 0 && buf.Bytes()[buf.Len()-1] == '\n' {
		buf.Truncate(buf.Len() - 1)
	}
}
