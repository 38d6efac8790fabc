package scraper

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document — разобранная HTML-страница.
type Document struct {
	root *html.Node
}

// ParseHTML разбирает HTML-документ.
func ParseHTML(doc []byte) (*Document, error) {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{root: root}, nil
}

// Tables возвращает все таблицы документа в порядке появления.
func (d *Document) Tables() []Table {
	var tables []Table
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Table {
			tables = append(tables, readTable(n))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	return tables
}

// Text возвращает текст страницы: непустые фрагменты через перевод строки.
func (d *Document) Text() string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return
		}
		if n.Type == html.TextNode {
			if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	return strings.Join(parts, "\n")
}

func readTable(table *html.Node) Table {
	var t Table
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Table:
				// вложенные таблицы разбираются отдельно
				continue
			case atom.Tr:
				t.Rows = append(t.Rows, readRow(c))
			default:
				walk(c)
			}
		}
	}
	walk(table)
	return t
}

func readRow(tr *html.Node) Row {
	var row Row
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.DataAtom != atom.Td && c.DataAtom != atom.Th) {
			continue
		}
		row.Cells = append(row.Cells, Cell{
			Text:    cellText(c),
			RowSpan: spanAttr(c, "rowspan", true),
			ColSpan: spanAttr(c, "colspan", false),
		})
	}
	return row
}

func cellText(n *html.Node) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}

func spanAttr(n *html.Node, name string, allowZero bool) int {
	for _, a := range n.Attr {
		if a.Key != name {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(a.Val))
		if err != nil || v < 0 {
			return 1
		}
		if v == 0 {
			if allowZero {
				return RowSpanToEnd
			}
			return 1
		}
		return v
	}
	return 1
}
