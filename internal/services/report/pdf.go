package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	pdfFont     = "Arial"
	pdfBodySize = 9.0
	pdfWidth    = 190.0
)

// Chart is a PNG appended to the PDF after the report text.
type Chart struct {
	Name  string
	Title string
	PNG   []byte
}

// PDF lays out the markdown report on A4 pages followed by the charts.
func PDF(markdown []byte, charts ...Chart) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	pdf.SetTitle(reportTitle, false)
	pdf.AddPage()
	pdf.SetFont(pdfFont, "", pdfBodySize)

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	doc := md.Parser().Parse(text.NewReader(markdown))

	r := &pdfRenderer{pdf: pdf, source: markdown, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	if err := ast.Walk(doc, r.walk); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	for _, c := range charts {
		if len(c.PNG) == 0 {
			continue
		}
		pdf.AddPage()
		pdf.SetFont(pdfFont, "B", 12)
		pdf.CellFormat(pdfWidth, 8, c.Title, "", 1, "L", false, 0, "")
		opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		pdf.RegisterImageOptionsReader(c.Name, opts, bytes.NewReader(c.PNG))
		pdf.ImageOptions(c.Name, 10, pdf.GetY()+2, pdfWidth, 0, false, opts, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type pdfRenderer struct {
	pdf    *fpdf.Fpdf
	source []byte
	tr     func(string) string
	bold   bool
	italic bool
	inList bool
}

func (r *pdfRenderer) setFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont(pdfFont, style, pdfBodySize)
}

func (r *pdfRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			r.pdf.Ln(4)
			size := map[int]float64{1: 15, 2: 12, 3: 10}[node.Level]
			if size == 0 {
				size = 10
			}
			r.pdf.SetFont(pdfFont, "B", size)
		} else {
			r.pdf.Ln(7)
			r.setFont()
		}
	case *ast.Paragraph:
		if !entering && !r.inList {
			r.pdf.Ln(6)
		}
	case *ast.Text:
		if entering {
			r.pdf.Write(5, r.tr(string(node.Segment.Value(r.source))))
			if node.SoftLineBreak() {
				r.pdf.Write(5, " ")
			}
		}
	case *ast.CodeSpan:
		if entering {
			r.pdf.SetFont("Courier", "", pdfBodySize)
			r.pdf.Write(5, r.tr(string(node.Text(r.source))))
			r.setFont()
			return ast.WalkSkipChildren, nil
		}
	case *ast.Emphasis:
		if node.Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.setFont()
	case *ast.List:
		r.inList = entering
		if !entering {
			r.pdf.Ln(3)
		}
	case *ast.ListItem:
		if entering {
			marker := "- "
			if list, ok := node.Parent().(*ast.List); ok && list.IsOrdered() {
				idx := 1
				for s := node.PreviousSibling(); s != nil; s = s.PreviousSibling() {
					idx++
				}
				marker = fmt.Sprintf("%d. ", list.Start+idx-1)
			}
			r.pdf.SetX(14)
			r.pdf.Write(5, marker)
		} else {
			r.pdf.Ln(5)
		}
	case *extast.Table:
		if entering {
			r.table(node)
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (r *pdfRenderer) table(n *extast.Table) {
	var rows [][]string
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		var row []string
		for c := child.FirstChild(); c != nil; c = c.NextSibling() {
			if _, ok := c.(*extast.TableCell); ok {
				row = append(row, r.tr(string(c.Text(r.source))))
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	cols := len(rows[0])
	first := 40.0
	rest := (pdfWidth - first) / float64(cols-1)
	if cols == 1 {
		first = pdfWidth
	}

	r.pdf.Ln(2)
	for i, row := range rows {
		if i == 0 {
			r.pdf.SetFont(pdfFont, "B", 8)
			r.pdf.SetFillColor(230, 230, 230)
		} else {
			r.pdf.SetFont(pdfFont, "", 8)
			r.pdf.SetFillColor(255, 255, 255)
		}
		for j := 0; j < cols; j++ {
			w, align := rest, "R"
			if j == 0 {
				w, align = first, "L"
			}
			val := ""
			if j < len(row) {
				val = row[j]
			}
			r.pdf.CellFormat(w, 6, val, "1", 0, align, true, 0, "")
		}
		r.pdf.Ln(-1)
	}
	r.pdf.Ln(3)
	r.setFont()
}
