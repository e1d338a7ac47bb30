package retriever

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PageText is the extracted text of a single PDF page.
type PageText struct {
	Page int
	Text string
}

// FindPDFs walks root and returns relative paths of all PDF files.
func FindPDFs(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".pdf") {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			paths = append(paths, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return paths, nil
}

// LoadPDF extracts per-page text from a PDF file. Pages with no extractable
// text are skipped.
func LoadPDF(path string) ([]PageText, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	var pages []PageText
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}

		var b strings.Builder
		rows, _ := p.GetTextByRow()
		for idx, row := range rows {
			if idx > 0 {
				b.WriteByte('\n')
			}
			for _, word := range row.Content {
				b.WriteString(word.S)
			}
		}

		text := strings.TrimSpace(b.String())
		if text == "" {
			continue
		}
		pages = append(pages, PageText{Page: i, Text: text})
	}
	return pages, nil
}
