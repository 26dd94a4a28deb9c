package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// extractDOCX reads the text of word/document.xml, one line per paragraph.
func extractDOCX(_ context.Context, doc Document) (Result, error) {
	data, err := doc.bytes()
	if err != nil {
		return Result{Method: "docx-xml"}, err
	}
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{Method: "docx-xml"}, fmt.Errorf("open docx: %w", err)
	}
	for _, f := range reader.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return Result{Method: "docx-xml"}, err
		}
		content, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return Result{Method: "docx-xml"}, err
		}
		txt, err := parseDocumentXML(content)
		if err != nil {
			return Result{Method: "docx-xml"}, err
		}
		return Result{Text: txt, Pages: 1, Method: "docx-xml"}, nil
	}
	return Result{Method: "docx-xml"}, fmt.Errorf("word/document.xml not found")
}

// WordprocessingML namespaces: transitional (what Word writes) and strict.
var wordNamespaces = map[string]bool{
	"http://schemas.openxmlformats.org/wordprocessingml/2006/main": true,
	"http://purl.oclc.org/ooxml/wordprocessingml/main":             true,
}

// parseDocumentXML collects every w:t run in document order, so text inside
// tables, hyperlinks, content controls and text boxes is kept. Each w:p ends a
// line; w:tab and w:br become a tab and a newline. Tab stops declared in
// paragraph or run properties are not content.
func parseDocumentXML(content []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	var b strings.Builder
	inText := false
	props := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if !wordNamespaces[t.Name.Space] {
				continue
			}
			switch t.Name.Local {
			case "pPr", "rPr", "sectPr":
				props++
			case "t":
				inText = true
			case "tab":
				if props == 0 {
					b.WriteByte('\t')
				}
			case "br", "cr":
				if props == 0 {
					b.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if !wordNamespaces[t.Name.Space] {
				continue
			}
			switch t.Name.Local {
			case "pPr", "rPr", "sectPr":
				props--
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// extractXLSX flattens every sheet: cells joined by a space, rows by newlines.
func extractXLSX(_ context.Context, doc Document) (Result, error) {
	data, err := doc.bytes()
	if err != nil {
		return Result{Method: "xlsx-cells"}, err
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Result{Method: "xlsx-cells"}, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	var b strings.Builder
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return Result{Method: "xlsx-cells"}, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, " "))
			if line == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(line)
		}
	}
	return Result{Text: b.String(), Pages: len(sheets), Method: "xlsx-cells"}, nil
}

// extractText returns the raw content; it must be valid UTF-8.
func extractText(_ context.Context, doc Document) (Result, error) {
	data, err := doc.bytes()
	if err != nil {
		return Result{Method: "text-raw"}, err
	}
	if !utf8.Valid(data) {
		return Result{Method: "text-raw"}, fmt.Errorf("text is not valid UTF-8")
	}
	return Result{Text: string(data), Pages: 1, Method: "text-raw"}, nil
}
