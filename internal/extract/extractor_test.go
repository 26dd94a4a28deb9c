package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/termsheet-validator/constants"
)

type stubRunner struct {
	mu    sync.Mutex
	calls []string
	fn    func(ctx context.Context, name string, args []string) ([]byte, []byte, error)
}

func (s *stubRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, name)
	s.mu.Unlock()
	return s.fn(ctx, name, args)
}

func (s *stubRunner) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == name {
			n++
		}
	}
	return n
}

// pdfRunner renders `pages` fake PNGs and OCRs each one to "Page N".
func pdfRunner(pages int, failOCR bool) *stubRunner {
	return &stubRunner{fn: func(_ context.Context, name string, args []string) ([]byte, []byte, error) {
		switch name {
		case "pdftoppm":
			prefix := args[len(args)-1]
			for i := 1; i <= pages; i++ {
				if err := os.WriteFile(prefix+"-"+string(rune('0'+i))+".png", []byte("png"), 0o600); err != nil {
					return nil, nil, err
				}
			}
			return nil, nil, nil
		case "tesseract":
			if failOCR {
				return nil, []byte("tesseract: cannot read image"), errors.New("exit status 1")
			}
			base := filepath.Base(args[0])
			n := strings.TrimSuffix(strings.TrimPrefix(base, "page-"), ".png")
			return []byte("Page " + n + "\nIssuer:   HSBC  \n"), nil, nil
		}
		return nil, nil, errors.New("unexpected command " + name)
	}}
}

func newTestExtractor(r Runner, cfg Config) *Extractor {
	return NewExtractor(cfg, nil, WithRunner(r))
}

func TestExtract_Text(t *testing.T) {
	e := newTestExtractor(nil, Config{})
	res, err := e.Extract(context.Background(), Document{
		Name: "sheet.txt",
		Data: []byte("Issuer:\tHSBC\r\nCounterparty:  JP Morgan   \r\n\r\n\r\n\r\nProduct: Swap"),
	})
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	assert.Equal(t, constants.TEXT, res.Format)
	assert.Equal(t, "text-raw", res.Method)
	assert.Equal(t, "Issuer: HSBC\nCounterparty: JP Morgan\n\nProduct: Swap", res.Text)
	assert.Greater(t, res.Confidence, float32(0.2))
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	e := newTestExtractor(nil, Config{})
	_, err := e.Extract(context.Background(), Document{Name: "trades.csv", Data: []byte("a,b")})
	var ufe *UnsupportedFormatError
	require.ErrorAs(t, err, &ufe)
	assert.Equal(t, "csv", ufe.Ext)

	_, err = Open("/tmp/trades.csv")
	require.ErrorAs(t, err, &ufe)
}

func TestExtract_FallbackCases(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
	}{
		{"invalid utf8 text", Document{Name: "a.txt", Data: []byte{0xff, 0xfe, 0xfd}}},
		{"empty text", Document{Name: "a.txt", Data: []byte("  \n\t ")}},
		{"corrupt docx", Document{Name: "a.docx", Data: []byte("not a zip")}},
		{"corrupt xlsx", Document{Name: "a.xlsx", Data: []byte("not a zip")}},
		{"missing file", Document{Path: filepath.Join(t.TempDir(), "gone.txt")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newTestExtractor(nil, Config{}).Extract(context.Background(), tt.doc)
			require.NoError(t, err)
			assert.True(t, res.Fallback)
			assert.Equal(t, "sample", res.Method)
			assert.Equal(t, Normalize(SampleText), strings.TrimSpace(res.Text))
			assert.NotEmpty(t, res.Warnings)
		})
	}
}

func buildDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	return buildDOCXBody(t, body.String())
}

func buildDOCXBody(t *testing.T, body string) []byte {
	t.Helper()
	xmlDoc := `<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"` +
		` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><w:body>` +
		body + `</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(xmlDoc))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtract_DOCX(t *testing.T) {
	tests := []struct {
		name string
		data func(t *testing.T) []byte
		want string
	}{
		{
			name: "paragraphs",
			data: func(t *testing.T) []byte {
				return buildDOCX(t, "TERM SHEET", "Issuer: HSBC", "Principal Amount: USD 5,000,000")
			},
			want: "TERM SHEET\nIssuer: HSBC\nPrincipal Amount: USD 5,000,000",
		},
		{
			name: "tables hyperlinks and content controls",
			data: func(t *testing.T) []byte {
				return buildDOCXBody(t, `<w:p><w:r><w:t>TERM SHEET</w:t></w:r></w:p>`+
					`<w:tbl><w:tblPr/>`+
					`<w:tr><w:tc><w:p><w:r><w:t>Issuer: HSBC</w:t></w:r></w:p></w:tc></w:tr>`+
					`<w:tr><w:tc><w:p><w:r><w:t xml:space="preserve">Counterparty: </w:t></w:r><w:r><w:t>JP Morgan</w:t></w:r></w:p></w:tc></w:tr>`+
					`</w:tbl>`+
					`<w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/></w:tabs></w:pPr>`+
					`<w:hyperlink r:id="rId5"><w:r><w:t>Governing Law: English Law</w:t></w:r></w:hyperlink></w:p>`+
					`<w:sdt><w:sdtContent><w:p><w:r><w:t>Coupon Rate:</w:t></w:r><w:r><w:tab/><w:t>5.25%</w:t></w:r></w:p></w:sdtContent></w:sdt>`+
					`<w:p><w:r><w:delText>Product: Old</w:delText></w:r><w:r><w:t>Product: Fixed Rate Note</w:t></w:r></w:p>`)
			},
			want: "TERM SHEET\nIssuer: HSBC\nCounterparty: JP Morgan\nGoverning Law: English Law\nCoupon Rate: 5.25%\nProduct: Fixed Rate Note",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newTestExtractor(nil, Config{}).Extract(context.Background(), Document{Name: "ts.docx", Data: tt.data(t)})
			require.NoError(t, err)
			assert.False(t, res.Fallback)
			assert.Equal(t, "docx-xml", res.Method)
			assert.Equal(t, tt.want, res.Text)
		})
	}
}

func TestExtract_DOCXTablesOnly(t *testing.T) {
	data := buildDOCXBody(t, `<w:tbl><w:tr>`+
		`<w:tc><w:p><w:r><w:t>Trade Date:</w:t></w:r></w:p></w:tc>`+
		`<w:tc><w:p><w:r><w:t>2023-06-15</w:t></w:r></w:p></w:tc>`+
		`</w:tr></w:tbl>`)
	res, err := newTestExtractor(nil, Config{}).Extract(context.Background(), Document{Name: "ts.docx", Data: data})
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	assert.Equal(t, "Trade Date: 2023-06-15", res.Text)
}

func TestExtract_XLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Issuer:", "HSBC"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"Coupon Rate:", "4.5%"}))
	_, err := f.NewSheet("Extra")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Extra", "A1", &[]any{"Governing Law:", "English Law"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	res, err := newTestExtractor(nil, Config{}).Extract(context.Background(), Document{Name: "ts.xlsx", Data: buf.Bytes()})
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	assert.Equal(t, "xlsx-cells", res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, "Issuer: HSBC\nCoupon Rate: 4.5%\nGoverning Law: English Law", res.Text)
}

func TestExtract_Image(t *testing.T) {
	r := &stubRunner{fn: func(_ context.Context, name string, args []string) ([]byte, []byte, error) {
		assert.Equal(t, "tesseract", name)
		assert.Equal(t, []string{"stdout", "-l", "eng"}, args[1:4])
		return []byte("Counterparty: Acme Corporation\n-----\n"), nil, nil
	}}
	res, err := newTestExtractor(r, Config{}).Extract(context.Background(), Document{Name: "scan.png", Data: []byte("png")})
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	assert.Equal(t, "image-ocr", res.Method)
	assert.Equal(t, constants.IMAGE, res.Format)
	assert.Equal(t, "Counterparty: Acme Corporation", res.Text)
}

func TestExtract_ImageOCRFailureFallsBack(t *testing.T) {
	r := &stubRunner{fn: func(context.Context, string, []string) ([]byte, []byte, error) {
		return nil, []byte("boom"), errors.New("exit status 1")
	}}
	res, err := newTestExtractor(r, Config{}).Extract(context.Background(), Document{Name: "scan.jpg", Data: []byte("jpg")})
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Contains(t, res.Warnings[len(res.Warnings)-1], "tesseract")
}

func TestExtract_PDFOCRPagesInOrder(t *testing.T) {
	r := pdfRunner(3, false)
	res, err := newTestExtractor(r, Config{PageWorkers: 2}).Extract(context.Background(), Document{Name: "ts.pdf", Data: []byte("%PDF")})
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	assert.Equal(t, "pdf-ocr", res.Method)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, "Page 1\nIssuer: HSBC\nPage 2\nIssuer: HSBC\nPage 3\nIssuer: HSBC", res.Text)
	assert.Equal(t, 1, r.count("pdftoppm"))
	assert.Equal(t, 3, r.count("tesseract"))
}

func TestExtract_PDFOCRAndTextLayerFail(t *testing.T) {
	res, err := newTestExtractor(pdfRunner(2, true), Config{}).Extract(context.Background(), Document{Name: "ts.pdf", Data: []byte("not really a pdf")})
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, constants.PDF, res.Format)
	assert.Equal(t, "sample", res.Method)
}

func TestExtract_TimeoutFallsBack(t *testing.T) {
	r := &stubRunner{fn: func(ctx context.Context, _ string, _ []string) ([]byte, []byte, error) {
		<-ctx.Done()
		return nil, nil, ctx.Err()
	}}
	e := newTestExtractor(r, Config{Timeout: 20 * time.Millisecond})
	start := time.Now()
	res, err := e.Extract(context.Background(), Document{Name: "scan.png", Data: []byte("png")})
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestOpen(t *testing.T) {
	doc, err := Open("/data/in/Sheet.PDF")
	require.NoError(t, err)
	assert.Equal(t, constants.PDF, doc.Format)
	assert.Equal(t, "Sheet.PDF", doc.Name)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace", "Trade Date:\t2023-06-15   \r\n\r\n\r\n\r\nIssuer:    HSBC  ", "Trade Date: 2023-06-15\n\nIssuer: HSBC"},
		{"split label", "Trade Date:\n2023-06-15\nIssuer: HSBC", "Trade Date: 2023-06-15\nIssuer: HSBC"},
		{"split label across blank line", "Principal Amount:\n\nUSD 10,000,000", "Principal Amount: USD 10,000,000"},
		{"empty label keeps neighbour", "Risk Disclosure:\nGoverning Law: English Law", "Risk Disclosure:\nGoverning Law: English Law"},
		{"unknown label not joined", "Notes:\nsee annex", "Notes:\nsee annex"},
		{"spaced colon", "Issuer : HSBC\nCounterparty :\nAcme Corporation", "Issuer: HSBC\nCounterparty: Acme Corporation"},
		{"ocr date digits", "Maturity Date: 2O28-O6-l5", "Maturity Date: 2028-06-15"},
		{"words are not dates", "Product: Iool-oo-Il", "Product: Iool-oo-Il"},
		{"nbsp and fullwidth colon", "Issuer\u00a0\uff1a HSBC", "Issuer: HSBC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestExtract_SplitLabelsFromOCRReachParser(t *testing.T) {
	r := &stubRunner{fn: func(context.Context, string, []string) ([]byte, []byte, error) {
		return []byte("Trade Date:\n2O23-06-15\n\nIssuer:\nHSBC\n"), nil, nil
	}}
	res, err := newTestExtractor(r, Config{}).Extract(context.Background(), Document{Name: "scan.png", Data: []byte("png")})
	require.NoError(t, err)
	assert.Equal(t, "Trade Date: 2023-06-15\n\nIssuer: HSBC", res.Text)
}

func TestExtract_PDFPageFailureWarnsWithPage(t *testing.T) {
	r := &stubRunner{fn: func(_ context.Context, name string, args []string) ([]byte, []byte, error) {
		if name == "pdftoppm" {
			prefix := args[len(args)-1]
			for _, n := range []string{"1", "2"} {
				if err := os.WriteFile(prefix+"-"+n+".png", []byte("png"), 0o600); err != nil {
					return nil, nil, err
				}
			}
			return nil, nil, nil
		}
		if filepath.Base(args[0]) == "page-1.png" {
			return nil, []byte("tesseract: cannot read image"), errors.New("exit status 1")
		}
		return []byte("Issuer: HSBC"), nil, nil
	}}
	res, err := newTestExtractor(r, Config{}).Extract(context.Background(), Document{Name: "deal.pdf", Data: []byte("%PDF")})
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	assert.Equal(t, "Issuer: HSBC", res.Text)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "tesseract (ocr page 1): exit status 1: tesseract: cannot read image", res.Warnings[0])
}

func TestRunTool_WrapsFailures(t *testing.T) {
	r := &stubRunner{fn: func(context.Context, string, []string) ([]byte, []byte, error) {
		return nil, []byte("Warning: low res\nError: cannot open input\n"), errors.New("exit status 1")
	}}
	e := newTestExtractor(r, Config{})
	ctx := withPage(withDocument(context.Background(), "deal.pdf"), 3)

	_, err := e.runTool(ctx, "ocr", "tesseract", "page-3.png", "stdout")
	var te *ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "deal.pdf", te.Document)
	assert.Equal(t, 3, te.Page)
	assert.False(t, te.Missing())
	assert.Equal(t, "tesseract (ocr page 3): exit status 1: Error: cannot open input", te.Error())
}

func TestExecRunner_MissingBinary(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	e := NewExtractor(Config{Tesseract: "termsheet-no-such-tesseract"}, logger)

	ctx := withDocument(context.Background(), "scan.png")
	_, err := e.runTool(ctx, "ocr", e.cfg.Tesseract, "x.png", "stdout")
	var te *ToolError
	require.ErrorAs(t, err, &te)
	assert.True(t, te.Missing())
	assert.Contains(t, logs.String(), "document=scan.png")
	assert.Contains(t, logs.String(), "stage=ocr")
	assert.Contains(t, logs.String(), "ocr tool not installed")
}

func TestHeuristicConfidence(t *testing.T) {
	low := heuristicConfidence("hello")
	high := heuristicConfidence(SampleText)
	assert.InDelta(t, 0.2, low, 1e-6)
	assert.Greater(t, high, float32(0.9))
	assert.LessOrEqual(t, high, float32(1.0))
}
