package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/counterparty-analyzer/constants"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/common"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/ocr"
)

type stubRecognizer struct {
	text  string
	err   error
	calls int
}

func (s *stubRecognizer) Recognize(context.Context, []byte) (string, error) {
	s.calls++
	return s.text, s.err
}

type stubRaster struct {
	pages []int
	err   error
}

func (s *stubRaster) RenderPage(_ context.Context, _ string, page int) ([]byte, error) {
	s.pages = append(s.pages, page)
	return []byte("png"), s.err
}

type stubPages []string

func (s stubPages) NumPages() int          { return len(s) }
func (s stubPages) PageText(n int) string { return s[n-1] }

func pdfWith(rec ocr.Recognizer, raster ocr.PageRasterizer, pages stubPages) *PDFExtractor {
	e := NewPDFExtractor(rec, raster, nil)
	e.open = func([]byte) (PageTextSource, error) { return pages, nil }
	return e
}

func TestNewDispatcher_RequiresRecognizer(t *testing.T) {
	_, err := NewDispatcher(nil, &stubRaster{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrOCRUnavailable)
}

func TestDispatcher_Unsupported(t *testing.T) {
	d, err := NewDispatcher(&stubRecognizer{}, &stubRaster{}, nil)
	require.NoError(t, err)

	_, err = d.Extract(context.Background(), "notes.txt", []byte("hello"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
	assert.Equal(t, common.KindUnsupportedFormat, common.KindOf(err))
}

func TestDispatcher_ImageIsCleaned(t *testing.T) {
	rec := &stubRecognizer{text: "  Актив   1195 \n\n\n\n  Пасив  "}
	d, err := NewDispatcher(rec, &stubRaster{}, nil)
	require.NoError(t, err)

	res, err := d.Extract(context.Background(), "SCAN.JPG", []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "Актив 1195 \n\n Пасив", res.Text)
	assert.Equal(t, constants.IMAGE, res.Format)
	assert.Equal(t, 1, rec.calls)
}

func TestDispatcher_ImageOCRUnavailable(t *testing.T) {
	d, err := NewDispatcher(ocr.Disabled(nil), &stubRaster{}, nil)
	require.NoError(t, err)

	_, err = d.Extract(context.Background(), "scan.png", []byte("img"))
	assert.ErrorIs(t, err, common.ErrOCRUnavailable)
}

func TestPDF_OCRFallbackPerPage(t *testing.T) {
	native := strings.Repeat("Баланс підприємства на кінець року ", 3)
	rec := &stubRecognizer{text: "розпізнаний текст"}
	raster := &stubRaster{}

	res, err := pdfWith(rec, raster, stubPages{native, "  short  ", native}).Extract(context.Background(), []byte("%PDF"))
	require.NoError(t, err)

	assert.Equal(t, []int{2}, raster.pages, "only the short page is rasterized")
	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, 1, res.OCRPages)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, "pdf-mixed", res.Method)
	assert.Equal(t,
		"--- Page 1 ---\n"+native+"\n\n--- Page 2 ---\nрозпізнаний текст\n\n--- Page 3 ---\n"+native,
		res.Text)
}

func TestPDF_ThresholdBoundary(t *testing.T) {
	exactly50 := strings.Repeat("ж", 50)
	rec := &stubRecognizer{text: "ocr"}
	raster := &stubRaster{}

	res, err := pdfWith(rec, raster, stubPages{"  " + exactly50 + "  ", strings.Repeat("ж", 49)}).Extract(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, raster.pages)
	assert.Equal(t, 1, res.OCRPages)
}

func TestPDF_AllNativeNeverOCRs(t *testing.T) {
	rec := &stubRecognizer{}
	raster := &stubRaster{}
	page := strings.Repeat("a", 60)

	res, err := pdfWith(rec, raster, stubPages{page, page}).Extract(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, rec.calls)
	assert.Empty(t, raster.pages)
	assert.Equal(t, "pdf-text", res.Method)
}

func TestPDF_OCRFailureFailsFile(t *testing.T) {
	rec := &stubRecognizer{err: errors.New("engine crashed")}

	_, err := pdfWith(rec, &stubRaster{}, stubPages{""}).Extract(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ocr page 1")
}

func TestPDF_InvalidBytes(t *testing.T) {
	_, err := NewPDFExtractor(&stubRecognizer{}, &stubRaster{}, nil).Extract(context.Background(), []byte("definitely not a pdf"))
	assert.Error(t, err)
}

func TestSpreadsheet(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Баланс"))
	require.NoError(t, f.SetSheetRow("Баланс", "A1", &[]any{"Код", "Початок", "Кінець"}))
	require.NoError(t, f.SetSheetRow("Баланс", "A3", &[]any{"1195", 1200.5, 1300}))
	_, err := f.NewSheet("Звіт")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Звіт", "A1", &[]any{"2000", "", 500}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	res, err := NewSpreadsheetExtractor(nil).Extract(context.Background(), buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t,
		"--- Sheet: Баланс ---\nКод\tПочаток\tКінець\n1195\t1200.5\t1300\n\n--- Sheet: Звіт ---\n2000\t\t500",
		res.Text)
	assert.Equal(t, 2, res.Pages)
}

func TestSpreadsheet_Corrupt(t *testing.T) {
	_, err := NewSpreadsheetExtractor(nil).Extract(context.Background(), []byte("PK garbage"))
	assert.Error(t, err)
}

func docxBytes(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDocx(t *testing.T) {
	body := `<w:p><w:r><w:t>Звіт про фінансовий стан</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t xml:space="preserve">   </w:t></w:r></w:p>` +
		`<w:tbl>` +
		`<w:tr><w:tc><w:p><w:r><w:t>Код</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Сума</w:t></w:r></w:p></w:tc></w:tr>` +
		`<w:tr><w:tc><w:p><w:r><w:t>1195</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>1 200,5</w:t></w:r></w:p></w:tc></w:tr>` +
		`</w:tbl>` +
		`<w:p><w:r><w:t>Керівник</w:t><w:tab/><w:t>Іваненко</w:t></w:r></w:p>` +
		`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>x</w:t></w:r></w:p></w:tc></w:tr></w:tbl>`

	res, err := NewDocxExtractor(nil).Extract(context.Background(), docxBytes(t, body))
	require.NoError(t, err)
	assert.Equal(t,
		"Звіт про фінансовий стан\nКерівник\tІваненко\n--- Table 1 ---\nКод\tСума\n1195\t1 200,5\n--- Table 2 ---\nx",
		res.Text)
}

func TestDocx_TabStopsAreNotText(t *testing.T) {
	tabStops := `<w:pPr><w:tabs><w:tab w:val="left" w:pos="2835"/><w:tab w:val="right" w:pos="9355"/></w:tabs></w:pPr>`
	body := `<w:tbl><w:tr><w:tc>` +
		`<w:p><w:r><w:t>Актив</w:t></w:r></w:p>` +
		`<w:p>` + tabStops + `<w:r><w:t>Запаси</w:t><w:tab/><w:t>120</w:t></w:r></w:p>` +
		`</w:tc></w:tr></w:tbl>`

	_, tables, err := parseDocumentXML(strings.NewReader(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, [][]string{{"Актив\nЗапаси\t120"}}, tables[0])
}

func TestDocx_MissingDocument(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("word/styles.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = NewDocxExtractor(nil).Extract(context.Background(), buf.Bytes())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "word/document.xml")
}
