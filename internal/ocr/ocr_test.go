package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/counterparty-analyzer/internal/common"
)

type call struct {
	name string
	args []string
}

// fakeRunner answers by the first argument and records every call.
type fakeRunner struct {
	calls   []call
	respond func(name string, args []string) ([]byte, []byte, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	return f.respond(name, args)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.Black)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestTesseractLangs(t *testing.T) {
	assert.Equal(t, "ukr+eng", tesseractLangs([]string{"uk", "en"}))
	assert.Equal(t, "ukr", tesseractLangs([]string{" UK ", "uk"}))
	assert.Equal(t, "fra", tesseractLangs([]string{"fra"}))
	assert.Equal(t, "ukr", tesseractLangs(nil))
}

func TestNewTesseract_MissingLanguage(t *testing.T) {
	r := &fakeRunner{respond: func(string, []string) ([]byte, []byte, error) {
		return []byte("List of available languages in \"/usr/share/tessdata/\" (2):\neng\nosd\n"), nil, nil
	}}
	_, err := NewTesseract(context.Background(), Config{Languages: []string{"uk", "en"}}, r, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"ukr"`)
}

func TestTesseract_Recognize(t *testing.T) {
	r := &fakeRunner{respond: func(_ string, args []string) ([]byte, []byte, error) {
		if args[0] == "--list-langs" {
			return nil, []byte("List of available languages (3):\neng\nukr\nosd\n"), nil
		}
		return []byte("  Баланс  \n\n-----\nрядок 1195  \n"), nil, nil
	}}
	eng, err := NewTesseract(context.Background(), Config{Languages: []string{"uk", "en"}, MaxWidth: 50}, r, nil)
	require.NoError(t, err)

	text, err := eng.Recognize(context.Background(), pngBytes(t, 120, 40))
	require.NoError(t, err)
	assert.Equal(t, "Баланс\nрядок 1195", text)

	require.Len(t, r.calls, 2)
	args := r.calls[1].args
	assert.Equal(t, []string{"stdout", "-l", "ukr+eng"}, args[1:4])
	assert.True(t, strings.HasSuffix(args[0], ".png"))
}

func TestTesseract_RecognizeRejectsGarbage(t *testing.T) {
	r := &fakeRunner{respond: func(string, []string) ([]byte, []byte, error) {
		return []byte("ukr\n"), nil, nil
	}}
	eng, err := NewTesseract(context.Background(), Config{Languages: []string{"uk"}}, r, nil)
	require.NoError(t, err)

	_, err = eng.Recognize(context.Background(), []byte("not an image"))
	assert.Error(t, err)
}

func TestNew_UnknownEngine(t *testing.T) {
	_, err := New(context.Background(), Config{Engine: "paddle"}, nil)
	require.Error(t, err)
	assert.Equal(t, common.KindConfiguration, common.KindOf(err))
}

func TestNew_AzureRequiresCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{Engine: EngineAzure}, nil)
	assert.Error(t, err)
}

func TestNew_AzureUsesPrimaryLanguage(t *testing.T) {
	rec, err := New(context.Background(), Config{
		Engine:        EngineAzure,
		Languages:     []string{"en", "uk"},
		AzureEndpoint: "https://example.cognitiveservices.azure.com",
		AzureKey:      "key",
	}, nil)
	require.NoError(t, err)
	az, ok := rec.(*Azure)
	require.True(t, ok)
	assert.Equal(t, computervision.OcrLanguagesEn, az.language)
}

func TestAzureLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want computervision.OcrLanguages
	}{
		{"en", computervision.OcrLanguagesEn},
		{" RU ", computervision.OcrLanguagesRu},
		{"pl", computervision.OcrLanguagesPl},
		{"de", computervision.OcrLanguagesDe},
		{"uk", computervision.OcrLanguagesUnk},
		{"", computervision.OcrLanguagesUnk},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, azureLanguage(tt.in), tt.in)
	}
}

func TestConfig_PrimaryLanguage(t *testing.T) {
	assert.Equal(t, "uk", Config{}.PrimaryLanguage())
	assert.Equal(t, "en", Config{Languages: []string{"en", "uk"}}.PrimaryLanguage())
}

func TestExecRunner_LogsFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, _, err := ExecRunner(logger).Run(context.Background(), "definitely-not-a-real-ocr-binary", "--version")
	require.Error(t, err)
	assert.Contains(t, buf.String(), `"msg":"ocr.exec.failed"`)
	assert.Contains(t, buf.String(), `"cmd":"definitely-not-a-real-ocr-binary"`)
}

func TestDisabled(t *testing.T) {
	_, err := Disabled(errors.New("no tessdata")).Recognize(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrOCRUnavailable)
	assert.Contains(t, err.Error(), "no tessdata")
}

func TestPreprocess_Downscales(t *testing.T) {
	out, err := Preprocess(pngBytes(t, 400, 100), 200)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())
}

func TestPdftoppm_RenderPage(t *testing.T) {
	r := &fakeRunner{respond: func(_ string, args []string) ([]byte, []byte, error) {
		prefix := args[len(args)-1]
		return nil, nil, os.WriteFile(prefix+".png", []byte("PNGDATA"), 0o600)
	}}
	p := NewPdftoppm("", 0, r, nil)

	img, err := p.RenderPage(context.Background(), filepath.Join(t.TempDir(), "doc.pdf"), 3)
	require.NoError(t, err)
	assert.Equal(t, []byte("PNGDATA"), img)

	require.Len(t, r.calls, 1)
	assert.Equal(t, "pdftoppm", r.calls[0].name)
	assert.Equal(t, []string{"-r", "300", "-png", "-f", "3", "-l", "3", "-singlefile"}, r.calls[0].args[:8])
}

func TestPdftoppm_RenderPageFailure(t *testing.T) {
	r := &fakeRunner{respond: func(string, []string) ([]byte, []byte, error) {
		return nil, []byte("Syntax Error"), errors.New("exit status 1")
	}}
	_, err := NewPdftoppm("", 0, r, nil).RenderPage(context.Background(), "x.pdf", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 1")
}
