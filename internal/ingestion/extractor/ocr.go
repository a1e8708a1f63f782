package extractor

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/yungbote/lexcorpus-backend/internal/platform/envutil"
	"github.com/yungbote/lexcorpus-backend/internal/platform/gcp"
	"github.com/yungbote/lexcorpus-backend/internal/platform/localmedia"
)

const (
	OCRProviderNone      = "none"
	OCRProviderTesseract = "tesseract"
	OCRProviderVision    = "gcv"
)

// OCR recognises the text of a single rendered PDF page.
type OCR interface {
	OCRPage(ctx context.Context, pdfPath, workDir string, page int) (string, error)
	Name() string
}

type tesseractOCR struct {
	tools localmedia.Tools
	lang  string
	dpi   int
}

func NewTesseractOCR(tools localmedia.Tools, lang string, dpi int) OCR {
	return &tesseractOCR{tools: tools, lang: lang, dpi: dpi}
}

func (t *tesseractOCR) Name() string { return OCRProviderTesseract }

func (t *tesseractOCR) OCRPage(ctx context.Context, pdfPath, workDir string, page int) (string, error) {
	img, err := t.tools.RenderPDFPage(ctx, pdfPath, workDir, page, localmedia.PDFRenderOptions{DPI: t.dpi, Format: "png"})
	if err != nil {
		return "", err
	}
	defer os.Remove(img)
	return t.tools.OCRImage(ctx, img, t.lang)
}

type visionOCR struct {
	tools  localmedia.Tools
	vision gcp.Vision
	dpi    int
}

func NewVisionOCR(tools localmedia.Tools, vision gcp.Vision, dpi int) OCR {
	return &visionOCR{tools: tools, vision: vision, dpi: dpi}
}

func (v *visionOCR) Name() string { return OCRProviderVision }

func (v *visionOCR) OCRPage(ctx context.Context, pdfPath, workDir string, page int) (string, error) {
	img, err := v.tools.RenderPDFPage(ctx, pdfPath, workDir, page, localmedia.PDFRenderOptions{DPI: v.dpi, Format: "png"})
	if err != nil {
		return "", err
	}
	defer os.Remove(img)
	data, err := os.ReadFile(img)
	if err != nil {
		return "", fmt.Errorf("read rendered page: %w", err)
	}
	return v.vision.OCRImageBytes(ctx, data, "image/png")
}

// OCRConfig selects the OCR provider from OCR_PROVIDER (tesseract|gcv|none).
type OCRConfig struct {
	Provider string
	Lang     string
	DPI      int
}

func OCRConfigFromEnv() OCRConfig {
	return OCRConfig{
		Provider: strings.ToLower(envutil.String("OCR_PROVIDER", OCRProviderTesseract)),
		Lang:     envutil.String("OCR_LANG", "eng"),
		DPI:      envutil.Int("OCR_DPI", 300),
	}
}

// NewOCR builds the configured provider. vision is only consulted for OCR_PROVIDER=gcv.
func NewOCR(cfg OCRConfig, tools localmedia.Tools, vision gcp.Vision) (OCR, error) {
	switch cfg.Provider {
	case "", OCRProviderNone:
		return nil, nil
	case OCRProviderTesseract:
		return NewTesseractOCR(tools, cfg.Lang, cfg.DPI), nil
	case OCRProviderVision:
		if vision == nil {
			return nil, fmt.Errorf("OCR_PROVIDER=gcv requires a Vision client")
		}
		return NewVisionOCR(tools, vision, cfg.DPI), nil
	default:
		return nil, fmt.Errorf("unknown OCR_PROVIDER %q", cfg.Provider)
	}
}
