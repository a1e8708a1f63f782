package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/yungbote/lexcorpus-backend/internal/observability"
	"github.com/yungbote/lexcorpus-backend/internal/platform/ctxutil"
	"github.com/yungbote/lexcorpus-backend/internal/platform/envutil"
	"github.com/yungbote/lexcorpus-backend/internal/platform/localmedia"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
)

const (
	ReasonNotPDF     = "not_pdf"
	ReasonUnreadable = "unreadable"
	ReasonNoText     = "no_text"
)

var pdfMagic = []byte("%PDF")

// ExtractionError is fatal for the upload that produced it.
type ExtractionError struct {
	Filename string
	Reason   string
	Err      error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extract %q: %s", e.Filename, e.Reason)
	}
	return fmt.Sprintf("extract %q: %s: %v", e.Filename, e.Reason, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func IsExtractionError(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee)
}

type Result struct {
	Text     string
	Pages    int
	OCRPages int
}

type Extractor interface {
	Extract(ctx context.Context, data []byte, filename string) (*Result, error)
}

type Config struct {
	// MinPageChars is the trimmed length under which a page counts as having no embedded text.
	MinPageChars int
	// MaxOCRPages bounds OCR work per document; 0 disables OCR.
	MaxOCRPages int
}

func ConfigFromEnv() Config {
	return Config{
		MinPageChars: envutil.Int("EXTRACT_MIN_PAGE_CHARS", 1),
		MaxOCRPages:  envutil.Int("OCR_MAX_PAGES", 200),
	}
}

type pdfExtractor struct {
	log   *logger.Logger
	tools localmedia.Tools
	ocr   OCR
	cfg   Config
}

// New returns a PDF extractor; ocr may be nil, in which case pages without text stay empty.
func New(log *logger.Logger, tools localmedia.Tools, ocr OCR, cfg Config) Extractor {
	if cfg.MinPageChars <= 0 {
		cfg.MinPageChars = 1
	}
	return &pdfExtractor{
		log:   log.With("service", "PDFExtractor"),
		tools: tools,
		ocr:   ocr,
		cfg:   cfg,
	}
}

func (x *pdfExtractor) Extract(ctx context.Context, data []byte, filename string) (*Result, error) {
	ctx = ctxutil.Default(ctx)
	ctx, span := observability.StartSpan(ctx, "extract.pdf")
	defer span.End()

	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), pdfMagic) {
		return nil, &ExtractionError{Filename: filename, Reason: ReasonNotPDF}
	}

	path, cleanup, err := x.tools.WriteTempFile(ctx, data, ".pdf")
	if err != nil {
		return nil, fmt.Errorf("stage pdf: %w", err)
	}
	defer cleanup()

	pages, err := x.tools.CountPDFPages(ctx, path)
	if err != nil {
		return nil, &ExtractionError{Filename: filename, Reason: ReasonUnreadable, Err: err}
	}

	var renderDir string
	res := &Result{Pages: pages}
	var sb strings.Builder
	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := x.tools.PDFPageText(ctx, path, page)
		if err != nil {
			return nil, &ExtractionError{Filename: filename, Reason: ReasonUnreadable, Err: err}
		}
		if len(strings.TrimSpace(text)) < x.cfg.MinPageChars && x.ocr != nil && res.OCRPages < x.cfg.MaxOCRPages {
			if renderDir == "" {
				renderDir, err = os.MkdirTemp("", "lexcorpus-ocr-*")
				if err != nil {
					return nil, fmt.Errorf("ocr workdir: %w", err)
				}
				defer os.RemoveAll(renderDir)
			}
			ocrText, err := x.ocr.OCRPage(ctx, path, renderDir, page)
			if err != nil {
				x.log.Warn("OCR failed for page", "filename", filename, "page", page, "provider", x.ocr.Name(), "error", err)
			} else {
				text = ocrText
				res.OCRPages++
			}
		}
		sb.WriteString(PageMarker(page))
		sb.WriteByte('\n')
		sb.WriteString(text)
		sb.WriteByte('\n')
	}

	res.Text = Clean(sb.String())
	if res.Text == "" {
		return nil, &ExtractionError{Filename: filename, Reason: ReasonNoText}
	}
	observability.Current().AddOCRPages(res.OCRPages)
	x.log.Info("PDF extracted", "filename", filename, "pages", pages, "ocr_pages", res.OCRPages, "chars", len(res.Text))
	return res, nil
}
