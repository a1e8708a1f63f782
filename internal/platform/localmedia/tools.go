package localmedia

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/lexcorpus-backend/internal/platform/ctxutil"
	"github.com/yungbote/lexcorpus-backend/internal/platform/envutil"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
)

// Tools wraps the poppler and tesseract binaries used for PDF extraction.
//
// REQUIRED BINARIES:
// - pdfinfo, pdftotext, pdftoppm (poppler-utils)
// - tesseract, only when OCR_PROVIDER=tesseract
type Tools interface {
	AssertReady(ctx context.Context, binaries ...string) error

	CountPDFPages(ctx context.Context, pdfPath string) (int, error)
	PDFPageText(ctx context.Context, pdfPath string, page int) (string, error)
	RenderPDFPage(ctx context.Context, pdfPath string, outDir string, page int, opts PDFRenderOptions) (string, error)
	OCRImage(ctx context.Context, imagePath string, lang string) (string, error)

	WriteTempFile(ctx context.Context, data []byte, suffix string) (string, func(), error)
}

// CommandRunner executes an external binary and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), fmt.Errorf("%s failed: %w; stderr=%s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

type PDFRenderOptions struct {
	DPI    int
	Format string // "png" or "jpeg"
}

type tools struct {
	log    *logger.Logger
	runner CommandRunner

	pdfinfoPath   string
	pdftotextPath string
	pdftoppmPath  string
	tesseractPath string

	workRoot       string
	defaultTimeout time.Duration
}

func New(log *logger.Logger) Tools { return NewWithRunner(log, execRunner{}) }

func NewWithRunner(log *logger.Logger, runner CommandRunner) Tools {
	return &tools{
		log:            log.With("service", "MediaTools"),
		runner:         runner,
		pdfinfoPath:    envutil.String("PDFINFO_PATH", "pdfinfo"),
		pdftotextPath:  envutil.String("PDFTOTEXT_PATH", "pdftotext"),
		pdftoppmPath:   envutil.String("PDFTOPPM_PATH", "pdftoppm"),
		tesseractPath:  envutil.String("TESSERACT_PATH", "tesseract"),
		workRoot:       envutil.String("MEDIA_WORK_DIR", filepath.Join(os.TempDir(), "lexcorpus-media")),
		defaultTimeout: envutil.Seconds("MEDIA_TOOL_TIMEOUT_SECONDS", 2*time.Minute),
	}
}

func (m *tools) AssertReady(ctx context.Context, binaries ...string) error {
	if len(binaries) == 0 {
		binaries = []string{m.pdfinfoPath, m.pdftotextPath, m.pdftoppmPath}
	}
	for _, bin := range binaries {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("missing required binary %q in PATH: %w", bin, err)
		}
	}
	if err := os.MkdirAll(m.workRoot, 0o755); err != nil {
		return fmt.Errorf("create workRoot: %w", err)
	}
	return nil
}

func (m *tools) WriteTempFile(ctx context.Context, data []byte, suffix string) (string, func(), error) {
	if err := os.MkdirAll(m.workRoot, 0o755); err != nil {
		return "", func() {}, fmt.Errorf("mkdir workRoot: %w", err)
	}
	if suffix != "" && !strings.HasPrefix(suffix, ".") {
		suffix = "." + suffix
	}
	f, err := os.CreateTemp(m.workRoot, "upload-*"+suffix)
	if err != nil {
		return "", func() {}, fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return "", func() {}, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("close temp file: %w", err)
	}
	return path, cleanup, nil
}

func (m *tools) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()
	return m.runner.Run(ctx, name, args...)
}

func (m *tools) CountPDFPages(ctx context.Context, pdfPath string) (int, error) {
	if pdfPath == "" {
		return 0, fmt.Errorf("pdfPath required")
	}
	out, err := m.run(ctx, m.pdfinfoPath, pdfPath)
	if err != nil {
		return 0, fmt.Errorf("pdfinfo: %w", err)
	}
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		n, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil || n < 0 {
			continue
		}
		return n, nil
	}
	return 0, fmt.Errorf("pdfinfo output missing Pages field")
}

func (m *tools) PDFPageText(ctx context.Context, pdfPath string, page int) (string, error) {
	if page <= 0 {
		return "", fmt.Errorf("page must be >= 1")
	}
	p := strconv.Itoa(page)
	out, err := m.run(ctx, m.pdftotextPath, "-layout", "-enc", "UTF-8", "-f", p, "-l", p, pdfPath, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext page %d: %w", page, err)
	}
	return string(out), nil
}

func (m *tools) RenderPDFPage(ctx context.Context, pdfPath string, outDir string, page int, opts PDFRenderOptions) (string, error) {
	if pdfPath == "" {
		return "", fmt.Errorf("pdfPath required")
	}
	if outDir == "" {
		return "", fmt.Errorf("outDir required")
	}
	if page <= 0 {
		return "", fmt.Errorf("page must be >= 1")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir outDir: %w", err)
	}

	dpi := opts.DPI
	if dpi <= 0 {
		dpi = 300
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "png"
	}
	ext := ".png"
	flag := "-png"
	switch format {
	case "png":
	case "jpeg", "jpg":
		ext, flag = ".jpg", "-jpeg"
	default:
		return "", fmt.Errorf("unsupported render format: %s", format)
	}

	prefix := filepath.Join(outDir, fmt.Sprintf("page_%04d", page))
	p := strconv.Itoa(page)
	args := []string{"-r", strconv.Itoa(dpi), flag, "-singlefile", "-f", p, "-l", p, pdfPath, prefix}
	if _, err := m.run(ctx, m.pdftoppmPath, args...); err != nil {
		return "", fmt.Errorf("pdftoppm page %d: %w", page, err)
	}
	return prefix + ext, nil
}

func (m *tools) OCRImage(ctx context.Context, imagePath string, lang string) (string, error) {
	if imagePath == "" {
		return "", fmt.Errorf("imagePath required")
	}
	if strings.TrimSpace(lang) == "" {
		lang = "eng"
	}
	out, err := m.run(ctx, m.tesseractPath, imagePath, "stdout", "-l", lang)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return string(out), nil
}
