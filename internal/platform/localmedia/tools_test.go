package localmedia

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
)

type call struct {
	name string
	args []string
}

type mockRunner struct {
	output []byte
	err    error
	calls  []call
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.calls = append(m.calls, call{name: name, args: args})
	return m.output, m.err
}

func TestCountPDFPagesParsesPdfinfo(t *testing.T) {
	r := &mockRunner{output: []byte("Title:  Evidence Act\nPages:          12\nEncrypted: no\n")}
	tl := NewWithRunner(logger.Nop(), r)
	n, err := tl.CountPDFPages(context.Background(), "/tmp/a.pdf")
	if err != nil {
		t.Fatalf("CountPDFPages: %v", err)
	}
	if n != 12 {
		t.Fatalf("pages: want=12 got=%d", n)
	}
}

func TestCountPDFPagesMissingField(t *testing.T) {
	r := &mockRunner{output: []byte("Title: x\n")}
	tl := NewWithRunner(logger.Nop(), r)
	if _, err := tl.CountPDFPages(context.Background(), "/tmp/a.pdf"); err == nil {
		t.Fatalf("expected error for missing Pages field")
	}
}

func TestPDFPageTextArgs(t *testing.T) {
	r := &mockRunner{output: []byte("Section 5 of the Evidence Act")}
	tl := NewWithRunner(logger.Nop(), r)
	text, err := tl.PDFPageText(context.Background(), "/tmp/a.pdf", 3)
	if err != nil {
		t.Fatalf("PDFPageText: %v", err)
	}
	if text != "Section 5 of the Evidence Act" {
		t.Fatalf("text: got=%q", text)
	}
	got := strings.Join(r.calls[0].args, " ")
	if got != "-layout -enc UTF-8 -f 3 -l 3 /tmp/a.pdf -" {
		t.Fatalf("args: got=%q", got)
	}
}

func TestRunnerErrorsAreWrapped(t *testing.T) {
	boom := errors.New("exit status 1")
	r := &mockRunner{err: boom}
	tl := NewWithRunner(logger.Nop(), r)
	_, err := tl.OCRImage(context.Background(), "/tmp/p.png", "")
	if !errors.Is(err, boom) {
		t.Fatalf("OCRImage: want wrapped %v got=%v", boom, err)
	}
	if got := r.calls[0].args; len(got) != 4 || got[3] != "eng" {
		t.Fatalf("tesseract args: got=%v", got)
	}
}

func TestRenderPDFPageReturnsSingleFilePath(t *testing.T) {
	r := &mockRunner{}
	tl := NewWithRunner(logger.Nop(), r)
	dir := t.TempDir()
	p, err := tl.RenderPDFPage(context.Background(), "/tmp/a.pdf", dir, 2, PDFRenderOptions{})
	if err != nil {
		t.Fatalf("RenderPDFPage: %v", err)
	}
	if !strings.HasSuffix(p, "page_0002.png") {
		t.Fatalf("path: got=%q", p)
	}
	if _, err := tl.RenderPDFPage(context.Background(), "/tmp/a.pdf", dir, 0, PDFRenderOptions{}); err == nil {
		t.Fatalf("expected error for page 0")
	}
}

func TestWriteTempFile(t *testing.T) {
	t.Setenv("MEDIA_WORK_DIR", t.TempDir())
	tl := NewWithRunner(logger.Nop(), &mockRunner{})
	path, cleanup, err := tl.WriteTempFile(context.Background(), []byte("%PDF-1.4"), "pdf")
	if err != nil {
		t.Fatalf("WriteTempFile: %v", err)
	}
	if !strings.HasSuffix(path, ".pdf") {
		t.Fatalf("suffix: got=%q", path)
	}
	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("cleanup did not remove %s", path)
	}
}
