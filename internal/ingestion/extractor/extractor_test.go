package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/lexcorpus-backend/internal/platform/localmedia"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
)

type fakeTools struct {
	pages    []string
	countErr error
}

func (f *fakeTools) AssertReady(ctx context.Context, binaries ...string) error { return nil }

func (f *fakeTools) CountPDFPages(ctx context.Context, pdfPath string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return len(f.pages), nil
}

func (f *fakeTools) PDFPageText(ctx context.Context, pdfPath string, page int) (string, error) {
	return f.pages[page-1], nil
}

func (f *fakeTools) RenderPDFPage(ctx context.Context, pdfPath, outDir string, page int, opts localmedia.PDFRenderOptions) (string, error) {
	return "", nil
}

func (f *fakeTools) OCRImage(ctx context.Context, imagePath, lang string) (string, error) {
	return "", nil
}

func (f *fakeTools) WriteTempFile(ctx context.Context, data []byte, suffix string) (string, func(), error) {
	return "/tmp/fake.pdf", func() {}, nil
}

type fakeOCR struct {
	text  string
	err   error
	pages []int
}

func (o *fakeOCR) Name() string { return "fake" }

func (o *fakeOCR) OCRPage(ctx context.Context, pdfPath, workDir string, page int) (string, error) {
	o.pages = append(o.pages, page)
	return o.text, o.err
}

var pdfBytes = []byte("%PDF-1.4\n...")

func TestExtractJoinsPagesAndCleans(t *testing.T) {
	tools := &fakeTools{pages: []string{
		"Section 5 of the Evidence Act governs admissi-\nbility.\n\n  1  \n",
		"See also Section 6.\n2\n",
	}}
	x := New(logger.Nop(), tools, nil, Config{})
	res, err := x.Extract(context.Background(), pdfBytes, "evidence.pdf")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "Section 5 of the Evidence Act governs admissibility. See also Section 6."
	if res.Text != want {
		t.Fatalf("text: want=%q got=%q", want, res.Text)
	}
	if res.Pages != 2 || res.OCRPages != 0 {
		t.Fatalf("pages: want=2/0 got=%d/%d", res.Pages, res.OCRPages)
	}
}

func TestExtractFallsBackToOCRPerPage(t *testing.T) {
	tools := &fakeTools{pages: []string{"Embedded text page.", "   \n", ""}}
	ocr := &fakeOCR{text: "Scanned page."}
	x := New(logger.Nop(), tools, ocr, Config{MaxOCRPages: 1})
	res, err := x.Extract(context.Background(), pdfBytes, "scan.pdf")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(ocr.pages) != 1 || ocr.pages[0] != 2 {
		t.Fatalf("ocr pages: want=[2] got=%v", ocr.pages)
	}
	if res.OCRPages != 1 {
		t.Fatalf("OCRPages: want=1 got=%d", res.OCRPages)
	}
	if res.Text != "Embedded text page. Scanned page." {
		t.Fatalf("text: got=%q", res.Text)
	}
}

func TestExtractErrors(t *testing.T) {
	x := New(logger.Nop(), &fakeTools{pages: []string{"x"}}, nil, Config{})
	_, err := x.Extract(context.Background(), []byte("PK\x03\x04 zip"), "a.pdf")
	var ee *ExtractionError
	if !errors.As(err, &ee) || ee.Reason != ReasonNotPDF || ee.Filename != "a.pdf" {
		t.Fatalf("not pdf: got=%v", err)
	}

	boom := errors.New("Syntax Error: Couldn't find trailer dictionary")
	x = New(logger.Nop(), &fakeTools{countErr: boom}, nil, Config{})
	_, err = x.Extract(context.Background(), pdfBytes, "b.pdf")
	if !errors.As(err, &ee) || ee.Reason != ReasonUnreadable || !errors.Is(err, boom) {
		t.Fatalf("unreadable: got=%v", err)
	}

	ocr := &fakeOCR{err: errors.New("tesseract missing")}
	x = New(logger.Nop(), &fakeTools{pages: []string{"", "12"}}, ocr, Config{MaxOCRPages: 5})
	_, err = x.Extract(context.Background(), pdfBytes, "c.pdf")
	if !errors.As(err, &ee) || ee.Reason != ReasonNoText {
		t.Fatalf("no text: got=%v", err)
	}
	if !IsExtractionError(err) {
		t.Fatalf("IsExtractionError: want=true")
	}
}

func TestClean(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"markers", "--- Page 1 ---\nA rule.\n--- Page 2 ---\nAn exception.", "A rule. An exception."},
		{"inline marker", "end of page --- Page 14 --- start", "end of page start"},
		{"lone numbers", "Text here.\n 17 \nPage 18\nMore text.", "Text here. More text."},
		{"numbers in prose kept", "Section 12\nof the Act", "Section 12 of the Act"},
		{"whitespace", "a\t\tb\r\n\nc d", "a b c d"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		if got := Clean(tc.in); got != tc.want {
			t.Fatalf("%s: want=%q got=%q", tc.name, tc.want, got)
		}
	}
}
