package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"

	"medical-rag-chatbot/internal/logger"

	"github.com/ledongthuc/pdf"
)

// maxPDFSize caps in-memory extraction.
const maxPDFSize = 200 << 20

// Extractor turns one file into its page texts, in page order.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]string, error)
}

// PDFExtractor reads text page by page with ledongthuc/pdf.
type PDFExtractor struct {
	log *slog.Logger
}

func NewPDFExtractor(log *slog.Logger) *PDFExtractor {
	if log == nil {
		log = logger.Get()
	}
	return &PDFExtractor{log: log}
}

// Extract returns one string per page. Pages that fail to decode come back
// empty; a file that is not a readable PDF is an error.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (pages []string, err error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat PDF file: %w", err)
	}
	if stat.Size() > maxPDFSize {
		return nil, fmt.Errorf("pdf too large for in-memory extraction: %d bytes", stat.Size())
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF file: %w", err)
	}

	// The parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	n := reader.NumPage()
	pages = make([]string, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			e.log.Debug("failed to extract page text", "path", path, "page", i, "error", err)
			continue
		}
		pages[i-1] = text
	}

	return pages, nil
}
