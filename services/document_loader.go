package services

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"medical-rag-chatbot/internal/logger"
	"medical-rag-chatbot/internal/telemetry"
	"medical-rag-chatbot/models"

	"github.com/google/uuid"
)

// Ingest statuses recorded in ingest.documents.total
const (
	IngestStatusIndexed = "indexed"
	IngestStatusSkipped = "skipped"
)

// documentNamespace seeds deterministic document and chunk IDs.
var documentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("medical-rag-chatbot/documents"))

// SkippedFile is a supported file that could not be read.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// IngestReport lists what one Load call found.
type IngestReport struct {
	Documents   []models.Document
	Skipped     []SkippedFile
	Unsupported int
}

// DocumentLoader walks a directory and extracts every supported file.
type DocumentLoader struct {
	extractors map[string]Extractor
	log        *slog.Logger
	metrics    *telemetry.Metrics
}

// NewDocumentLoader registers the PDF and Excel extractors. A nil log uses
// the process logger.
func NewDocumentLoader(log *slog.Logger, metrics *telemetry.Metrics) *DocumentLoader {
	if log == nil {
		log = logger.Get()
	}
	return &DocumentLoader{
		extractors: map[string]Extractor{
			".pdf":  NewPDFExtractor(log),
			".xlsx": NewExcelExtractor(),
		},
		log:     log,
		metrics: metrics,
	}
}

// Register maps a lower-case file extension such as ".pdf" to an extractor.
func (l *DocumentLoader) Register(ext string, e Extractor) {
	l.extractors[strings.ToLower(ext)] = e
}

// Load walks dir in lexical order. Hidden entries are skipped. Unreadable
// files are reported and skipped; only a bad root or a cancelled context
// fails the walk.
func (l *DocumentLoader) Load(ctx context.Context, dir string) (*IngestReport, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read data directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data directory %s is not a directory", dir)
	}

	report := &IngestReport{}
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == dir {
				return walkErr
			}
			l.log.Warn("cannot read directory entry", "path", path, "error", walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		extractor, ok := l.extractors[ext]
		if !ok {
			l.log.Debug("skipping unsupported file", "path", path)
			report.Unsupported++
			return nil
		}

		pages, err := extractor.Extract(ctx, path)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			l.log.Warn("skipping unreadable document", "path", path, "error", err)
			report.Skipped = append(report.Skipped, SkippedFile{Path: path, Reason: err.Error()})
			l.metrics.RecordIngestDocument(IngestStatusSkipped)
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}
		doc := newDocument(path, filepath.ToSlash(rel), formatFor(ext), pages)
		report.Documents = append(report.Documents, doc)
		l.metrics.RecordIngestDocument(IngestStatusIndexed)
		l.log.Debug("document extracted", "path", path, "pages", doc.PageCount, "chars", utf8.RuneCountInString(doc.Text))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return report, nil
}

// newDocument joins page texts and records where each page starts.
func newDocument(path, key, format string, pages []string) models.Document {
	var sb strings.Builder
	offsets := make([]int, 0, len(pages))
	runes := 0
	for i, page := range pages {
		if i > 0 {
			sb.WriteString(models.PageSeparator)
			runes += utf8.RuneCountInString(models.PageSeparator)
		}
		offsets = append(offsets, runes)
		sb.WriteString(page)
		runes += utf8.RuneCountInString(page)
	}

	return models.Document{
		ID:          uuid.NewSHA1(documentNamespace, []byte(key)).String(),
		Path:        path,
		Format:      format,
		Text:        sb.String(),
		PageCount:   len(pages),
		PageOffsets: offsets,
	}
}

func formatFor(ext string) string {
	switch ext {
	case ".pdf":
		return models.FormatPDF
	case ".xlsx":
		return models.FormatExcel
	default:
		return strings.TrimPrefix(ext, ".")
	}
}
