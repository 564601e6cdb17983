package services

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"
	"go.uber.org/zap"

	"resume-analyzer/internal/models"
)

var docxTagPattern = regexp.MustCompile(`<[^>]+>`)

type docxExtractor struct {
	logger *zap.Logger
}

// NewDOCXExtractor returns the word-processor extractor. There is no OCR
// fallback for DOCX; a parse failure is terminal for the ingestion stage.
func NewDOCXExtractor(logger *zap.Logger) FormatExtractor {
	return &docxExtractor{logger: logger}
}

func (d *docxExtractor) Extract(ctx context.Context, raw *models.RawDocument) (*models.ExtractedText, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader := bytes.NewReader(raw.Content)
	doc, err := docx.ReadDocxFromMemory(reader, int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	content := doc.Editable().GetContent()
	text := CleanText(stripDocxMarkup(content))

	// Structured text carries high confidence when anything came out.
	confidence := 0.95
	if text == "" {
		confidence = 0.0
	}

	return &models.ExtractedText{
		Text:       text,
		Method:     models.MethodWordProcessor,
		Confidence: confidence,
	}, nil
}

// stripDocxMarkup flattens the document XML into plain text, turning
// paragraph and break tags into newlines before dropping the rest.
func stripDocxMarkup(content string) string {
	content = strings.ReplaceAll(content, "</w:p>", "\n")
	content = strings.ReplaceAll(content, "<w:br/>", "\n")
	content = docxTagPattern.ReplaceAllString(content, " ")

	content = strings.ReplaceAll(content, "&amp;", "&")
	content = strings.ReplaceAll(content, "&lt;", "<")
	content = strings.ReplaceAll(content, "&gt;", ">")

	return content
}
