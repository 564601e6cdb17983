package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"resume-analyzer/internal/models"
)

// FormatExtractor converts raw document bytes into plain text. Each
// implementation handles exactly one document family.
type FormatExtractor interface {
	Extract(ctx context.Context, raw *models.RawDocument) (*models.ExtractedText, error)
}

type pdfExtractor struct {
	logger *zap.Logger
}

// NewPDFExtractor returns the digital-text PDF extractor. It reads the
// embedded text layer only; scanned PDFs come back near-empty and are the
// OCR extractor's job.
func NewPDFExtractor(logger *zap.Logger) FormatExtractor {
	return &pdfExtractor{logger: logger}
}

func (p *pdfExtractor) Extract(ctx context.Context, raw *models.RawDocument) (*models.ExtractedText, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	var textBuilder strings.Builder
	totalPages := reader.NumPage()

	for pageIndex := 1; pageIndex <= totalPages; pageIndex++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			p.logger.Warn("pdf page extraction failed",
				zap.String("filename", raw.Filename),
				zap.Int("page", pageIndex),
				zap.Error(err))
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	text := CleanText(textBuilder.String())

	return &models.ExtractedText{
		Text:       text,
		Method:     models.MethodDigitalText,
		Confidence: textLayerConfidence(len(text), totalPages),
		PageCount:  totalPages,
	}, nil
}

// textLayerConfidence scales confidence with text density per page. A page
// of real resume text carries well over 200 characters.
func textLayerConfidence(textLen, pages int) float64 {
	if pages <= 0 {
		return 0
	}
	confidence := float64(textLen) / (float64(pages) * 200.0)
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

// CleanText normalizes extracted text: trims each line and drops empties.
func CleanText(text string) string {
	text = strings.TrimSpace(text)

	lines := strings.Split(text, "\n")
	var cleanedLines []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleanedLines = append(cleanedLines, line)
		}
	}

	return strings.Join(cleanedLines, "\n")
}
