package services

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"

	"resume-analyzer/internal/models"
)

type ocrExtractor struct {
	scratch  ScratchService
	language string
	dpi      int
	logger   *zap.Logger
}

// NewOCRExtractor returns the image-based PDF extractor. Pages are
// rendered to PNG in a scoped scratch directory and fed through Tesseract.
func NewOCRExtractor(scratch ScratchService, language string, dpi int, logger *zap.Logger) FormatExtractor {
	if language == "" {
		language = "eng"
	}
	if dpi <= 0 {
		dpi = 300
	}
	return &ocrExtractor{
		scratch:  scratch,
		language: language,
		dpi:      dpi,
		logger:   logger,
	}
}

func (o *ocrExtractor) Extract(ctx context.Context, raw *models.RawDocument) (*models.ExtractedText, error) {
	doc, err := fitz.NewFromMemory(raw.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	defer doc.Close()

	totalPages := doc.NumPage()

	var text string
	err = o.scratch.WithDir(func(dir string) error {
		client := gosseract.NewClient()
		defer client.Close()

		if err := client.SetLanguage(o.language); err != nil {
			return fmt.Errorf("failed to set OCR language: %w", err)
		}

		var recognized string
		for pageIndex := 0; pageIndex < totalPages; pageIndex++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			pagePath, err := o.renderPage(doc, dir, pageIndex)
			if err != nil {
				o.logger.Warn("ocr page render failed",
					zap.String("filename", raw.Filename),
					zap.Int("page", pageIndex+1),
					zap.Error(err))
				continue
			}

			if err := client.SetImage(pagePath); err != nil {
				return fmt.Errorf("failed to load page image: %w", err)
			}

			pageText, err := client.Text()
			if err != nil {
				o.logger.Warn("ocr recognition failed",
					zap.String("filename", raw.Filename),
					zap.Int("page", pageIndex+1),
					zap.Error(err))
				continue
			}

			recognized += pageText + "\n\n"
		}

		text = CleanText(recognized)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &models.ExtractedText{
		Text:       text,
		Method:     models.MethodOCR,
		Confidence: ocrConfidence(len(text), totalPages),
		PageCount:  totalPages,
	}, nil
}

func (o *ocrExtractor) renderPage(doc *fitz.Document, dir string, pageIndex int) (string, error) {
	img, err := doc.ImageDPI(pageIndex, float64(o.dpi))
	if err != nil {
		return "", fmt.Errorf("render page %d: %w", pageIndex+1, err)
	}

	pagePath := filepath.Join(dir, fmt.Sprintf("page_%03d.png", pageIndex+1))
	f, err := os.Create(pagePath)
	if err != nil {
		return "", fmt.Errorf("create page image: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return "", fmt.Errorf("encode page image: %w", err)
	}

	return pagePath, nil
}

// ocrConfidence is capped below the digital-text ceiling: recognition over
// rendered pages is never as reliable as an embedded text layer.
func ocrConfidence(textLen, pages int) float64 {
	if pages <= 0 {
		return 0
	}
	confidence := float64(textLen) / (float64(pages) * 150.0)
	if confidence > 0.8 {
		confidence = 0.8
	}
	return confidence
}
