package services

import (
	"context"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"resume-analyzer/internal/models"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeText = "text/plain"
)

// IngestService turns an uploaded document into normalized text, choosing
// and falling back between format extractors.
type IngestService interface {
	Ingest(ctx context.Context, raw *models.RawDocument) (*models.ExtractedText, error)
}

type ingestService struct {
	pdf         FormatExtractor
	ocr         FormatExtractor
	docx        FormatExtractor
	text        FormatExtractor
	maxFileSize int64
	minTextLen  int
	logger      *zap.Logger
}

func NewIngestService(
	pdf FormatExtractor,
	ocr FormatExtractor,
	docx FormatExtractor,
	text FormatExtractor,
	maxFileSize int64,
	minTextLen int,
	logger *zap.Logger,
) IngestService {
	return &ingestService{
		pdf:         pdf,
		ocr:         ocr,
		docx:        docx,
		text:        text,
		maxFileSize: maxFileSize,
		minTextLen:  minTextLen,
		logger:      logger,
	}
}

func (s *ingestService) Ingest(ctx context.Context, raw *models.RawDocument) (*models.ExtractedText, error) {
	// Size gate comes before any parsing: oversized input is rejected
	// without doing partial work.
	if s.maxFileSize > 0 && int64(len(raw.Content)) > s.maxFileSize {
		return nil, models.NewPipelineError(models.StageIngestion, models.ErrFileTooLarge,
			"file size %d bytes exceeds maximum allowed size of %d bytes", len(raw.Content), s.maxFileSize)
	}

	// The caller-declared MIME type is advisory only; the content decides.
	detected := mimetype.Detect(raw.Content)
	if raw.MimeType != "" && !detected.Is(raw.MimeType) {
		s.logger.Warn("declared mime type does not match content",
			zap.String("filename", raw.Filename),
			zap.String("declared", raw.MimeType),
			zap.String("detected", detected.String()))
	}

	switch {
	case detected.Is(mimePDF):
		return s.ingestPDF(ctx, raw)
	case detected.Is(mimeDOCX):
		return s.ingestTerminal(ctx, raw, s.docx)
	case detected.Is(mimeText):
		return s.ingestTerminal(ctx, raw, s.text)
	default:
		return nil, models.NewPipelineError(models.StageIngestion, models.ErrUnsupportedFormat,
			"unsupported file format: %s (supported: pdf, docx, txt)", detected.String())
	}
}

// ingestPDF runs the digital text layer first and falls back to OCR when
// the result is too short to be a real resume, which usually means the PDF
// is a scan.
func (s *ingestService) ingestPDF(ctx context.Context, raw *models.RawDocument) (*models.ExtractedText, error) {
	digital, err := s.pdf.Extract(ctx, raw)
	if err != nil {
		s.logger.Warn("digital text extraction failed, trying OCR",
			zap.String("filename", raw.Filename),
			zap.Error(err))
	} else if len(digital.Text) >= s.minTextLen {
		return digital, nil
	} else {
		s.logger.Info("digital text below threshold, trying OCR",
			zap.String("filename", raw.Filename),
			zap.Int("text_length", len(digital.Text)),
			zap.Int("threshold", s.minTextLen))
	}

	ocr, ocrErr := s.ocr.Extract(ctx, raw)
	if ocrErr != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// OCR failed outright; the digital result is still usable when it
		// produced anything at all.
		if digital != nil && len(digital.Text) > 0 {
			if len(digital.Text) < s.minTextLen {
				return nil, s.insufficientText(len(digital.Text))
			}
			return digital, nil
		}
		return nil, models.NewPipelineError(models.StageIngestion, models.ErrInsufficientText,
			"extraction failed for both text layer and OCR: %v", ocrErr)
	}

	if len(ocr.Text) >= s.minTextLen {
		return ocr, nil
	}

	// Neither path produced enough text. Prefer whichever is non-empty for
	// the error context, but the stage fails either way.
	longest := len(ocr.Text)
	if digital != nil && len(digital.Text) > longest {
		longest = len(digital.Text)
	}
	return nil, s.insufficientText(longest)
}

func (s *ingestService) ingestTerminal(ctx context.Context, raw *models.RawDocument, extractor FormatExtractor) (*models.ExtractedText, error) {
	extracted, err := extractor.Extract(ctx, raw)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, models.NewPipelineError(models.StageIngestion, models.ErrInsufficientText,
			"extraction failed: %v", err)
	}

	if len(extracted.Text) < s.minTextLen {
		return nil, s.insufficientText(len(extracted.Text))
	}

	return extracted, nil
}

func (s *ingestService) insufficientText(got int) *models.PipelineError {
	return models.NewPipelineError(models.StageIngestion, models.ErrInsufficientText,
		"extracted %d characters, need at least %d for meaningful analysis", got, s.minTextLen)
}
