package services

import (
	"context"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"

	"resume-analyzer/internal/models"
)

type textExtractor struct {
	detector *chardet.Detector
	logger   *zap.Logger
}

// NewTextExtractor returns the plain-text extractor. Character encoding is
// detected from content; on detection or decode failure the bytes are
// decoded with a permissive single-byte encoding instead of failing.
func NewTextExtractor(logger *zap.Logger) FormatExtractor {
	return &textExtractor{
		detector: chardet.NewTextDetector(),
		logger:   logger,
	}
}

func (t *textExtractor) Extract(ctx context.Context, raw *models.RawDocument) (*models.ExtractedText, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text, confidence := t.decode(raw)

	return &models.ExtractedText{
		Text:       CleanText(text),
		Method:     models.MethodPlainText,
		Confidence: confidence,
	}, nil
}

func (t *textExtractor) decode(raw *models.RawDocument) (string, float64) {
	result, err := t.detector.DetectBest(raw.Content)
	if err != nil {
		t.logger.Warn("encoding detection failed, using permissive decode",
			zap.String("filename", raw.Filename),
			zap.Error(err))
		return permissiveDecode(raw.Content), 0.5
	}

	enc, err := ianaindex.IANA.Encoding(result.Charset)
	if err != nil || enc == nil {
		t.logger.Warn("detected charset has no decoder, using permissive decode",
			zap.String("filename", raw.Filename),
			zap.String("charset", result.Charset))
		return permissiveDecode(raw.Content), 0.5
	}

	decoded, err := enc.NewDecoder().Bytes(raw.Content)
	if err != nil || !utf8.Valid(decoded) {
		t.logger.Warn("decode with detected charset failed, using permissive decode",
			zap.String("filename", raw.Filename),
			zap.String("charset", result.Charset))
		return permissiveDecode(raw.Content), 0.5
	}

	confidence := float64(result.Confidence)/100.0 + 0.1
	if confidence > 0.95 {
		confidence = 0.95
	}

	return string(decoded), confidence
}

// permissiveDecode maps every byte to a character. Windows-1252 covers the
// common mojibake cases and never errors.
func permissiveDecode(content []byte) string {
	var enc encoding.Encoding = charmap.Windows1252
	decoded, err := enc.NewDecoder().Bytes(content)
	if err != nil {
		return string(content)
	}
	return string(decoded)
}
