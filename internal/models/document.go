package models

// RawDocument is an uploaded file before any processing. The pipeline
// consumes it once during ingestion and never persists it.
type RawDocument struct {
	Content  []byte `json:"-"`
	MimeType string `json:"mime_type"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

type ExtractionMethod string

const (
	MethodDigitalText   ExtractionMethod = "digital_text"
	MethodOCR           ExtractionMethod = "ocr"
	MethodWordProcessor ExtractionMethod = "word_processor"
	MethodPlainText     ExtractionMethod = "plain_text"
	// MethodDirectInput marks resume text supplied by the caller without a file.
	MethodDirectInput ExtractionMethod = "direct_input"
)

// ExtractedText is the normalized output of document ingestion.
type ExtractedText struct {
	Text       string           `json:"text"`
	Method     ExtractionMethod `json:"method"`
	Confidence float64          `json:"confidence"`
	PageCount  int              `json:"page_count,omitempty"`
}
