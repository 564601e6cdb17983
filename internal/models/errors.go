package models

import "fmt"

type Stage string

const (
	StageIngestion Stage = "ingestion"
	StageEntities  Stage = "entity_extraction"
	StageSemantic  Stage = "semantic_scoring"
	StageFeedback  Stage = "feedback_generation"
	StagePipeline  Stage = "pipeline"
)

type ErrorKind string

const (
	ErrUnsupportedFormat    ErrorKind = "UNSUPPORTED_FORMAT"
	ErrFileTooLarge         ErrorKind = "FILE_TOO_LARGE"
	ErrInsufficientText     ErrorKind = "INSUFFICIENT_TEXT"
	ErrModelUnavailable     ErrorKind = "MODEL_UNAVAILABLE"
	ErrSemanticAnalysis     ErrorKind = "SEMANTIC_ANALYSIS_FAILED"
	ErrAIServiceUnavailable ErrorKind = "AI_SERVICE_UNAVAILABLE"
	ErrTimeout              ErrorKind = "TIMEOUT"
)

// PipelineError is a classified terminal failure. It carries the stage at
// which processing stopped, a stable machine-readable kind, and a human
// message.
type PipelineError struct {
	Stage   Stage     `json:"stage"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Stage, e.Kind, e.Message)
}

func NewPipelineError(stage Stage, kind ErrorKind, format string, args ...any) *PipelineError {
	return &PipelineError{
		Stage:   stage,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}
