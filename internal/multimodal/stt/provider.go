package stt

import (
	"context"
	"fmt"

	"github.com/ThePyWizard/subgenie/internal/config"
	"github.com/ThePyWizard/subgenie/internal/subtitle"
)

// Task selects between plain transcription and whisper's translate-to-English task.
type Task string

const (
	TaskTranscribe Task = "transcribe"
	TaskTranslate  Task = "translate"
)

// Response formats understood by whisper-compatible servers.
const (
	FormatJSON        = "json"
	FormatVerboseJSON = "verbose_json"
)

// TranscriptionRequest holds the parameters for audio transcription.
type TranscriptionRequest struct {
	FilePath string `json:"file_path"`
	Language string `json:"language,omitempty"`
	Prompt   string `json:"prompt,omitempty"`
	Task     Task   `json:"task,omitempty"`
}

// TranscriptionResponse holds the transcription result. Segments is only
// populated by providers whose SupportsSegments reports true.
type TranscriptionResponse struct {
	Text     string             `json:"text"`
	Language string             `json:"language"`
	Duration float64            `json:"duration"`
	Segments []subtitle.Segment `json:"segments,omitempty"`
}

// STTProvider is the interface for speech-to-text backends. Implementations
// are shared across requests and must be safe for concurrent use.
type STTProvider interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) (*TranscriptionResponse, error)
	Name() string
	// SupportsSegments reports whether responses carry per-segment timing.
	SupportsSegments() bool
}

// New builds the provider selected by cfg.Backend.
func New(cfg config.STTConfig) (STTProvider, error) {
	switch cfg.Backend {
	case config.STTBackendOpenAI:
		return NewOpenAISTT(OpenAISTTConfig{
			APIKey:         cfg.OpenAIKey,
			BaseURL:        cfg.OpenAIBaseURL,
			Model:          cfg.OpenAIModel,
			ResponseFormat: cfg.ResponseFormat,
			Timeout:        cfg.Timeout,
		}), nil
	case config.STTBackendLocal:
		return NewLocalSTT(LocalSTTConfig{
			BaseURL:        cfg.LocalBaseURL,
			Model:          cfg.OpenAIModel,
			ResponseFormat: cfg.ResponseFormat,
			Timeout:        cfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown STT backend %q", cfg.Backend)
	}
}
