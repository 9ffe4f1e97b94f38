package stt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ThePyWizard/subgenie/internal/subtitle"
)

// OpenAISTTConfig holds configuration for the OpenAI STT backend.
type OpenAISTTConfig struct {
	APIKey         string
	BaseURL        string // default: "https://api.openai.com/v1"
	Model          string // default: "whisper-1"
	ResponseFormat string // default: "verbose_json"
	Timeout        time.Duration
}

// OpenAISTT transcribes audio using OpenAI's Whisper API.
type OpenAISTT struct {
	cfg    OpenAISTTConfig
	client *openai.Client
}

// NewOpenAISTT creates an OpenAISTT with sensible defaults applied. A missing
// API key is not an error here; Transcribe reports it per call.
func NewOpenAISTT(cfg OpenAISTTConfig) *OpenAISTT {
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	if cfg.ResponseFormat == "" {
		cfg.ResponseFormat = FormatVerboseJSON
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAISTT{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
	}
}

func (o *OpenAISTT) Name() string { return "openai-whisper" }

func (o *OpenAISTT) SupportsSegments() bool { return o.cfg.ResponseFormat == FormatVerboseJSON }

// Transcribe uploads the file at req.FilePath. TaskTranslate uses the
// translations endpoint, which always answers in English.
func (o *OpenAISTT) Transcribe(ctx context.Context, req TranscriptionRequest) (*TranscriptionResponse, error) {
	if o.cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set: %w", ErrMissingCredential)
	}

	audioReq := openai.AudioRequest{
		Model:    o.cfg.Model,
		FilePath: req.FilePath,
		Prompt:   req.Prompt,
		Language: req.Language,
		Format:   openai.AudioResponseFormat(o.cfg.ResponseFormat),
	}

	var (
		resp openai.AudioResponse
		err  error
	)
	if req.Task == TaskTranslate {
		audioReq.Language = ""
		resp, err = o.client.CreateTranslation(ctx, audioReq)
	} else {
		resp, err = o.client.CreateTranscription(ctx, audioReq)
	}
	if err != nil {
		return nil, o.backendError(err)
	}

	out := &TranscriptionResponse{
		Text:     resp.Text,
		Language: resp.Language,
		Duration: resp.Duration,
	}
	if o.SupportsSegments() {
		out.Segments = make([]subtitle.Segment, 0, len(resp.Segments))
		for _, seg := range resp.Segments {
			out.Segments = append(out.Segments, subtitle.Segment{Start: seg.Start, End: seg.End, Text: seg.Text})
		}
	}
	return out, nil
}

func (o *OpenAISTT) backendError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &BackendError{Backend: o.Name(), StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := reqErr.Error()
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &BackendError{Backend: o.Name(), StatusCode: reqErr.HTTPStatusCode, Message: msg}
	}
	return fmt.Errorf("%s transcription: %w", o.Name(), err)
}
