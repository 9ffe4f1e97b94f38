package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ThePyWizard/subgenie/internal/subtitle"
)

// LocalSTTConfig holds configuration for a self-hosted whisper server that
// speaks the OpenAI audio API (faster-whisper-server, LocalAI, whisper.cpp).
type LocalSTTConfig struct {
	BaseURL        string // default: "http://localhost:8178/v1"
	Model          string // default: "whisper-1"
	ResponseFormat string // default: "verbose_json"
	Timeout        time.Duration
}

// LocalSTT posts audio to a local whisper server. No API key is sent.
type LocalSTT struct {
	cfg        LocalSTTConfig
	httpClient *http.Client
}

// NewLocalSTT creates a LocalSTT backed by a local whisper HTTP server.
func NewLocalSTT(cfg LocalSTTConfig) *LocalSTT {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8178/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	if cfg.ResponseFormat == "" {
		cfg.ResponseFormat = FormatVerboseJSON
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}
	return &LocalSTT{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (l *LocalSTT) Name() string { return "local-whisper" }

func (l *LocalSTT) SupportsSegments() bool { return l.cfg.ResponseFormat == FormatVerboseJSON }

type localSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type localResponse struct {
	Text     string         `json:"text"`
	Language string         `json:"language"`
	Duration float64        `json:"duration"`
	Segments []localSegment `json:"segments"`
}

// Transcribe sends the audio file to the server using a multipart upload.
func (l *LocalSTT) Transcribe(ctx context.Context, req TranscriptionRequest) (*TranscriptionResponse, error) {
	f, err := os.Open(req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", filepath.Base(req.FilePath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err = io.Copy(fw, f); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}

	_ = mw.WriteField("model", l.cfg.Model)
	_ = mw.WriteField("response_format", l.cfg.ResponseFormat)

	endpoint := "/audio/transcriptions"
	if req.Task == TaskTranslate {
		endpoint = "/audio/translations"
	} else if req.Language != "" {
		_ = mw.WriteField("language", req.Language)
	}
	if req.Prompt != "" {
		_ = mw.WriteField("prompt", req.Prompt)
	}

	if err = mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, l.cfg.BaseURL+endpoint, &body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := l.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s transcription: %w", l.Name(), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &BackendError{Backend: l.Name(), StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var apiResp localResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	out := &TranscriptionResponse{
		Text:     apiResp.Text,
		Language: apiResp.Language,
		Duration: apiResp.Duration,
	}
	if l.SupportsSegments() {
		out.Segments = make([]subtitle.Segment, 0, len(apiResp.Segments))
		for _, seg := range apiResp.Segments {
			out.Segments = append(out.Segments, subtitle.Segment(seg))
		}
	}
	return out, nil
}
