package transcription

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/ThePyWizard/subgenie/internal/multimodal/stt"
	"github.com/ThePyWizard/subgenie/internal/subtitle"
	"github.com/ThePyWizard/subgenie/internal/translate"
)

const (
	// LanguagePlaceholder is reported when the backend does not detect a language.
	LanguagePlaceholder = "Not provided by API"
	// SubtitlesPlaceholder is reported when the backend has no segment timing.
	SubtitlesPlaceholder = "Not available with Whisper API"
)

// Translator translates finished transcripts.
type Translator interface {
	Translate(ctx context.Context, text, target string) (string, error)
}

// Options selects the behaviour of one endpoint.
type Options struct {
	// Translate runs the chat translation step into TargetLanguage.
	Translate      bool
	TargetLanguage string
	// LanguageHint is forwarded to the transcription backend.
	LanguageHint string
	// EchoOutputLanguage copies TargetLanguage into the result.
	EchoOutputLanguage bool
	// AudioTask selects whisper's transcribe or translate-to-English task.
	AudioTask stt.Task
	// TranslateSubtitles sends the SRT block instead of the plain text to
	// the translator when the backend produced segments.
	TranslateSubtitles bool
}

// Job is one uploaded file plus the options of the endpoint that received it.
type Job struct {
	Upload   io.Reader
	Filename string
	Options  Options
}

// Result is the per-request outcome. It is never persisted.
type Result struct {
	Text           string
	Language       string
	OutputLanguage string
	TranslatedText string
	Subtitles      string
	Segments       int
}

type ServiceConfig struct {
	UploadDir          string
	STTTimeout         time.Duration
	TranslationTimeout time.Duration
}

// Service is shared by all requests; it holds no per-request state.
type Service struct {
	stt        stt.STTProvider
	translator Translator
	cfg        ServiceConfig
}

func NewService(provider stt.STTProvider, translator Translator, cfg ServiceConfig) *Service {
	if cfg.UploadDir == "" {
		cfg.UploadDir = os.TempDir()
	}
	if cfg.STTTimeout == 0 {
		cfg.STTTimeout = 300 * time.Second
	}
	if cfg.TranslationTimeout == 0 {
		cfg.TranslationTimeout = 120 * time.Second
	}
	return &Service{stt: provider, translator: translator, cfg: cfg}
}

// Process stores the upload in a temp file, transcribes it and optionally
// translates the transcript. Failures are returned as *Error. The temp file
// is gone when Process returns.
func (s *Service) Process(ctx context.Context, job Job) (*Result, error) {
	var result *Result
	err := WithTempFile(s.cfg.UploadDir, job.Filename, job.Upload, func(path string) error {
		r, err := s.run(ctx, path, job.Options)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) run(ctx context.Context, path string, opts Options) (*Result, error) {
	start := time.Now()

	sttCtx, cancel := context.WithTimeout(ctx, s.cfg.STTTimeout)
	defer cancel()

	task := opts.AudioTask
	if task == "" {
		task = stt.TaskTranscribe
	}
	resp, err := s.stt.Transcribe(sttCtx, stt.TranscriptionRequest{
		FilePath: path,
		Language: translate.NormalizeHint(opts.LanguageHint),
		Task:     task,
	})
	if err != nil {
		return nil, transcriptionError(err)
	}

	result := &Result{
		Text:      resp.Text,
		Language:  resp.Language,
		Subtitles: SubtitlesPlaceholder,
		Segments:  len(resp.Segments),
	}
	if result.Language == "" {
		result.Language = LanguagePlaceholder
	}
	if s.stt.SupportsSegments() {
		result.Subtitles = subtitle.BuildSRT(resp.Segments)
	}
	if opts.EchoOutputLanguage {
		result.OutputLanguage = opts.TargetLanguage
	}

	slog.Info("transcription complete",
		"backend", s.stt.Name(),
		"task", task,
		"language", resp.Language,
		"segments", len(resp.Segments),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if !opts.Translate {
		return result, nil
	}

	if s.translator == nil {
		return nil, configurationError("translation is not configured", nil)
	}

	source := resp.Text
	if opts.TranslateSubtitles && s.stt.SupportsSegments() && len(resp.Segments) > 0 {
		source = result.Subtitles
	}

	trCtx, trCancel := context.WithTimeout(ctx, s.cfg.TranslationTimeout)
	defer trCancel()

	translated, err := s.translator.Translate(trCtx, source, opts.TargetLanguage)
	if err != nil {
		return nil, translationError(err)
	}
	result.TranslatedText = translated

	return result, nil
}
