package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ThePyWizard/subgenie/internal/multimodal/stt"
	"github.com/ThePyWizard/subgenie/internal/transcription"
)

// Processor runs one transcription job.
type Processor interface {
	Process(ctx context.Context, job transcription.Job) (*transcription.Result, error)
}

// Variant describes how one endpoint drives the shared transcription flow.
type Variant struct {
	Name string
	// Translate runs the chat translation into {output_language}.
	Translate bool
	// LanguageHint forwards {output_language} to the transcription backend.
	LanguageHint bool
	// EchoOutputLanguage adds output_language to the response.
	EchoOutputLanguage bool
	// AudioTranslate uses whisper's translate-to-English task.
	AudioTranslate bool
	// TranslateSubtitles translates the SRT block instead of the plain text.
	TranslateSubtitles bool
}

var (
	VariantTranscribe = Variant{Name: "transcribe", Translate: true, AudioTranslate: true, TranslateSubtitles: true}
	VariantV1         = Variant{Name: "v1"}
	VariantV2         = Variant{Name: "v2", LanguageHint: true, EchoOutputLanguage: true}
	VariantV3         = Variant{Name: "v3", Translate: true, EchoOutputLanguage: true}
)

func (v Variant) options(outputLanguage string) transcription.Options {
	opts := transcription.Options{
		Translate:          v.Translate,
		TargetLanguage:     outputLanguage,
		EchoOutputLanguage: v.EchoOutputLanguage,
		AudioTask:          stt.TaskTranscribe,
		TranslateSubtitles: v.TranslateSubtitles,
	}
	if v.LanguageHint {
		opts.LanguageHint = outputLanguage
	}
	if v.AudioTranslate {
		opts.AudioTask = stt.TaskTranslate
	}
	return opts
}

type transcribeResponse struct {
	Transcription    string  `json:"transcription"`
	DetectedLanguage string  `json:"detected_language"`
	OutputLanguage   *string `json:"output_language,omitempty"`
	TranslatedText   *string `json:"translated_text,omitempty"`
	SRTSubtitles     string  `json:"srt_subtitles"`
}

type TranscribeHandler struct {
	svc      Processor
	maxBytes int64
}

func NewTranscribeHandler(svc Processor, maxBytes int64) *TranscribeHandler {
	return &TranscribeHandler{svc: svc, maxBytes: maxBytes}
}

// Handle returns the endpoint for v. The upload is streamed straight from the
// multipart body into the service.
func (h *TranscribeHandler) Handle(v Variant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		outputLanguage := chi.URLParam(r, "output_language")
		if (v.Translate || v.LanguageHint || v.EchoOutputLanguage) && outputLanguage == "" {
			writeDetail(w, http.StatusBadRequest, "output_language is required")
			return
		}

		if h.maxBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
		}
		mr, err := r.MultipartReader()
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "expected multipart/form-data: "+err.Error())
			return
		}

		for {
			part, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				writeDetail(w, http.StatusBadRequest, "missing form field: file")
				return
			}
			if err != nil {
				var maxErr *http.MaxBytesError
				if errors.As(err, &maxErr) {
					writeDetail(w, http.StatusRequestEntityTooLarge, "uploaded file is too large")
					return
				}
				writeDetail(w, http.StatusBadRequest, "malformed multipart body: "+err.Error())
				return
			}
			if part.FormName() != "file" {
				part.Close()
				continue
			}

			result, err := h.svc.Process(r.Context(), transcription.Job{
				Upload:   part,
				Filename: part.FileName(),
				Options:  v.options(outputLanguage),
			})
			part.Close()
			if err != nil {
				writeError(w, r, v, err)
				return
			}
			writeJSON(w, http.StatusOK, toResponse(v, result))
			return
		}
	}
}

func toResponse(v Variant, res *transcription.Result) transcribeResponse {
	resp := transcribeResponse{
		Transcription:    res.Text,
		DetectedLanguage: res.Language,
		SRTSubtitles:     res.Subtitles,
	}
	if v.EchoOutputLanguage {
		lang := res.OutputLanguage
		resp.OutputLanguage = &lang
	}
	if v.Translate {
		text := res.TranslatedText
		resp.TranslatedText = &text
	}
	return resp
}

// writeError is the only place a failed job becomes an HTTP response.
func writeError(w http.ResponseWriter, r *http.Request, v Variant, err error) {
	var te *transcription.Error
	if !errors.As(err, &te) {
		slog.Error("transcription request failed", "variant", v.Name, "error", err)
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	attrs := []any{"variant", v.Name, "kind", te.Kind, "status", te.Status, "error", te}
	if te.Err != nil {
		attrs = append(attrs, "cause", te.Err)
	}
	if te.Status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "transcription request failed", attrs...)
	} else {
		slog.WarnContext(r.Context(), "transcription request rejected", attrs...)
	}
	writeDetail(w, te.Status, te.Detail)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
