package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/ThePyWizard/subgenie/internal/llm"
	"github.com/ThePyWizard/subgenie/internal/multimodal/stt"
	"github.com/ThePyWizard/subgenie/internal/subtitle"
	"github.com/ThePyWizard/subgenie/internal/transcription"
	"github.com/ThePyWizard/subgenie/internal/translate"
)

type fakeSTT struct {
	segments bool
	resp     *stt.TranscriptionResponse
	err      error
	calls    int
	req      stt.TranscriptionRequest
}

func (f *fakeSTT) Transcribe(_ context.Context, req stt.TranscriptionRequest) (*stt.TranscriptionResponse, error) {
	f.calls++
	f.req = req
	return f.resp, f.err
}

func (f *fakeSTT) Name() string           { return "fake-stt" }
func (f *fakeSTT) SupportsSegments() bool { return f.segments }

type fakeChat struct {
	resp  *llm.ChatResponse
	err   error
	calls int
	req   llm.ChatRequest
}

func (f *fakeChat) ChatCompletion(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.calls++
	f.req = req
	return f.resp, f.err
}

func (f *fakeChat) Name() string     { return "fake-chat" }
func (f *fakeChat) Models() []string { return []string{"fake-model"} }

type testServer struct {
	router http.Handler
	dir    string
}

func newTestServer(t *testing.T, s stt.STTProvider, chat llm.Provider, maxBytes int64) *testServer {
	t.Helper()
	dir := t.TempDir()
	svc := transcription.NewService(s, translate.NewTranslator(chat, "fake-model"), transcription.ServiceConfig{UploadDir: dir})
	h := NewTranscribeHandler(svc, maxBytes)

	r := chi.NewRouter()
	r.Post("/transcribe/{output_language}", h.Handle(VariantTranscribe))
	r.Post("/transcription/v1/transcribe", h.Handle(VariantV1))
	r.Post("/transcription/v2/transcribe/{output_language}", h.Handle(VariantV2))
	r.Post("/transcription/v3/transcribe_and_translate_gpt/{output_language}", h.Handle(VariantV3))
	return &testServer{router: r, dir: dir}
}

func (ts *testServer) upload(t *testing.T, path, field string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("comment", "ignored"); err != nil {
		t.Fatal(err)
	}
	if field != "" {
		fw, err := mw.CreateFormFile(field, "clip.wav")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(content)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) assertNoTempFiles(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(ts.dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("upload dir not empty: %d entries", len(entries))
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestV1ReturnsPlaceholders(t *testing.T) {
	fs := &fakeSTT{resp: &stt.TranscriptionResponse{Text: "hello world"}}
	chat := &fakeChat{}
	ts := newTestServer(t, fs, chat, 0)

	rec := ts.upload(t, "/transcription/v1/transcribe", "file", []byte("RIFF"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	out := decode(t, rec)
	if out["transcription"] != "hello world" {
		t.Errorf("transcription = %v", out["transcription"])
	}
	if out["detected_language"] != transcription.LanguagePlaceholder {
		t.Errorf("detected_language = %v", out["detected_language"])
	}
	if out["srt_subtitles"] != transcription.SubtitlesPlaceholder {
		t.Errorf("srt_subtitles = %v", out["srt_subtitles"])
	}
	for _, k := range []string{"output_language", "translated_text"} {
		if _, ok := out[k]; ok {
			t.Errorf("v1 response should not contain %s", k)
		}
	}
	if chat.calls != 0 {
		t.Errorf("chat called %d times", chat.calls)
	}
	ts.assertNoTempFiles(t)
}

func TestV2ForwardsHintAndEchoesLanguage(t *testing.T) {
	fs := &fakeSTT{
		segments: true,
		resp: &stt.TranscriptionResponse{
			Text:     "hola",
			Language: "spanish",
			Segments: []subtitle.Segment{{Start: 0, End: 1.5, Text: "hola"}},
		},
	}
	ts := newTestServer(t, fs, &fakeChat{}, 0)

	rec := ts.upload(t, "/transcription/v2/transcribe/es", "file", []byte("audio"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	out := decode(t, rec)
	if out["output_language"] != "es" {
		t.Errorf("output_language = %v", out["output_language"])
	}
	if fs.req.Language != "es" {
		t.Errorf("hint forwarded = %q, want es", fs.req.Language)
	}
	if out["srt_subtitles"] != "1\n00:00:00,000 --> 00:00:01,500\nhola" {
		t.Errorf("srt_subtitles = %q", out["srt_subtitles"])
	}
	if _, ok := out["translated_text"]; ok {
		t.Error("v2 does not translate")
	}
}

func TestV3TranslatesTranscript(t *testing.T) {
	fs := &fakeSTT{resp: &stt.TranscriptionResponse{Text: "good morning", Language: "english"}}
	chat := &fakeChat{resp: &llm.ChatResponse{Content: "buenos días"}}
	ts := newTestServer(t, fs, chat, 0)

	rec := ts.upload(t, "/transcription/v3/transcribe_and_translate_gpt/es", "file", []byte("audio"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	out := decode(t, rec)
	if out["translated_text"] != "buenos días" {
		t.Errorf("translated_text = %v", out["translated_text"])
	}
	if out["output_language"] != "es" {
		t.Errorf("output_language = %v", out["output_language"])
	}
	if fs.req.Language != "" {
		t.Errorf("v3 must not forward a hint, got %q", fs.req.Language)
	}
	if chat.calls != 1 {
		t.Errorf("chat calls = %d, want 1", chat.calls)
	}
	if !strings.Contains(chat.req.Messages[0].Content, "good morning") {
		t.Errorf("prompt = %q", chat.req.Messages[0].Content)
	}
}

func TestV3NoCandidate(t *testing.T) {
	fs := &fakeSTT{resp: &stt.TranscriptionResponse{Text: "good morning"}}
	chat := &fakeChat{err: llm.ErrNoCandidate}
	ts := newTestServer(t, fs, chat, 0)

	rec := ts.upload(t, "/transcription/v3/transcribe_and_translate_gpt/fr", "file", []byte("audio"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if got := decode(t, rec)["detail"]; got != "GPT Translation failed" {
		t.Errorf("detail = %v", got)
	}
	ts.assertNoTempFiles(t)
}

func TestTranscribeUsesAudioTranslateTask(t *testing.T) {
	fs := &fakeSTT{
		segments: true,
		resp: &stt.TranscriptionResponse{
			Text:     "hello",
			Language: "english",
			Segments: []subtitle.Segment{{Start: 0, End: 2, Text: "hello"}},
		},
	}
	chat := &fakeChat{resp: &llm.ChatResponse{Content: "1\n00:00:00,000 --> 00:00:02,000\nhallo"}}
	ts := newTestServer(t, fs, chat, 0)

	rec := ts.upload(t, "/transcribe/de", "file", []byte("audio"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if fs.req.Task != stt.TaskTranslate {
		t.Errorf("task = %q, want translate", fs.req.Task)
	}
	if !strings.Contains(chat.req.Messages[0].Content, "00:00:00,000 --> 00:00:02,000") {
		t.Errorf("expected SRT block in prompt, got %q", chat.req.Messages[0].Content)
	}
	out := decode(t, rec)
	if _, ok := out["output_language"]; ok {
		t.Error("/transcribe does not echo output_language")
	}
	if out["translated_text"] == "" {
		t.Error("missing translated_text")
	}
}

func TestBackendFailureKeepsStatusAndCleansUp(t *testing.T) {
	fs := &fakeSTT{err: &stt.BackendError{Backend: "openai", StatusCode: http.StatusUnauthorized, Message: "Incorrect API key provided"}}
	chat := &fakeChat{}
	ts := newTestServer(t, fs, chat, 0)

	rec := ts.upload(t, "/transcription/v3/transcribe_and_translate_gpt/es", "file", []byte("audio"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if got := decode(t, rec)["detail"]; got != "Incorrect API key provided" {
		t.Errorf("detail = %v", got)
	}
	if chat.calls != 0 {
		t.Error("translation must not run after a failed transcription")
	}
	ts.assertNoTempFiles(t)
}

func TestMissingFilePart(t *testing.T) {
	fs := &fakeSTT{}
	ts := newTestServer(t, fs, &fakeChat{}, 0)

	rec := ts.upload(t, "/transcription/v1/transcribe", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if fs.calls != 0 {
		t.Error("backend called without a file")
	}
}

func TestNotMultipart(t *testing.T) {
	ts := newTestServer(t, &fakeSTT{}, &fakeChat{}, 0)

	req := httptest.NewRequest(http.MethodPost, "/transcription/v1/transcribe", strings.NewReader(`{"file":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadTooLarge(t *testing.T) {
	fs := &fakeSTT{resp: &stt.TranscriptionResponse{Text: "x"}}
	ts := newTestServer(t, fs, &fakeChat{}, 1024)

	rec := ts.upload(t, "/transcription/v1/transcribe", "file", bytes.Repeat([]byte("a"), 64*1024))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413 (body %s)", rec.Code, rec.Body.String())
	}
	if fs.calls != 0 {
		t.Error("backend called for oversized upload")
	}
	ts.assertNoTempFiles(t)
}

type stubProcessor struct{ err error }

func (s stubProcessor) Process(context.Context, transcription.Job) (*transcription.Result, error) {
	return nil, s.err
}

func TestWriteErrorUntyped(t *testing.T) {
	h := NewTranscribeHandler(stubProcessor{err: errors.New("boom")}, 0)
	r := chi.NewRouter()
	r.Post("/transcription/v1/transcribe", h.Handle(VariantV1))
	ts := &testServer{router: r, dir: t.TempDir()}

	rec := ts.upload(t, "/transcription/v1/transcribe", "file", []byte("audio"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if got := decode(t, rec)["detail"]; got != "boom" {
		t.Errorf("detail = %v", got)
	}
}
