package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ThePyWizard/subgenie/internal/llm"
)

type fakeProvider struct {
	calls   int
	lastReq llm.ChatRequest
	resp    *llm.ChatResponse
	err     error
}

func (f *fakeProvider) ChatCompletion(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.calls++
	f.lastReq = req
	return f.resp, f.err
}

func (f *fakeProvider) Name() string     { return "fake" }
func (f *fakeProvider) Models() []string { return []string{"fake-1"} }

func TestTranslate(t *testing.T) {
	fp := &fakeProvider{resp: &llm.ChatResponse{Content: "Bonjour le monde"}}
	tr := NewTranslator(fp, "gpt-4o-mini")

	got, err := tr.Translate(t.Context(), "Hello world", "fr")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "Bonjour le monde" {
		t.Errorf("Translate = %q", got)
	}
	if fp.calls != 1 {
		t.Errorf("provider called %d times, want 1", fp.calls)
	}
	if fp.lastReq.Model != "gpt-4o-mini" || len(fp.lastReq.Messages) != 1 {
		t.Fatalf("unexpected request: %+v", fp.lastReq)
	}
	msg := fp.lastReq.Messages[0]
	if msg.Role != "user" || msg.Content != "Translate the following text to French:\n\nHello world" {
		t.Errorf("unexpected prompt: %+v", msg)
	}
}

func TestTranslateNoCandidate(t *testing.T) {
	tests := []struct {
		name string
		fp   *fakeProvider
	}{
		{"no choices", &fakeProvider{err: fmt.Errorf("openai chat: %w", llm.ErrNoCandidate)}},
		{"blank content", &fakeProvider{resp: &llm.ChatResponse{Content: "  \n"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTranslator(tt.fp, "m").Translate(t.Context(), "text", "de")
			if !errors.Is(err, ErrNoTranslation) {
				t.Fatalf("expected ErrNoTranslation, got %v", err)
			}
		})
	}
}

func TestTranslateProviderError(t *testing.T) {
	apiErr := &llm.APIError{Provider: "fake", StatusCode: 401, Message: "bad key"}
	_, err := NewTranslator(&fakeProvider{err: apiErr}, "m").Translate(t.Context(), "text", "de")

	var got *llm.APIError
	if !errors.As(err, &got) || got.StatusCode != 401 {
		t.Fatalf("expected wrapped APIError, got %v", err)
	}
	if errors.Is(err, ErrNoTranslation) {
		t.Fatal("provider error must not be reported as a missing candidate")
	}
}

func TestLanguageName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"fr", "French"},
		{"de", "German"},
		{"not a tag!", "not a tag!"},
	}

	for _, tt := range tests {
		if got := LanguageName(tt.input); got != tt.expected {
			t.Errorf("LanguageName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestNormalizeHint(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"en", "en"},
		{"pt-BR", "pt"},
		{" es ", "es"},
		{"not a tag!", "not a tag!"},
	}

	for _, tt := range tests {
		if got := NormalizeHint(tt.input); got != tt.expected {
			t.Errorf("NormalizeHint(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestBuildPromptKeepsText(t *testing.T) {
	text := "1\n00:00:00,000 --> 00:00:01,500\nHi"
	if got := BuildPrompt(text, "Klingon dialect"); !strings.HasSuffix(got, "\n\n"+text) {
		t.Errorf("prompt does not end with the source text: %q", got)
	}
}

func TestCustomPromptTemplate(t *testing.T) {
	fp := &fakeProvider{resp: &llm.ChatResponse{Content: "Hallo"}}
	tmpl := "You are a subtitle translator. Target: {{language}}.\n---\n{{text}}"
	tr := NewTranslator(fp, "m", WithPromptTemplate(tmpl))

	if _, err := tr.Translate(t.Context(), "Hello {{language}}", "de"); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	want := "You are a subtitle translator. Target: German.\n---\nHello {{language}}"
	if got := fp.lastReq.Messages[0].Content; got != want {
		t.Errorf("prompt = %q, want %q", got, want)
	}
}

func TestEmptyTemplateKeepsDefault(t *testing.T) {
	fp := &fakeProvider{resp: &llm.ChatResponse{Content: "Hola"}}
	tr := NewTranslator(fp, "m", WithPromptTemplate(""))

	if _, err := tr.Translate(t.Context(), "Hi", "es"); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got := fp.lastReq.Messages[0].Content; got != "Translate the following text to Spanish:\n\nHi" {
		t.Errorf("prompt = %q", got)
	}
}

func TestValidateTemplate(t *testing.T) {
	tests := []struct {
		tmpl    string
		wantErr bool
	}{
		{DefaultPromptTemplate, false},
		{"{{text}}", false},
		{"Translate into {{language}}", true},
		{"{{text}} for {{audience}}", true},
	}
	for _, tt := range tests {
		err := ValidateTemplate(tt.tmpl)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateTemplate(%q) error = %v, wantErr %v", tt.tmpl, err, tt.wantErr)
		}
	}
}
