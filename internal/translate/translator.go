package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/ThePyWizard/subgenie/internal/llm"
)

// ErrNoTranslation is returned when the chat provider yields no usable candidate.
var ErrNoTranslation = errors.New("GPT Translation failed")

// Translator turns transcribed text into another language through a chat provider.
type Translator struct {
	provider llm.Provider
	model    string
	template string
}

type Option func(*Translator)

// WithPromptTemplate replaces DefaultPromptTemplate. Check tmpl with
// ValidateTemplate first; an empty tmpl keeps the default.
func WithPromptTemplate(tmpl string) Option {
	return func(t *Translator) {
		if tmpl != "" {
			t.template = tmpl
		}
	}
}

func NewTranslator(provider llm.Provider, model string, opts ...Option) *Translator {
	t := &Translator{provider: provider, model: model, template: DefaultPromptTemplate}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Translate issues a single chat completion and returns the first candidate.
func (t *Translator) Translate(ctx context.Context, text, target string) (string, error) {
	resp, err := t.provider.ChatCompletion(ctx, llm.ChatRequest{
		Model: t.model,
		Messages: []llm.Message{
			{Role: "user", Content: buildPrompt(t.template, text, target)},
		},
	})
	if err != nil {
		if errors.Is(err, llm.ErrNoCandidate) {
			return "", ErrNoTranslation
		}
		return "", fmt.Errorf("translate to %s: %w", target, err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", ErrNoTranslation
	}

	slog.Debug("translation complete",
		"provider", resp.Provider,
		"model", resp.Model,
		"target", target,
		"total_tokens", resp.TotalTokens,
		"cost_usd", resp.CostUSD,
		"latency_ms", resp.LatencyMs,
	)
	return resp.Content, nil
}

// BuildPrompt embeds text and the target language in DefaultPromptTemplate.
func BuildPrompt(text, target string) string {
	return buildPrompt(DefaultPromptTemplate, text, target)
}

func buildPrompt(tmpl, text, target string) string {
	return render(tmpl, map[string]string{"language": LanguageName(target), "text": text})
}

// LanguageName expands a BCP 47 code ("fr", "pt-BR") to its English name.
// Anything that is not a known tag ("French", "Klingon") is returned as given.
func LanguageName(target string) string {
	tag, err := language.Parse(target)
	if err != nil {
		return target
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return target
}

// NormalizeHint reduces a language hint to the ISO 639 base code whisper
// expects ("pt-BR" → "pt"). Unparseable hints are passed through unchanged.
func NormalizeHint(hint string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return ""
	}
	tag, err := language.Parse(hint)
	if err != nil {
		return hint
	}
	base, conf := tag.Base()
	if conf == language.No {
		return hint
	}
	return base.String()
}
