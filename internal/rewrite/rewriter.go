// Package rewrite restyles dictated text with a language model.
package rewrite

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/sjawhar/ghost-scribe/internal/llm"
	"github.com/sjawhar/ghost-scribe/internal/textproc"
)

const baseInstruction = "You edit dictated text. Reply with only the rewritten text, no preamble, no quotes, no markdown."

var stylePrompts = map[textproc.RewriteStyle]string{
	textproc.StyleShorter:    "Make the text shorter while keeping its meaning.",
	textproc.StyleFormal:     "Rewrite the text in a formal, professional tone.",
	textproc.StyleCasual:     "Rewrite the text in a relaxed, conversational tone.",
	textproc.StyleFixGrammar: "Fix grammar, spelling and punctuation. Do not change the wording otherwise.",
}

var backoff = []time.Duration{1 * time.Second, 4 * time.Second, 16 * time.Second}

type Rewriter struct {
	model   string
	factory llm.Factory
	sleep   func(time.Duration)

	mu      sync.Mutex
	clients map[string]llm.Client
}

// New builds a Rewriter for a "provider/model" name.
func New(model string, factory llm.Factory) *Rewriter {
	return &Rewriter{
		model:   model,
		factory: factory,
		sleep:   time.Sleep,
		clients: make(map[string]llm.Client),
	}
}

func (r *Rewriter) Rewrite(ctx context.Context, text string, style textproc.RewriteStyle) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	instruction, ok := stylePrompts[style]
	if !ok {
		return "", fmt.Errorf("unknown rewrite style %q", style)
	}

	client, err := r.client()
	if err != nil {
		return "", err
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: baseInstruction + " " + instruction},
		{Role: llm.RoleUser, Content: text},
	}

	var lastErr error
	for attempt := range backoff {
		result, err := client.Complete(ctx, messages)
		if err == nil {
			return cleanResult(result), nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt < len(backoff)-1 {
			log.Printf("warning: rewrite (%s) attempt %d failed, retrying: %v", style, attempt+1, err)
			r.sleep(backoff[attempt])
		}
	}
	return "", fmt.Errorf("rewrite failed after retries: %w", lastErr)
}

func (r *Rewriter) client() (llm.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[r.model]; ok {
		return c, nil
	}

	provider, model, err := llm.ParseModel(r.model)
	if err != nil {
		return nil, err
	}
	c, err := r.factory(provider, model)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}
	r.clients[r.model] = c
	return c, nil
}

// cleanResult drops wrapping quotes some models add despite instructions.
func cleanResult(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
