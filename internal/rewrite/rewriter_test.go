package rewrite

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sjawhar/ghost-scribe/internal/llm"
	"github.com/sjawhar/ghost-scribe/internal/textproc"
)

type mockLLMClient struct {
	calls        int
	failures     int
	response     string
	err          error
	lastMessages []llm.Message
}

func (m *mockLLMClient) Complete(_ context.Context, messages []llm.Message) (string, error) {
	m.calls++
	m.lastMessages = append([]llm.Message(nil), messages...)
	if m.err != nil && m.calls <= m.failures {
		return "", m.err
	}
	return m.response, nil
}

func TestRewriteUsesStylePrompt(t *testing.T) {
	client := &mockLLMClient{response: "  \"Could you please send the report?\"  "}
	factoryCalls := 0

	r := New("openai/gpt-4o-mini", func(provider, model string) (llm.Client, error) {
		if provider != "openai" {
			t.Fatalf("expected provider openai, got %q", provider)
		}
		if model != "gpt-4o-mini" {
			t.Fatalf("expected model gpt-4o-mini, got %q", model)
		}
		factoryCalls++
		return client, nil
	})
	r.sleep = func(time.Duration) {}

	got, err := r.Rewrite(context.Background(), "send me the report", textproc.StyleFormal)
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	if got != "Could you please send the report?" {
		t.Fatalf("unexpected rewrite %q", got)
	}
	if len(client.lastMessages) != 2 || client.lastMessages[0].Role != llm.RoleSystem {
		t.Fatalf("unexpected messages: %#v", client.lastMessages)
	}
	if !strings.Contains(client.lastMessages[0].Content, "formal") {
		t.Fatalf("system prompt missing style: %q", client.lastMessages[0].Content)
	}
	if client.lastMessages[1].Content != "send me the report" {
		t.Fatalf("user message = %q", client.lastMessages[1].Content)
	}

	if _, err := r.Rewrite(context.Background(), "again", textproc.StyleShorter); err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	if factoryCalls != 1 {
		t.Fatalf("expected client to be reused, factory called %d times", factoryCalls)
	}
}

func TestRewriteRetriesWithBackoff(t *testing.T) {
	client := &mockLLMClient{response: "fixed", err: errors.New("rate limited"), failures: 2}
	var sleeps []time.Duration

	r := New("anthropic/claude-haiku", func(string, string) (llm.Client, error) { return client, nil })
	r.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }

	got, err := r.Rewrite(context.Background(), "me and him goes", textproc.StyleFixGrammar)
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	if got != "fixed" || client.calls != 3 {
		t.Fatalf("got %q after %d calls", got, client.calls)
	}
	if len(sleeps) != 2 || sleeps[0] != time.Second || sleeps[1] != 4*time.Second {
		t.Fatalf("unexpected backoff: %v", sleeps)
	}
}

func TestRewriteGivesUpAfterRetries(t *testing.T) {
	client := &mockLLMClient{err: errors.New("down"), failures: 10}
	r := New("gemini/flash", func(string, string) (llm.Client, error) { return client, nil })
	r.sleep = func(time.Duration) {}

	_, err := r.Rewrite(context.Background(), "text", textproc.StyleCasual)
	if err == nil || !strings.Contains(err.Error(), "after retries") {
		t.Fatalf("expected retry exhaustion, got %v", err)
	}
	if client.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", client.calls)
	}
}

func TestRewriteRejectsBadInput(t *testing.T) {
	r := New("not-a-model", func(string, string) (llm.Client, error) {
		t.Fatal("factory should not be called")
		return nil, nil
	})

	if _, err := r.Rewrite(context.Background(), "text", textproc.StyleFormal); err == nil {
		t.Fatal("expected model parse error")
	}
	if _, err := r.Rewrite(context.Background(), "text", "pirate"); err == nil {
		t.Fatal("expected unknown style error")
	}
	if got, err := r.Rewrite(context.Background(), "   ", textproc.StyleFormal); err != nil || got != "" {
		t.Fatalf("blank text should pass through, got %q, %v", got, err)
	}
}

func TestRewriterInPipeline(t *testing.T) {
	client := &mockLLMClient{response: "Please send it."}
	r := New("openai/gpt-4o-mini", func(string, string) (llm.Client, error) { return client, nil })

	p := textproc.NewDefaultPipeline(textproc.Options{Rewriter: r, Rewrite: true})
	res := p.Process(context.Background(), "um send it make it formal")

	if res.Text != "Please send it." {
		t.Fatalf("pipeline text = %q", res.Text)
	}
	if res.Command == nil || res.Command.Style != textproc.StyleFormal {
		t.Fatalf("expected formal rewrite command, got %+v", res.Command)
	}
	if client.lastMessages[1].Content != "send it" {
		t.Fatalf("rewriter saw %q", client.lastMessages[1].Content)
	}
}
