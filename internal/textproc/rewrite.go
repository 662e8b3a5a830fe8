package textproc

import (
	"context"
	"log"
	"strings"
)

type Rewriter interface {
	Rewrite(ctx context.Context, text string, style RewriteStyle) (string, error)
}

// RewriteStage passes text through a language model. A rewrite command
// detected earlier in the pass selects the style; otherwise the default style
// applies, and an empty default leaves the text alone.
type RewriteStage struct {
	rewriter     Rewriter
	defaultStyle RewriteStyle
}

func NewRewriteStage(rewriter Rewriter, defaultStyle RewriteStyle) *RewriteStage {
	return &RewriteStage{rewriter: rewriter, defaultStyle: defaultStyle}
}

func (r *RewriteStage) Name() string { return "rewrite" }

func (r *RewriteStage) Process(ctx context.Context, in Result) Result {
	style := r.defaultStyle
	if in.Command != nil && in.Command.Kind == Rewrite {
		style = in.Command.Style
	}
	if r.rewriter == nil || style == "" || strings.TrimSpace(in.Text) == "" {
		return Result{Text: in.Text}
	}

	out, err := r.rewriter.Rewrite(ctx, in.Text, style)
	if err != nil {
		log.Printf("warning: rewrite (%s) failed, keeping original text: %v", style, err)
		return Result{Text: in.Text}
	}
	if strings.TrimSpace(out) == "" {
		return Result{Text: in.Text}
	}
	return Result{Text: out}
}
