package textproc

import (
	"context"
	"sync"
)

// Result is the output of a pipeline pass: the text left to inject and the
// voice command detected along the way, if any.
type Result struct {
	Text    string
	Command *Command
}

// Stage is one step of the text pipeline. Stages receive the evolving result
// so later stages can react to a command detected earlier.
type Stage interface {
	Name() string
	Process(ctx context.Context, in Result) Result
}

type stageEntry struct {
	stage   Stage
	enabled bool
}

// Pipeline runs enabled stages in insertion order.
type Pipeline struct {
	mu     sync.RWMutex
	stages []stageEntry
}

func NewPipeline(stages ...Stage) *Pipeline {
	p := &Pipeline{}
	for _, s := range stages {
		p.Add(s)
	}
	return p
}

type Options struct {
	Commands     *CommandParser
	Snippets     SnippetSource
	Vocabulary   VocabularySource
	Clipboard    func() (string, error)
	Rewriter     Rewriter
	RewriteStyle RewriteStyle
	// Rewrite enables the language model stage, which is off by default.
	Rewrite bool
}

// NewDefaultPipeline wires the standard stage order: commands, punctuation,
// snippets, fillers, vocabulary, rewrite.
func NewDefaultPipeline(o Options) *Pipeline {
	commands := o.Commands
	if commands == nil {
		commands = NewCommandParser()
	}
	p := NewPipeline(
		commands,
		NewPunctuation(),
		NewSnippets(o.Snippets, o.Clipboard),
		NewFillers(),
		NewVocabulary(o.Vocabulary),
		NewRewriteStage(o.Rewriter, o.RewriteStyle),
	)
	p.SetEnabled("rewrite", o.Rewrite)
	return p
}

// Add appends an enabled stage.
func (p *Pipeline) Add(stage Stage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stages = append(p.stages, stageEntry{stage: stage, enabled: true})
}

// SetEnabled toggles the stage with the given name. It reports whether the
// stage exists.
func (p *Pipeline) SetEnabled(name string, enabled bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.stages {
		if p.stages[i].stage.Name() == name {
			p.stages[i].enabled = enabled
			return true
		}
	}
	return false
}

func (p *Pipeline) Enabled(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, e := range p.stages {
		if e.stage.Name() == name {
			return e.enabled
		}
	}
	return false
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.stages))
	for _, e := range p.stages {
		names = append(names, e.stage.Name())
	}
	return names
}

// Process threads text through every enabled stage. The first command a
// stage reports is kept; commands reported later are ignored.
func (p *Pipeline) Process(ctx context.Context, text string) Result {
	p.mu.RLock()
	stages := make([]Stage, 0, len(p.stages))
	for _, e := range p.stages {
		if e.enabled {
			stages = append(stages, e.stage)
		}
	}
	p.mu.RUnlock()

	current := Result{Text: text}
	for _, stage := range stages {
		out := stage.Process(ctx, current)
		current.Text = out.Text
		if current.Command == nil && out.Command != nil {
			cmd := *out.Command
			current.Command = &cmd
		}
	}
	return current
}
