package inject

import (
	"context"
	"fmt"
	"time"

	"github.com/sjawhar/ghost-scribe/internal/textproc"
)

const DefaultParagraphGap = 50 * time.Millisecond

// Executor turns voice commands into editing keystrokes.
type Executor struct {
	keys      KeySender
	marker    *Marker
	shortcuts Shortcuts
	gap       time.Duration
	sleep     func(context.Context, time.Duration) error
}

func NewExecutor(keys KeySender, marker *Marker) *Executor {
	return &Executor{
		keys:      keys,
		marker:    marker,
		shortcuts: DefaultShortcuts,
		gap:       DefaultParagraphGap,
		sleep:     sleepContext,
	}
}

func (e *Executor) Execute(ctx context.Context, cmd textproc.Command) error {
	switch cmd.Kind {
	case textproc.DeleteLast, textproc.Undo:
		return e.press(e.shortcuts.Undo)
	case textproc.SelectAll:
		return e.press(e.shortcuts.SelectAll)
	case textproc.NewLine:
		return e.press(Enter)
	case textproc.NewParagraph:
		if err := e.press(Enter); err != nil {
			return err
		}
		if err := e.sleep(ctx, e.gap); err != nil {
			return err
		}
		return e.press(Enter)
	case textproc.StopListening, textproc.Rewrite:
		// handled before execution
		return nil
	default:
		return fmt.Errorf("unsupported command %s", cmd)
	}
}

func (e *Executor) press(k Keystroke) error {
	if err := send(e.keys, e.marker, k); err != nil {
		return fmt.Errorf("send %s: %w", k, err)
	}
	return nil
}
