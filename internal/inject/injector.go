package inject

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/atotto/clipboard"
)

const (
	DefaultSettleDelay  = 50 * time.Millisecond
	DefaultRestoreDelay = 200 * time.Millisecond
)

type Clipboard interface {
	Read() (string, error)
	Write(text string) error
}

// SystemClipboard is the desktop clipboard.
type SystemClipboard struct{}

func (SystemClipboard) Read() (string, error)   { return clipboard.ReadAll() }
func (SystemClipboard) Write(text string) error { return clipboard.WriteAll(text) }

// Injector types text at the cursor by pasting it, leaving the user's
// clipboard as it was.
type Injector struct {
	clipboard    Clipboard
	keys         KeySender
	marker       *Marker
	shortcuts    Shortcuts
	settleDelay  time.Duration
	restoreDelay time.Duration
	sleep        func(context.Context, time.Duration) error

	mu sync.Mutex
}

func NewInjector(cb Clipboard, keys KeySender, marker *Marker) *Injector {
	return &Injector{
		clipboard:    cb,
		keys:         keys,
		marker:       marker,
		shortcuts:    DefaultShortcuts,
		settleDelay:  DefaultSettleDelay,
		restoreDelay: DefaultRestoreDelay,
		sleep:        sleepContext,
	}
}

func (i *Injector) Inject(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	saved, readErr := i.clipboard.Read()
	if readErr != nil {
		log.Printf("warning: could not read clipboard, it will not be restored: %v", readErr)
	}
	if err := i.clipboard.Write(text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	if readErr == nil {
		defer func() {
			if err := i.clipboard.Write(saved); err != nil {
				log.Printf("warning: failed to restore clipboard: %v", err)
			}
		}()
	}

	if err := i.sleep(ctx, i.settleDelay); err != nil {
		return err
	}
	if err := send(i.keys, i.marker, i.shortcuts.Paste); err != nil {
		return fmt.Errorf("paste: %w", err)
	}
	// the target app reads the clipboard asynchronously
	_ = i.sleep(context.WithoutCancel(ctx), i.restoreDelay)
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
