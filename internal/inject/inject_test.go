package inject

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sjawhar/ghost-scribe/internal/textproc"
)

type fakeClipboard struct {
	mu      sync.Mutex
	content string
	readErr error
	writes  []string
}

func (c *fakeClipboard) Read() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.content, c.readErr
}

func (c *fakeClipboard) Write(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.content = text
	c.writes = append(c.writes, text)
	return nil
}

type fakeKeys struct {
	mu      sync.Mutex
	strokes []Keystroke
	seen    []string // clipboard content at paste time
	clip    *fakeClipboard
	err     error
}

func (k *fakeKeys) Send(stroke Keystroke) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.err != nil {
		return k.err
	}
	k.strokes = append(k.strokes, stroke)
	if k.clip != nil {
		content, _ := k.clip.Read()
		k.seen = append(k.seen, content)
	}
	return nil
}

func noSleep(calls *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*calls = append(*calls, d)
		return nil
	}
}

func TestInjectorPastesAndRestoresClipboard(t *testing.T) {
	clip := &fakeClipboard{content: "user data"}
	keys := &fakeKeys{clip: clip}
	marker := NewMarker(time.Minute)
	inj := NewInjector(clip, keys, marker)
	var sleeps []time.Duration
	inj.sleep = noSleep(&sleeps)

	if err := inj.Inject(context.Background(), "hello there"); err != nil {
		t.Fatalf("Inject failed: %v", err)
	}

	if len(keys.strokes) != 1 || keys.strokes[0] != DefaultShortcuts.Paste {
		t.Fatalf("expected one paste, got %v", keys.strokes)
	}
	if keys.seen[0] != "hello there" {
		t.Fatalf("clipboard at paste = %q", keys.seen[0])
	}
	if clip.content != "user data" {
		t.Fatalf("clipboard not restored: %q", clip.content)
	}
	if len(sleeps) != 2 || sleeps[0] != DefaultSettleDelay || sleeps[1] != DefaultRestoreDelay {
		t.Fatalf("unexpected delays: %v", sleeps)
	}
	if !marker.IsSynthetic(DefaultShortcuts.Paste) {
		t.Fatal("paste should be marked synthetic")
	}
}

func TestInjectorSkipsEmptyText(t *testing.T) {
	clip := &fakeClipboard{}
	keys := &fakeKeys{}
	inj := NewInjector(clip, keys, nil)

	if err := inj.Inject(context.Background(), ""); err != nil {
		t.Fatalf("Inject failed: %v", err)
	}
	if len(clip.writes) != 0 || len(keys.strokes) != 0 {
		t.Fatal("empty text must not touch clipboard or keyboard")
	}
}

func TestInjectorUnreadableClipboardIsNotRestored(t *testing.T) {
	clip := &fakeClipboard{readErr: errors.New("no display")}
	keys := &fakeKeys{}
	inj := NewInjector(clip, keys, nil)
	var sleeps []time.Duration
	inj.sleep = noSleep(&sleeps)

	if err := inj.Inject(context.Background(), "text"); err != nil {
		t.Fatalf("Inject failed: %v", err)
	}
	if len(clip.writes) != 1 || clip.writes[0] != "text" {
		t.Fatalf("unexpected clipboard writes: %v", clip.writes)
	}
}

func TestInjectorPasteFailureStillRestores(t *testing.T) {
	clip := &fakeClipboard{content: "keep me"}
	keys := &fakeKeys{err: errors.New("uinput closed")}
	inj := NewInjector(clip, keys, nil)
	var sleeps []time.Duration
	inj.sleep = noSleep(&sleeps)

	err := inj.Inject(context.Background(), "text")
	if err == nil || !strings.Contains(err.Error(), "paste") {
		t.Fatalf("expected paste error, got %v", err)
	}
	if clip.content != "keep me" {
		t.Fatalf("clipboard not restored: %q", clip.content)
	}
}

func TestExecutorKeystrokes(t *testing.T) {
	tests := []struct {
		cmd  textproc.Command
		want []Keystroke
	}{
		{textproc.Command{Kind: textproc.DeleteLast}, []Keystroke{DefaultShortcuts.Undo}},
		{textproc.Command{Kind: textproc.Undo}, []Keystroke{DefaultShortcuts.Undo}},
		{textproc.Command{Kind: textproc.SelectAll}, []Keystroke{DefaultShortcuts.SelectAll}},
		{textproc.Command{Kind: textproc.NewLine}, []Keystroke{Enter}},
		{textproc.Command{Kind: textproc.NewParagraph}, []Keystroke{Enter, Enter}},
		{textproc.Command{Kind: textproc.StopListening}, nil},
		{textproc.Command{Kind: textproc.Rewrite, Style: textproc.StyleFormal}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.cmd.Name(), func(t *testing.T) {
			keys := &fakeKeys{}
			marker := NewMarker(time.Minute)
			exec := NewExecutor(keys, marker)
			var sleeps []time.Duration
			exec.sleep = noSleep(&sleeps)

			if err := exec.Execute(context.Background(), tt.cmd); err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			if len(keys.strokes) != len(tt.want) {
				t.Fatalf("strokes = %v, want %v", keys.strokes, tt.want)
			}
			for i := range tt.want {
				if keys.strokes[i] != tt.want[i] {
					t.Fatalf("strokes = %v, want %v", keys.strokes, tt.want)
				}
				if !marker.IsSynthetic(tt.want[i]) {
					t.Fatalf("%s not marked synthetic", tt.want[i])
				}
			}
			if tt.cmd.Kind == textproc.NewParagraph && (len(sleeps) != 1 || sleeps[0] != DefaultParagraphGap) {
				t.Fatalf("expected paragraph gap, got %v", sleeps)
			}
		})
	}
}

func TestExecutorUnknownCommand(t *testing.T) {
	exec := NewExecutor(&fakeKeys{}, nil)
	if err := exec.Execute(context.Background(), textproc.Command{}); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestMarkerExpires(t *testing.T) {
	marker := NewMarker(20 * time.Millisecond)
	marker.Mark(Enter)
	if !marker.IsSynthetic(Enter) {
		t.Fatal("expected fresh mark")
	}
	if marker.IsSynthetic(DefaultShortcuts.Paste) {
		t.Fatal("unmarked keystroke reported synthetic")
	}
	time.Sleep(40 * time.Millisecond)
	if marker.IsSynthetic(Enter) {
		t.Fatal("mark should expire")
	}
}

func TestKeystrokeString(t *testing.T) {
	if got := (Keystroke{Key: 47, Ctrl: true, Shift: true}).String(); got != "ctrl+shift+47" {
		t.Fatalf("String() = %q", got)
	}
}

func TestShortcutsUseCommandOnDarwin(t *testing.T) {
	mac := ShortcutsFor("darwin")
	for _, k := range []Keystroke{mac.Paste, mac.Undo, mac.SelectAll} {
		if !k.Cmd || k.Ctrl {
			t.Fatalf("darwin shortcut %s should use command only", k)
		}
	}
	linux := ShortcutsFor("linux")
	for _, k := range []Keystroke{linux.Paste, linux.Undo, linux.SelectAll} {
		if k.Cmd || !k.Ctrl {
			t.Fatalf("linux shortcut %s should use control only", k)
		}
	}
	if mac.Paste.Key != linux.Paste.Key || mac.Paste.String() == linux.Paste.String() {
		t.Fatalf("paste keys differ in key or share a mark: %s vs %s", mac.Paste, linux.Paste)
	}
}

func TestExecutorAndInjectorOnDarwin(t *testing.T) {
	mac := ShortcutsFor("darwin")

	keys := &fakeKeys{}
	exec := NewExecutor(keys, nil)
	exec.shortcuts = mac
	for _, kind := range []textproc.Kind{textproc.DeleteLast, textproc.Undo, textproc.SelectAll} {
		if err := exec.Execute(context.Background(), textproc.Command{Kind: kind}); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	}
	want := []Keystroke{mac.Undo, mac.Undo, mac.SelectAll}
	if len(keys.strokes) != len(want) {
		t.Fatalf("strokes = %v, want %v", keys.strokes, want)
	}
	for i := range want {
		if keys.strokes[i] != want[i] {
			t.Fatalf("strokes = %v, want %v", keys.strokes, want)
		}
	}

	clip := &fakeClipboard{}
	pasteKeys := &fakeKeys{}
	inj := NewInjector(clip, pasteKeys, nil)
	inj.shortcuts = mac
	var sleeps []time.Duration
	inj.sleep = noSleep(&sleeps)
	if err := inj.Inject(context.Background(), "hi"); err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if len(pasteKeys.strokes) != 1 || !pasteKeys.strokes[0].Cmd {
		t.Fatalf("expected command paste, got %v", pasteKeys.strokes)
	}
}

type fakeBonding struct {
	keys              []int
	ctrl, super, shft bool
	launched          int
}

func (b *fakeBonding) Clear()              { *b = fakeBonding{launched: b.launched} }
func (b *fakeBonding) SetKeys(keys ...int) { b.keys = keys }
func (b *fakeBonding) HasCTRL(v bool)      { b.ctrl = v }
func (b *fakeBonding) HasSuper(v bool)     { b.super = v }
func (b *fakeBonding) HasSHIFT(v bool)     { b.shft = v }
func (b *fakeBonding) Launching() error    { b.launched++; return nil }

func TestKeyboardMapsCommandToSuper(t *testing.T) {
	kb := &fakeBonding{}
	k := &Keyboard{kb: kb}

	if err := k.Send(ShortcutsFor("darwin").Paste); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !kb.super || kb.ctrl || kb.launched != 1 {
		t.Fatalf("command paste sent as %+v", kb)
	}

	if err := k.Send(ShortcutsFor("linux").Undo); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if kb.super || !kb.ctrl || kb.launched != 2 {
		t.Fatalf("control undo sent as %+v", kb)
	}
}
