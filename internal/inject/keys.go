package inject

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/micmonay/keybd_event"
	"github.com/patrickmn/go-cache"
)

// Keystroke is a single key press with optional modifiers. Key is a
// keybd_event virtual key code.
type Keystroke struct {
	Key   int
	Ctrl  bool
	Cmd   bool
	Shift bool
}

func (k Keystroke) String() string {
	mods := ""
	if k.Ctrl {
		mods += "ctrl+"
	}
	if k.Cmd {
		mods += "cmd+"
	}
	if k.Shift {
		mods += "shift+"
	}
	return fmt.Sprintf("%s%d", mods, k.Key)
}

var Enter = Keystroke{Key: keybd_event.VK_ENTER}

// Shortcuts are the editing combinations of one platform.
type Shortcuts struct {
	Paste     Keystroke
	Undo      Keystroke
	SelectAll Keystroke
}

// ShortcutsFor builds the shortcuts for goos. macOS uses Command, everything
// else Control.
func ShortcutsFor(goos string) Shortcuts {
	primary := func(key int) Keystroke {
		if goos == "darwin" {
			return Keystroke{Key: key, Cmd: true}
		}
		return Keystroke{Key: key, Ctrl: true}
	}
	return Shortcuts{
		Paste:     primary(keybd_event.VK_V),
		Undo:      primary(keybd_event.VK_Z),
		SelectAll: primary(keybd_event.VK_A),
	}
}

var DefaultShortcuts = ShortcutsFor(runtime.GOOS)

type KeySender interface {
	Send(k Keystroke) error
}

// keyBonding is the part of keybd_event.KeyBonding that Keyboard drives.
type keyBonding interface {
	Clear()
	SetKeys(keys ...int)
	HasCTRL(b bool)
	HasSuper(b bool)
	HasSHIFT(b bool)
	Launching() error
}

// Keyboard sends keystrokes through a virtual input device.
type Keyboard struct {
	mu sync.Mutex
	kb keyBonding
}

func NewKeyboard() (*Keyboard, error) {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, fmt.Errorf("create virtual keyboard: %w", err)
	}
	// uinput needs a moment before the new device accepts events
	if runtime.GOOS == "linux" {
		time.Sleep(2 * time.Second)
	}
	return &Keyboard{kb: &kb}, nil
}

func (k *Keyboard) Send(stroke Keystroke) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.kb.Clear()
	k.kb.SetKeys(stroke.Key)
	k.kb.HasCTRL(stroke.Ctrl)
	// Command on macOS is the super modifier
	k.kb.HasSuper(stroke.Cmd)
	k.kb.HasSHIFT(stroke.Shift)
	if err := k.kb.Launching(); err != nil {
		return fmt.Errorf("send %s: %w", stroke, err)
	}
	return nil
}

const DefaultMarkTTL = 750 * time.Millisecond

// Marker remembers keystrokes this process generated so an input monitor can
// tell them apart from the user's own typing.
type Marker struct {
	marks *cache.Cache
}

func NewMarker(ttl time.Duration) *Marker {
	if ttl <= 0 {
		ttl = DefaultMarkTTL
	}
	return &Marker{marks: cache.New(ttl, 2*ttl)}
}

func (m *Marker) Mark(k Keystroke) {
	m.marks.SetDefault(k.String(), struct{}{})
}

func (m *Marker) IsSynthetic(k Keystroke) bool {
	_, ok := m.marks.Get(k.String())
	return ok
}

// send marks a keystroke before delivering it. A nil marker skips tagging.
func send(keys KeySender, marker *Marker, k Keystroke) error {
	if marker != nil {
		marker.Mark(k)
	}
	return keys.Send(k)
}
