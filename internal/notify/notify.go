package notify

import (
	"log"

	"github.com/gen2brain/beeep"
)

const appName = "Ghost Scribe"

// Desktop plays start/stop cues and raises desktop notifications.
type Desktop struct {
	sounds bool
	beep   func(freq float64, duration int) error
	notify func(title, message string) error
}

func NewDesktop(sounds bool) *Desktop {
	return &Desktop{
		sounds: sounds,
		beep:   beeep.Beep,
		notify: func(title, message string) error { return beeep.Notify(title, message, "") },
	}
}

func (d *Desktop) SessionStarted() {
	d.cue(880)
}

func (d *Desktop) SessionStopped() {
	d.cue(440)
}

func (d *Desktop) Advisory(message string) {
	if err := d.notify(appName, message); err != nil {
		log.Printf("warning: desktop notification failed: %v", err)
	}
}

func (d *Desktop) cue(freq float64) {
	if !d.sounds {
		return
	}
	if err := d.beep(freq, 120); err != nil {
		log.Printf("warning: sound cue failed: %v", err)
	}
}
