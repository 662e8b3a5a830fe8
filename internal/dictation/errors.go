package dictation

import "errors"

var (
	ErrPermissionDenied = errors.New("microphone permission not granted")
	ErrModelLoad        = errors.New("failed to load model")
	ErrCaptureStart     = errors.New("failed to start recording")
	ErrNoActiveSession  = errors.New("no active dictation session")
)

// AdvisoryLongSession is surfaced once a session has been listening for the
// long-session threshold.
const AdvisoryLongSession = "Still recording, long sessions may reduce accuracy"
