package storage

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Entry is one logged dictation session.
type Entry struct {
	ID               string        `json:"id"`
	Timestamp        time.Time     `json:"timestamp"`
	Duration         time.Duration `json:"duration"`
	FinalText        string        `json:"text"`
	RawText          string        `json:"raw_text"`
	WordCount        int           `json:"word_count"`
	CharCount        int           `json:"char_count"`
	ModelUsed        string        `json:"model_used"`
	WasVoiceCommand  bool          `json:"was_voice_command"`
	VoiceCommandName string        `json:"voice_command_name,omitempty"`
	AudioPath        string        `json:"audio_path,omitempty"`
}

// NewEntry builds an entry with counts derived from the final text. An empty
// id gets a fresh UUID.
func NewEntry(id string, at time.Time, raw, final string) Entry {
	if id == "" {
		id = uuid.NewString()
	}
	return Entry{
		ID:        id,
		Timestamp: at,
		FinalText: final,
		RawText:   raw,
		WordCount: len(strings.Fields(final)),
		CharCount: utf8.RuneCountInString(final),
	}
}

// Day is the local calendar date of the entry.
func (e Entry) Day() string {
	return e.Timestamp.Local().Format(DayLayout)
}

const DayLayout = "2006-01-02"

type Window struct {
	Count     int           `json:"count"`
	Listening time.Duration `json:"listening"`
	Words     int           `json:"words"`
}

type Stats struct {
	Today Window `json:"today"`
	Week  Window `json:"week"`
	Total int    `json:"total"`
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}
