package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const DefaultRecentLimit = 3

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		dbPath = filepath.Join("data", "ghost-scribe.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS transcriptions (
			id TEXT PRIMARY KEY,
			timestamp TEXT NOT NULL,
			day TEXT NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			text TEXT NOT NULL DEFAULT '',
			raw_text TEXT NOT NULL,
			word_count INTEGER NOT NULL DEFAULT 0,
			char_count INTEGER NOT NULL DEFAULT 0,
			model_used TEXT NOT NULL DEFAULT '',
			was_voice_command INTEGER NOT NULL DEFAULT 0,
			voice_command_name TEXT NOT NULL DEFAULT '',
			audio_path TEXT NOT NULL DEFAULT ''
		);
	`); err != nil {
		return fmt.Errorf("create transcriptions table: %w", err)
	}

	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_transcriptions_timestamp ON transcriptions(timestamp)"); err != nil {
		return fmt.Errorf("create timestamp index: %w", err)
	}
	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_transcriptions_day ON transcriptions(day)"); err != nil {
		return fmt.Errorf("create day index: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) Append(e Entry) error {
	if strings.TrimSpace(e.ID) == "" {
		return errors.New("entry id is required")
	}

	_, err := s.db.Exec(
		`INSERT INTO transcriptions(id, timestamp, day, duration_ms, text, raw_text, word_count, char_count,
			model_used, was_voice_command, voice_command_name, audio_path)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.Timestamp.UTC().Format(timeLayout),
		e.Day(),
		e.Duration.Milliseconds(),
		e.FinalText,
		e.RawText,
		e.WordCount,
		e.CharCount,
		e.ModelUsed,
		e.WasVoiceCommand,
		e.VoiceCommandName,
		e.AudioPath,
	)
	if err != nil {
		return fmt.Errorf("append transcription %s: %w", e.ID, err)
	}
	return nil
}

const entryColumns = `id, timestamp, duration_ms, text, raw_text, word_count, char_count,
	model_used, was_voice_command, voice_command_name, audio_path`

func (s *SQLiteStore) Get(id string) (Entry, error) {
	row := s.db.QueryRow(`SELECT `+entryColumns+` FROM transcriptions WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err != nil {
		return Entry{}, fmt.Errorf("query transcription %s: %w", id, err)
	}
	return e, nil
}

// ByDate returns the entries logged on a local calendar day, newest first.
func (s *SQLiteStore) ByDate(day string) ([]Entry, error) {
	rows, err := s.db.Query(
		`SELECT `+entryColumns+` FROM transcriptions WHERE day = ? ORDER BY timestamp DESC`,
		day,
	)
	if err != nil {
		return nil, fmt.Errorf("query transcriptions by date %s: %w", day, err)
	}
	defer func() { _ = rows.Close() }()

	return scanEntries(rows)
}

// Recent returns the newest dictations that produced text, skipping voice
// commands.
func (s *SQLiteStore) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	rows, err := s.db.Query(
		`SELECT `+entryColumns+` FROM transcriptions
		 WHERE was_voice_command = 0 AND text != ''
		 ORDER BY timestamp DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent transcriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanEntries(rows)
}

func (s *SQLiteStore) Dates() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT day FROM transcriptions ORDER BY day DESC`)
	if err != nil {
		return nil, fmt.Errorf("query dates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan date: %w", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dates rows: %w", err)
	}

	return dates, nil
}

// Stats aggregates today (local day of now), the trailing seven days, and the
// all-time count.
func (s *SQLiteStore) Stats(now time.Time) (Stats, error) {
	var stats Stats
	var listening int64

	today := now.Local().Format(DayLayout)
	if err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(duration_ms), 0), COALESCE(SUM(word_count), 0)
		 FROM transcriptions WHERE day = ?`,
		today,
	).Scan(&stats.Today.Count, &listening, &stats.Today.Words); err != nil {
		return Stats{}, fmt.Errorf("query today stats: %w", err)
	}
	stats.Today.Listening = time.Duration(listening) * time.Millisecond

	weekAgo := now.Add(-7 * 24 * time.Hour).UTC().Format(timeLayout)
	if err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(duration_ms), 0), COALESCE(SUM(word_count), 0)
		 FROM transcriptions WHERE timestamp >= ?`,
		weekAgo,
	).Scan(&stats.Week.Count, &listening, &stats.Week.Words); err != nil {
		return Stats{}, fmt.Errorf("query week stats: %w", err)
	}
	stats.Week.Listening = time.Duration(listening) * time.Millisecond

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM transcriptions`).Scan(&stats.Total); err != nil {
		return Stats{}, fmt.Errorf("query total count: %w", err)
	}

	return stats, nil
}

// DailyCounts returns one bucket per local day for the last days days, oldest
// first, including empty days.
func (s *SQLiteStore) DailyCounts(days int, now time.Time) ([]DailyCount, error) {
	if days <= 0 {
		days = 14
	}
	local := now.Local()
	start := time.Date(local.Year(), local.Month(), local.Day()-(days-1), 0, 0, 0, 0, local.Location())

	rows, err := s.db.Query(
		`SELECT day, COUNT(*) FROM transcriptions WHERE day >= ? GROUP BY day`,
		start.Format(DayLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("query daily counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byDay := make(map[string]int)
	for rows.Next() {
		var day string
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("scan daily count: %w", err)
		}
		byDay[day] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily counts: %w", err)
	}

	out := make([]DailyCount, 0, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format(DayLayout)
		out = append(out, DailyCount{Date: day, Count: byDay[day]})
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var e Entry
	var ts string
	var durationMS int64
	if err := row.Scan(&e.ID, &ts, &durationMS, &e.FinalText, &e.RawText, &e.WordCount, &e.CharCount,
		&e.ModelUsed, &e.WasVoiceCommand, &e.VoiceCommandName, &e.AudioPath); err != nil {
		return Entry{}, err
	}

	parsed, err := time.Parse(timeLayout, ts)
	if err != nil {
		return Entry{}, fmt.Errorf("parse timestamp for %s: %w", e.ID, err)
	}
	e.Timestamp = parsed
	e.Duration = time.Duration(durationMS) * time.Millisecond
	return e, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	entries := make([]Entry, 0, 16)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transcription: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcription rows: %w", err)
	}
	return entries, nil
}
