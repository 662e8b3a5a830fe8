package gdrive

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/sjawhar/ghost-scribe/internal/storage"
)

const DefaultInterval = time.Minute

// remote is the slice of the Drive API the syncer needs.
type remote interface {
	find(name, folderID string) (string, error)
	create(name, folderID string, media io.Reader) (string, error)
	update(fileID string, media io.Reader) error
}

// Syncer mirrors daily journal files into a Drive folder as Google Docs. It
// is a storage.Appender: appends only mark the day dirty, and Run uploads
// dirty days in the background.
type Syncer struct {
	remote   remote
	folderID string
	pathFor  func(day string) string

	// dirty counts appends per day since its last upload
	mu    sync.Mutex
	dirty map[string]int

	// syncMu serializes uploads and guards fileIDs
	syncMu  sync.Mutex
	fileIDs map[string]string
}

func NewSyncer(ctx context.Context, credPath, folderID string, pathFor func(day string) string) (*Syncer, error) {
	creds, err := os.ReadFile(credPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	config, err := google.CredentialsFromJSONWithTypeAndParams(ctx, creds, google.ServiceAccount, google.CredentialsParams{Scopes: []string{drive.DriveFileScope}})
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	svc, err := drive.NewService(ctx, option.WithCredentials(config))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return newSyncer(driveRemote{svc: svc}, folderID, pathFor), nil
}

func newSyncer(r remote, folderID string, pathFor func(day string) string) *Syncer {
	return &Syncer{
		remote:   r,
		folderID: folderID,
		pathFor:  pathFor,
		fileIDs:  make(map[string]string),
		dirty:    make(map[string]int),
	}
}

func (s *Syncer) Append(e storage.Entry) error {
	if e.FinalText == "" {
		return nil
	}
	s.mu.Lock()
	s.dirty[e.Day()]++
	s.mu.Unlock()
	return nil
}

// Run uploads dirty days every interval and once more when ctx ends.
func (s *Syncer) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Flush()
		case <-ctx.Done():
			s.Flush()
			return
		}
	}
}

// Flush uploads every dirty day. Days that fail stay dirty for the next pass.
func (s *Syncer) Flush() {
	s.mu.Lock()
	seen := make(map[string]int, len(s.dirty))
	days := make([]string, 0, len(s.dirty))
	for day, n := range s.dirty {
		seen[day] = n
		days = append(days, day)
	}
	s.mu.Unlock()
	sort.Strings(days)

	for _, day := range days {
		if err := s.Sync(s.pathFor(day), day); err != nil {
			log.Printf("warning: drive sync for %s failed: %v", day, err)
			continue
		}
		s.mu.Lock()
		if s.dirty[day] == seen[day] {
			delete(s.dirty, day)
		}
		s.mu.Unlock()
	}
}

// Sync uploads one day's journal, creating the document on first upload.
func (s *Syncer) Sync(localPath, date string) error {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer func() { _ = f.Close() }()

	name := fmt.Sprintf("ghost-scribe-%s", date)

	fileID, ok := s.fileIDs[date]
	if !ok {
		// the document may exist from an earlier run
		fileID, err = s.remote.find(name, s.folderID)
		if err != nil {
			return fmt.Errorf("drive lookup: %w", err)
		}
	}

	if fileID != "" {
		if err := s.remote.update(fileID, f); err != nil {
			return fmt.Errorf("drive update: %w", err)
		}
		s.fileIDs[date] = fileID
		return nil
	}

	id, err := s.remote.create(name, s.folderID, f)
	if err != nil {
		return fmt.Errorf("drive create: %w", err)
	}
	s.fileIDs[date] = id
	return nil
}

type driveRemote struct {
	svc *drive.Service
}

func (d driveRemote) find(name, folderID string) (string, error) {
	q := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false", name, folderID)
	list, err := d.svc.Files.List().Q(q).Fields("files(id)").PageSize(1).Do()
	if err != nil {
		return "", err
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

func (d driveRemote) create(name, folderID string, media io.Reader) (string, error) {
	doc, err := d.svc.Files.Create(&drive.File{
		Name:     name,
		MimeType: "application/vnd.google-apps.document",
		Parents:  []string{folderID},
	}).Media(media).Do()
	if err != nil {
		return "", err
	}
	return doc.Id, nil
}

func (d driveRemote) update(fileID string, media io.Reader) error {
	_, err := d.svc.Files.Update(fileID, &drive.File{}).Media(media).Do()
	return err
}
