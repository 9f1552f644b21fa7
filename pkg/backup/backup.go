package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

const snapshotPrefix = "snapshot-"

// Snapshot is one point-in-time export. Sections are opaque to this package;
// the caller decides what goes in ("notes", "categories", ...) and how to
// read it back.
type Snapshot struct {
	Version   string                     `json:"version"`
	CreatedAt time.Time                  `json:"created_at"`
	Sections  map[string]json.RawMessage `json:"sections"`
}

// Storage persists named snapshot blobs.
type Storage interface {
	Save(ctx context.Context, name string, data io.Reader) error
	Load(ctx context.Context, name string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// Service writes and reads snapshots against a Storage backend.
type Service struct {
	storage Storage
	version string
}

func NewService(storage Storage, version string) *Service {
	return &Service{
		storage: storage,
		version: version,
	}
}

// Write persists the snapshot and returns its name. Names embed the creation
// timestamp, so lexical order is chronological order.
func (s *Service) Write(ctx context.Context, snap *Snapshot) (string, error) {
	snap.Version = s.version
	snap.CreatedAt = time.Now().UTC()

	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	name := fmt.Sprintf("%s%s.json", snapshotPrefix, snap.CreatedAt.Format("20060102-150405"))
	if err := s.storage.Save(ctx, name, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to save snapshot: %w", err)
	}
	return name, nil
}

// Read loads one snapshot by name.
func (s *Service) Read(ctx context.Context, name string) (*Snapshot, error) {
	reader, err := s.storage.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// List returns all snapshot names, oldest first.
func (s *Service) List(ctx context.Context) ([]string, error) {
	names, err := s.storage.List(ctx, snapshotPrefix)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Latest returns the name of the most recent snapshot, or "" when none
// exist.
func (s *Service) Latest(ctx context.Context) (string, error) {
	names, err := s.List(ctx)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", nil
	}
	return names[len(names)-1], nil
}

// Prune deletes all but the newest keep snapshots.
func (s *Service) Prune(ctx context.Context, keep int) error {
	if keep <= 0 {
		return nil
	}

	names, err := s.List(ctx)
	if err != nil {
		return err
	}
	if len(names) <= keep {
		return nil
	}

	for _, name := range names[:len(names)-keep] {
		if err := s.storage.Delete(ctx, name); err != nil {
			return fmt.Errorf("failed to delete snapshot %s: %w", name, err)
		}
	}
	return nil
}
