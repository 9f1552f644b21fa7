package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"notemesh/internal/core/domain"
	"notemesh/internal/core/ports"
	"notemesh/pkg/backup"

	"go.uber.org/zap"
)

// Restorer loads a snapshot back into the note store.
type Restorer struct {
	service *backup.Service
	notes   ports.NoteRepository
	logger  *zap.SugaredLogger
}

func NewRestorer(service *backup.Service, notes ports.NoteRepository, logger *zap.SugaredLogger) *Restorer {
	return &Restorer{
		service: service,
		notes:   notes,
		logger:  logger,
	}
}

// RestoreLatest replays the most recent snapshot. Notes already in the store
// are overwritten; notes created after the snapshot are left alone. Returns
// the number of notes restored.
func (r *Restorer) RestoreLatest(ctx context.Context) (int, error) {
	name, err := r.service.Latest(ctx)
	if err != nil {
		return 0, err
	}
	if name == "" {
		return 0, fmt.Errorf("no snapshots available")
	}
	return r.Restore(ctx, name)
}

// Restore replays one snapshot by name.
func (r *Restorer) Restore(ctx context.Context, name string) (int, error) {
	snap, err := r.service.Read(ctx, name)
	if err != nil {
		return 0, err
	}

	section, ok := snap.Sections["notes"]
	if !ok {
		return 0, fmt.Errorf("snapshot %s has no notes section", name)
	}

	var notes []*domain.Note
	if err := json.Unmarshal(section, &notes); err != nil {
		return 0, fmt.Errorf("failed to unmarshal notes section: %w", err)
	}

	restored := 0
	for _, note := range notes {
		if err := r.upsert(ctx, note); err != nil {
			r.logger.Warnw("failed to restore note", "note_id", note.ID, "error", err)
			continue
		}
		restored++
	}

	r.logger.Infow("snapshot restored",
		"name", name,
		"restored", restored,
		"total", len(notes),
	)
	return restored, nil
}

func (r *Restorer) upsert(ctx context.Context, note *domain.Note) error {
	_, err := r.notes.GetByID(ctx, note.ID)
	if errors.Is(err, domain.ErrNoteNotFound) {
		return r.notes.Create(ctx, note)
	}
	if err != nil {
		return err
	}
	return r.notes.Update(ctx, note)
}
