package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"callbook/internal/models"
)

// FileQueue is a flat-file pending queue: a single JSON array rewritten
// atomically on every mutation. A process-wide mutex serializes all
// operations, so enqueue/pop are atomic within one process. It offers
// no protection across processes sharing the same file.
type FileQueue struct {
	path   string
	gate   Gate
	logger zerolog.Logger

	mu sync.Mutex
	// lastCreated keeps server-assigned timestamps monotonic even if
	// the wall clock steps backwards between enqueues.
	lastCreated time.Time
}

// NewFile returns a file-backed queue at path.
func NewFile(path string, gate Gate, logger zerolog.Logger) *FileQueue {
	return &FileQueue{
		path:   path,
		gate:   gate,
		logger: logger.With().Str("component", "file_queue").Logger(),
	}
}

func (q *FileQueue) Enqueue(_ context.Context, fields map[string]any) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.gate.Valid(fields) {
		return false, nil
	}

	records := q.loadAll()

	created := time.Now().UTC()
	if !created.After(q.lastCreated) {
		created = q.lastCreated.Add(time.Microsecond)
	}
	q.lastCreated = created

	records = append(records, models.Record{
		ID:          uuid.NewString(),
		Fields:      fields,
		CreatedTime: created,
	})

	if err := q.saveAll(records); err != nil {
		return false, err
	}
	return true, nil
}

func (q *FileQueue) ListAll(_ context.Context) ([]models.Record, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loadAll(), nil
}

func (q *FileQueue) PeekOldest(_ context.Context) (*models.Record, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	records := q.loadAll()
	if len(records) == 0 {
		return nil, nil
	}
	oldest := records[0]
	return &oldest, nil
}

func (q *FileQueue) PopOldest(_ context.Context) (*models.Record, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	records := q.loadAll()
	if len(records) == 0 {
		return nil, nil
	}

	oldest := records[0]
	if err := q.saveAll(records[1:]); err != nil {
		return nil, err
	}
	return &oldest, nil
}

func (q *FileQueue) Delete(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	records := q.loadAll()
	kept := records[:0]
	for _, r := range records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	return q.saveAll(kept)
}

func (q *FileQueue) Clear(_ context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.saveAll([]models.Record{})
}

// loadAll reads the queue file. A missing file is an empty queue; a
// corrupted file is reset to empty (accepted data loss, not escalated).
func (q *FileQueue) loadAll() []models.Record {
	data, err := os.ReadFile(q.path)
	if err != nil {
		if !os.IsNotExist(err) {
			q.logger.Error().Err(err).Str("path", q.path).Msg("read queue file")
		}
		return []models.Record{}
	}

	var records []models.Record
	if err := json.Unmarshal(data, &records); err != nil {
		q.logger.Warn().Err(err).Str("path", q.path).Msg("corrupted queue file, resetting")
		if err := q.saveAll([]models.Record{}); err != nil {
			q.logger.Error().Err(err).Msg("reset queue file")
		}
		return []models.Record{}
	}
	return records
}

// saveAll rewrites the whole queue through a temp file and an atomic
// rename, so a crash mid-write cannot leave a partially-written queue.
func (q *FileQueue) saveAll(records []models.Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal queue: %w", err)
	}

	if dir := filepath.Dir(q.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create queue dir: %w", err)
		}
	}

	tmp := q.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write queue temp file: %w", err)
	}
	if err := os.Rename(tmp, q.path); err != nil {
		return fmt.Errorf("replace queue file: %w", err)
	}
	return nil
}
