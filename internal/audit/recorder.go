package audit

import (
	"context"
	"log/slog"
)

// recorderBuffer is the size of the pending-entry queue. Entries beyond it
// are dropped so a slow disk never holds up an HTTP request.
const recorderBuffer = 256

// Recorder queues entries and writes them serially from one goroutine,
// which suits SQLite's single-writer model.
type Recorder struct {
	repo   Repository
	source string
	ch     chan *Entry
	logger *slog.Logger
	done   chan struct{}
}

// NewRecorder creates a recorder tagging every entry with source
// ("api" or "cli"). A nil logger discards warnings.
func NewRecorder(repo Repository, source string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{
		repo:   repo,
		source: source,
		ch:     make(chan *Entry, recorderBuffer),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Record enqueues an entry (best-effort). Safe on a nil Recorder.
func (r *Recorder) Record(entry Entry) {
	if r == nil || r.repo == nil {
		return
	}
	if entry.Source == "" {
		entry.Source = r.source
	}
	select {
	case r.ch <- &entry:
	default:
		r.logger.Warn("audit queue full, dropping entry",
			"action", entry.Action,
			"entity_id", entry.EntityID,
		)
	}
}

// Run writes queued entries until ctx is cancelled, then drains what is
// left and returns.
func (r *Recorder) Run(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case entry := <-r.ch:
			r.write(entry)
		case <-ctx.Done():
			for {
				select {
				case entry := <-r.ch:
					r.write(entry)
				default:
					return
				}
			}
		}
	}
}

// Done is closed once Run has drained the queue.
func (r *Recorder) Done() <-chan struct{} {
	return r.done
}

func (r *Recorder) write(entry *Entry) {
	// The request that produced the entry may be gone; use a fresh context.
	if err := r.repo.Create(context.Background(), entry); err != nil {
		r.logger.Error("audit log write failed",
			"action", entry.Action,
			"entity_id", entry.EntityID,
			"error", err,
		)
	}
}
