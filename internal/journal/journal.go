package journal

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// sinkTimeout bounds a single write to a networked sink so a stalled
// backend cannot hold the journal lock indefinitely.
const sinkTimeout = 5 * time.Second

// Recorder is the narrow interface sessions use to report exchanges.
// Implementations must be safe for concurrent use and must not fail.
type Recorder interface {
	Append(sender Sender, peer, content string)
}

// Sink is a durable destination for records.
type Sink interface {
	Write(ctx context.Context, rec Record) error
	Close() error
}

// Source is a sink that can also list what it has stored, oldest first.
type Source interface {
	Records(ctx context.Context) ([]Record, error)
}

// Journal fans each appended record out to its sinks, regenerates the HTML
// report and notifies observers. All of it happens under one lock, so
// concurrent appends never interleave.
type Journal struct {
	mu        sync.Mutex
	sinks     []Sink
	report    string
	source    Source
	observers []func(Record)

	now   func() time.Time
	newID func() string
}

func New(sinks ...Sink) *Journal {
	return &Journal{
		sinks: sinks,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// SetReport makes every append rewrite the HTML report at path from the
// records held by src. Must be called before the journal is shared.
func (j *Journal) SetReport(path string, src Source) {
	j.report = path
	j.source = src
}

// Observe registers fn to be called with every appended record while the
// journal lock is held. fn must not block.
func (j *Journal) Observe(fn func(Record)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.observers = append(j.observers, fn)
}

// Append records one exchange. Sink failures are logged, never returned.
func (j *Journal) Append(sender Sender, peer, content string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rec := Record{
		ID:        j.newID(),
		Timestamp: j.now(),
		Sender:    sender,
		Peer:      peer,
		Content:   content,
	}

	for _, s := range j.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		if err := s.Write(ctx, rec); err != nil {
			log.Printf("journal: %T write failed: %v", s, err)
		}
		cancel()
	}

	if j.report != "" && j.source != nil {
		j.regenerate()
	}

	for _, fn := range j.observers {
		fn(rec)
	}
}

func (j *Journal) regenerate() {
	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()
	recs, err := j.source.Records(ctx)
	if err != nil {
		log.Printf("journal: reading records for report: %v", err)
		return
	}
	if err := WriteHTMLReport(j.report, recs); err != nil {
		log.Printf("journal: writing report: %v", err)
	}
}

// Records returns the journal's history from its report source, if any.
func (j *Journal) Records(ctx context.Context) ([]Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.source == nil {
		return nil, nil
	}
	return j.source.Records(ctx)
}

// Close closes every sink, returning the first error.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	var first error
	for _, s := range j.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
