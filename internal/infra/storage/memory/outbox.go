package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "github.com/Almog1339/ChabbyNb-API-sub000/internal/app/outbox"
	infraoutbox "github.com/Almog1339/ChabbyNb-API-sub000/internal/infra/outbox"
)

type outboxEntry struct {
	doc       infraoutbox.EventDocument
	claimedBy string
	sent      bool
	retryAt   time.Time
	lastError string
}

// OutboxStore keeps outbox records in memory. It implements both the write
// side used inside a unit of work and the claim side consumed by the
// publishing worker.
type OutboxStore struct {
	mu      sync.Mutex
	entries []*outboxEntry
}

func NewOutboxStore() *OutboxStore {
	return &OutboxStore{}
}

func (s *OutboxStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, &outboxEntry{
		doc: infraoutbox.EventDocument{
			ID:         record.ID,
			Name:       record.Name,
			Aggregate:  record.Aggregate,
			Payload:    append([]byte(nil), record.Payload...),
			Headers:    record.Headers,
			OccurredAt: record.OccurredAt,
		},
	})
	return nil
}

func (s *OutboxStore) Claim(ctx context.Context, workerID string) (*infraoutbox.EventDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, e := range s.entries {
		if e.sent || e.claimedBy != "" || now.Before(e.retryAt) {
			continue
		}
		e.claimedBy = workerID
		doc := e.doc
		return &doc, nil
	}
	return nil, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.find(id); e != nil {
		e.sent = true
		e.claimedBy = ""
	}
	return nil
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, retryAt time.Time, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.find(id); e != nil {
		e.claimedBy = ""
		e.retryAt = retryAt
		e.lastError = reason
		e.doc.Attempts++
	}
	return nil
}

// Pending reports how many records still await delivery.
func (s *OutboxStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if !e.sent {
			n++
		}
	}
	return n
}

func (s *OutboxStore) find(id string) *outboxEntry {
	for _, e := range s.entries {
		if e.doc.ID == id {
			return e
		}
	}
	return nil
}

var (
	_ appoutbox.Outbox  = (*OutboxStore)(nil)
	_ infraoutbox.Store = (*OutboxStore)(nil)
)
