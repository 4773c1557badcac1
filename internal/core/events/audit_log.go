package events

import (
	"context"
	"sync"
	"time"
)

const DefaultAuditLogCapacity = 500

type AuditEntry struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    interface{} `json:"payload"`
}

// AuditLog keeps the most recent audited events in memory, oldest evicted first.
type AuditLog struct {
	mu      sync.RWMutex
	entries []AuditEntry
	next    int
	full    bool
}

func NewAuditLog(capacity int) *AuditLog {
	if capacity <= 0 {
		capacity = DefaultAuditLogCapacity
	}
	return &AuditLog{entries: make([]AuditEntry, capacity)}
}

// Record has the Handler signature so it can be subscribed to the bus directly.
func (l *AuditLog) Record(_ context.Context, event Event) error {
	entry := AuditEntry{
		ID:         event.EventID(),
		Type:       event.EventType(),
		OccurredAt: event.OccurredAt(),
		Payload:    event.Payload(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[l.next] = entry
	l.next = (l.next + 1) % len(l.entries)
	if l.next == 0 {
		l.full = true
	}
	return nil
}

// Recent returns up to limit entries, newest first, optionally filtered by event type.
func (l *AuditLog) Recent(limit int, eventType string) []AuditEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	size := l.next
	if l.full {
		size = len(l.entries)
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]AuditEntry, 0, limit)
	for i := 1; i <= size && len(out) < limit; i++ {
		entry := l.entries[(l.next-i+len(l.entries))%len(l.entries)]
		if eventType != "" && entry.Type != eventType {
			continue
		}
		out = append(out, entry)
	}
	return out
}

func (l *AuditLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.full {
		return len(l.entries)
	}
	return l.next
}
