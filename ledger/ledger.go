// Package ledger remembers every generated document by its verification
// code so a printed code can be checked later.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrNotFound = errors.New("verification code not found")

type Entry struct {
	Code         string    `json:"verificationCode"`
	TemplateURL  string    `json:"templateUrl"`
	TemplateHash string    `json:"templateHash"`
	SchemaHash   string    `json:"schemaHash"`
	GeneratedAt  time.Time `json:"generatedAt"`
	Pages        int       `json:"pages"`
	// FileKey is the store key when the output was kept.
	FileKey string `json:"fileKey,omitempty"`
}

type Ledger interface {
	Record(ctx context.Context, e Entry) error
	Lookup(ctx context.Context, code string) (Entry, error)
}

// MemoryLedger keeps entries in process memory.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]Entry)}
}

func (l *MemoryLedger) Record(ctx context.Context, e Entry) error {
	if e.Code == "" {
		return errors.New("ledger: empty verification code")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[e.Code] = e
	return nil
}

func (l *MemoryLedger) Lookup(ctx context.Context, code string) (Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[code]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	return e, nil
}
