// Package memstore keeps the whole ledger in process memory. It backs the
// test suites and the LEDGER_STORE=memory mode of ledgerd.
package memstore

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/subledger"
)

type mappingKey struct {
	module string
	key    string
}

// state is immutable once published. Writers work on a clone and swap it in
// on commit, so readers always see a consistent snapshot.
type state struct {
	accounts   map[int64]accounts.Account
	accountSeq int64
	periods    map[int64]periods.Period
	periodSeq  int64
	entries    map[int64]journals.JournalEntry
	entrySeq   int64
	numberSeq  int64
	lineSeq    int64
	sources    map[journals.SourceKey]int64
	mappings   map[mappingKey]mappings.AccountMapping
	links      map[int64]subledger.Link
}

func newState() *state {
	return &state{
		accounts: map[int64]accounts.Account{},
		periods:  map[int64]periods.Period{},
		entries:  map[int64]journals.JournalEntry{},
		sources:  map[journals.SourceKey]int64{},
		mappings: map[mappingKey]mappings.AccountMapping{},
		links:    map[int64]subledger.Link{},
	}
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (st *state) clone() *state {
	next := *st
	next.accounts = cloneMap(st.accounts)
	next.periods = cloneMap(st.periods)
	next.entries = cloneMap(st.entries)
	next.sources = cloneMap(st.sources)
	next.mappings = cloneMap(st.mappings)
	next.links = cloneMap(st.links)
	return &next
}

// Store is an in-memory ledger database. Writes are serialised; reads never block.
type Store struct {
	writeMu sync.Mutex
	cur     atomic.Pointer[state]
	now     func() time.Time

	auditMu sync.Mutex
	audit   []shared.AuditLog
}

// New returns an empty store.
func New() *Store {
	s := &Store{now: time.Now}
	s.cur.Store(newState())
	return s
}

// WithNow overrides the clock used for created/updated stamps.
func (s *Store) WithNow(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Store) snapshot() *state {
	return s.cur.Load()
}

// write applies fn to a private copy and publishes it only when fn succeeds.
func (s *Store) write(fn func(*state) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	next := s.snapshot().clone()
	if err := fn(next); err != nil {
		return err
	}
	s.cur.Store(next)
	return nil
}

// Accounts returns the chart of accounts repository.
func (s *Store) Accounts() accounts.Repository { return &accountRepo{s: s} }

// Periods returns the accounting period repository.
func (s *Store) Periods() periods.Repository { return &periodRepo{s: s} }

// Journals returns the journal repository.
func (s *Store) Journals() journals.Repository { return &journalRepo{s: s} }

// Mappings returns the account mapping repository.
func (s *Store) Mappings() mappings.Repository { return &mappingRepo{s: s} }

// Subledger returns the customer link repository.
func (s *Store) Subledger() subledger.Repository { return &subledgerRepo{s: s} }

// Record appends an audit log entry.
func (s *Store) Record(ctx context.Context, log shared.AuditLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	if log.At.IsZero() {
		log.At = s.now()
	}
	s.auditMu.Lock()
	defer s.auditMu.Unlock()
	s.audit = append(s.audit, log)
	return nil
}

// AuditLogs returns a copy of every recorded audit entry.
func (s *Store) AuditLogs() []shared.AuditLog {
	s.auditMu.Lock()
	defer s.auditMu.Unlock()
	return append([]shared.AuditLog(nil), s.audit...)
}
