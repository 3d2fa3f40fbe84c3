package testutil

import (
	"sync"

	"github.com/roach88/lazyset/internal/store"
)

// Statement is one recorded store statement.
type Statement struct {
	Kind string
	SQL  string
	Args []any
	Err  error
}

// StatementLog records the statements a store executes.
//
// Attach it with store.Observe(log.Record). Durations are dropped so that
// recorded traces are deterministic.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StatementLog struct {
	mu         sync.Mutex
	statements []Statement
}

// NewStatementLog creates an empty log.
func NewStatementLog() *StatementLog {
	return &StatementLog{}
}

// Record appends ev. It has the store.QueryObserver signature.
func (l *StatementLog) Record(ev store.QueryEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statements = append(l.statements, Statement{
		Kind: ev.Kind,
		SQL:  ev.SQL,
		Args: append([]any(nil), ev.Args...),
		Err:  ev.Err,
	})
}

// Count returns the number of recorded statements.
func (l *StatementLog) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.statements)
}

// Statements returns a copy of the recorded statements in order.
func (l *StatementLog) Statements() []Statement {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Statement(nil), l.statements...)
}

// Reset discards every recorded statement.
func (l *StatementLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statements = nil
}
