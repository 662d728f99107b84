package webauth

import (
	"net/url"
	"sync"
)

// TransactionStore tracks the single in-flight browser-delegated operation.
// It is an explicitly constructed, injectable service: create one at
// application start and hand it to every WebAuth that needs it.
//
// At most one transaction is pending at a time. Storing a new transaction
// cancels the previous one synchronously before installing the new one, so
// no two transactions are ever concurrently eligible to resume.
type TransactionStore struct {
	mu      sync.Mutex
	current *Transaction
}

// NewTransactionStore creates an empty store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{}
}

// Store installs a transaction as the pending one, cancelling any prior
// pending transaction first.
func (s *TransactionStore) Store(t *Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.Cancel()
	}
	s.current = t
}

// Resume routes a callback URL to the pending transaction. It returns true
// when the transaction accepted the URL and resolved; a non-matching URL
// returns false and leaves the pending transaction untouched, permitting a
// later correct callback to still resolve it.
func (s *TransactionStore) Resume(u *url.URL) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return false
	}
	if !s.current.Resume(u) {
		return false
	}
	s.current = nil
	return true
}

// Cancel aborts the pending transaction, if any, delivering a cancellation
// error to its completion.
func (s *TransactionStore) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.Cancel()
		s.current = nil
	}
}

// Clear drops the pending transaction without firing its completion.
func (s *TransactionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}
