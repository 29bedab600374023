package enum

import "sync"

// retryEntry marks a username whose probe failed for infrastructure reasons
// and the attempt number its next probe should carry.
type retryEntry struct {
	Username string
	Attempt  int
}

// enumerationState is the single shared mutable resource of a run: the
// insertion-ordered valid set, the pending retry list, the permanent failure
// list and the debug trace. The mutex is held only while publishing, never
// across network I/O.
type enumerationState struct {
	mu        sync.Mutex
	valid     []string
	validSeen map[string]struct{}
	retry     []retryEntry
	failed    []string
	trace     []string
}

func newEnumerationState() *enumerationState {
	return &enumerationState{validSeen: make(map[string]struct{})}
}

// addValid records a confirmed address. Adding an address that is already
// present is a no-op, so racing probes cannot produce duplicate entries.
// Reports whether the address was new.
func (s *enumerationState) addValid(address string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.validSeen[address]; ok {
		return false
	}
	s.validSeen[address] = struct{}{}
	s.valid = append(s.valid, address)
	return true
}

func (s *enumerationState) addRetry(username string, attempt int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retry = append(s.retry, retryEntry{Username: username, Attempt: attempt})
}

func (s *enumerationState) addFailed(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, username)
}

func (s *enumerationState) addTrace(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trace = append(s.trace, line)
}

// takeRetries returns the pending retry list and clears it, so each entry is
// scheduled at most once.
func (s *enumerationState) takeRetries() []retryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := s.retry
	s.retry = nil
	return pending
}

func (s *enumerationState) snapshotValid() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.valid))
	copy(out, s.valid)
	return out
}

func (s *enumerationState) failedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.failed)
}

func (s *enumerationState) snapshotFailed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.failed))
	copy(out, s.failed)
	return out
}

func (s *enumerationState) snapshotTrace() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.trace))
	copy(out, s.trace)
	return out
}
