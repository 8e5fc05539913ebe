package api

import "sync"

// TokenTracker accumulates token usage across API calls.
type TokenTracker struct {
	mu     sync.Mutex
	input  int64
	output int64
	calls  int
}

// NewTokenTracker creates an empty tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{}
}

// Add records the usage of one API call.
func (t *TokenTracker) Add(input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.input += input
	t.output += output
	t.calls++
}

// Totals returns the accumulated input and output token counts.
func (t *TokenTracker) Totals() (input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.input, t.output
}

// Calls returns the number of API calls recorded.
func (t *TokenTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}
