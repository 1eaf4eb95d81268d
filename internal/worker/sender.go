package worker

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// MessageSender delivers one SMS through a carrier
type MessageSender interface {
	Send(ctx context.Context, phone, content string) error
}

// mockSender simulates a carrier API with a configurable success rate
type mockSender struct {
	provider    string
	successRate float64
	minDelay    time.Duration
	maxDelay    time.Duration
}

// NewMockSender creates a simulated carrier.
// successRate outside (0, 1] falls back to 0.92.
func NewMockSender(provider string, successRate float64) MessageSender {
	if successRate <= 0 || successRate > 1.0 {
		successRate = 0.92
	}

	return &mockSender{
		provider:    provider,
		successRate: successRate,
		minDelay:    50 * time.Millisecond,
		maxDelay:    200 * time.Millisecond,
	}
}

// Send waits a simulated network delay and fails at random
func (s *mockSender) Send(ctx context.Context, phone, content string) error {
	delay := s.minDelay + time.Duration(rand.Int63n(int64(s.maxDelay-s.minDelay)))

	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return ctx.Err()
	}

	if rand.Float64() > s.successRate {
		return fmt.Errorf("%s: simulated carrier error", s.provider)
	}

	return nil
}

// Router picks the sender for a message's provider
type Router map[string]MessageSender

// NewMockRouter builds a router with one simulated sender per provider
func NewMockRouter(providers []string, successRate float64) Router {
	r := make(Router, len(providers))
	for _, p := range providers {
		r[p] = NewMockSender(p, successRate)
	}
	return r
}

// Sender returns the sender registered for provider
func (r Router) Sender(provider string) (MessageSender, error) {
	s, ok := r[provider]
	if !ok {
		return nil, fmt.Errorf("no sender registered for provider %q", provider)
	}
	return s, nil
}
