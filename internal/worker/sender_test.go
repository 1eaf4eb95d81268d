package worker

import (
	"context"
	"errors"
	"testing"
)

func TestRouter_Sender(t *testing.T) {
	r := NewMockRouter([]string{"airtel", "safaricom"}, 1.0)

	if _, err := r.Sender("airtel"); err != nil {
		t.Errorf("Sender(airtel) error = %v", err)
	}
	if _, err := r.Sender("telkom"); err == nil {
		t.Error("Sender(telkom) error = nil, want error")
	}
}

func TestMockSender_AlwaysSucceeds(t *testing.T) {
	s := NewMockSender("airtel", 1.0)
	for i := 0; i < 5; i++ {
		if err := s.Send(context.Background(), "0700000001", "hi"); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}
}

func TestMockSender_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewMockSender("airtel", 1.0).Send(ctx, "0700000001", "hi")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Send() error = %v, want context.Canceled", err)
	}
}
