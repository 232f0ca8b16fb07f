package service

import (
	"errors"
	"testing"
	"time"
)

func TestStateSignerRoundTrip(t *testing.T) {
	signer := NewStateSigner([]byte("state-key"))

	state, err := signer.Issue()
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if err := signer.Verify(state); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	other, err := signer.Issue()
	if err != nil {
		t.Fatal(err)
	}
	if other == state {
		t.Fatal("states must be unique")
	}
}

func TestStateSignerRejects(t *testing.T) {
	signer := NewStateSigner([]byte("state-key"))
	state, err := signer.Issue()
	if err != nil {
		t.Fatal(err)
	}

	expired := NewStateSigner([]byte("state-key"))
	expired.now = func() time.Time { return time.Now().Add(stateTTL + time.Minute) }

	tests := []struct {
		name   string
		signer *StateSigner
		state  string
	}{
		{"empty", signer, ""},
		{"garbage", signer, "not-a-token"},
		{"wrong key", NewStateSigner([]byte("other-key")), state},
		{"expired", expired, state},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.signer.Verify(tt.state); !errors.Is(err, ErrInvalidState) {
				t.Fatalf("Verify() error = %v, want ErrInvalidState", err)
			}
		})
	}
}

func TestStateSignerRequiresKey(t *testing.T) {
	if _, err := NewStateSigner(nil).Issue(); err == nil {
		t.Fatal("expected error without key")
	}
}
