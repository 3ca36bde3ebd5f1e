package amqp

import (
	"testing"
	"time"
)

func TestNewLedgerEventMessage(t *testing.T) {
	msg := NewLedgerEventMessage(EventTransactionCreated, []int64{7}, []int64{1, 2})

	if msg.EventID == "" {
		t.Error("expected a generated event id")
	}
	if msg.Type != EventTransactionCreated {
		t.Errorf("got type %q, want %q", msg.Type, EventTransactionCreated)
	}
	if len(msg.TransactionIDs) != 1 || msg.TransactionIDs[0] != 7 {
		t.Errorf("got transaction ids %v, want [7]", msg.TransactionIDs)
	}
	if len(msg.AccountIDs) != 2 {
		t.Errorf("got account ids %v, want [1 2]", msg.AccountIDs)
	}
	if time.Since(msg.Timestamp) > time.Minute {
		t.Errorf("timestamp not recent: %v", msg.Timestamp)
	}
}

func TestLedgerEventMessageRoundTrip(t *testing.T) {
	original := NewLedgerEventMessage(EventTransferCreated, []int64{3, 4}, []int64{1, 2})

	body, err := original.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	decoded, err := LedgerEventMessageFromJSON(body)
	if err != nil {
		t.Fatalf("LedgerEventMessageFromJSON() error = %v", err)
	}

	if decoded.EventID != original.EventID {
		t.Errorf("got event id %q, want %q", decoded.EventID, original.EventID)
	}
	if decoded.Type != original.Type {
		t.Errorf("got type %q, want %q", decoded.Type, original.Type)
	}
	if len(decoded.TransactionIDs) != 2 || decoded.TransactionIDs[0] != 3 || decoded.TransactionIDs[1] != 4 {
		t.Errorf("got transaction ids %v, want [3 4]", decoded.TransactionIDs)
	}
	if len(decoded.AccountIDs) != 2 || decoded.AccountIDs[0] != 1 || decoded.AccountIDs[1] != 2 {
		t.Errorf("got account ids %v, want [1 2]", decoded.AccountIDs)
	}
}

func TestLedgerEventMessageFromJSONInvalid(t *testing.T) {
	if _, err := LedgerEventMessageFromJSON([]byte("not json")); err == nil {
		t.Error("expected an error for malformed payload")
	}
}
