package mail

import (
	"context"
	"strconv"
	"testing"
)

func TestOutboxRecordsMessages(t *testing.T) {
	outbox := NewOutbox()

	if err := outbox.Send(context.Background(), Message{To: []string{" ada@example.com ", "ada@example.com"}, Subject: "first"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := outbox.Send(context.Background(), Message{To: []string{"grace@example.com"}, Subject: "second"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := outbox.Send(context.Background(), Message{To: []string{"ada@example.com"}, Subject: "third"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := len(outbox.Messages()); got != 3 {
		t.Fatalf("expected 3 messages, got %d", got)
	}

	last, ok := outbox.Last("ada@example.com")
	if !ok || last.Subject != "third" {
		t.Fatalf("expected latest message for ada, got %+v", last)
	}
	if _, ok := outbox.Last("nobody@example.com"); ok {
		t.Fatal("expected no message for unknown recipient")
	}
}

func TestOutboxRejectsEmptyRecipients(t *testing.T) {
	outbox := NewOutbox()
	if err := outbox.Send(context.Background(), Message{To: []string{" "}}); err == nil {
		t.Fatal("expected error for empty recipients")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := outbox.Send(ctx, Message{To: []string{"ada@example.com"}}); err == nil {
		t.Fatal("expected cancelled context to fail")
	}
}

func TestOutboxDropsOldestBeyondCapacity(t *testing.T) {
	outbox := NewBoundedOutbox(3)

	for i := 0; i < 1000; i++ {
		msg := Message{To: []string{"ada@example.com"}, Subject: strconv.Itoa(i)}
		if err := outbox.Send(context.Background(), msg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	messages := outbox.Messages()
	if len(messages) != 3 {
		t.Fatalf("expected 3 retained messages, got %d", len(messages))
	}
	for i, want := range []string{"997", "998", "999"} {
		if messages[i].Subject != want {
			t.Fatalf("message %d: expected subject %s, got %s", i, want, messages[i].Subject)
		}
	}

	if got := len(NewOutbox().Messages()); got != 0 {
		t.Fatalf("expected empty outbox, got %d", got)
	}
	if NewBoundedOutbox(0).capacity != DefaultOutboxCapacity {
		t.Fatal("expected default capacity for non-positive input")
	}
}
