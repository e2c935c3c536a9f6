package mail

import (
	"context"
	"errors"
	"sync"
)

// DefaultOutboxCapacity bounds how many messages an Outbox retains.
const DefaultOutboxCapacity = 100

// Outbox is an in-process Mailer for tests. It keeps the most recent messages up to its
// capacity and drops the oldest beyond that.
type Outbox struct {
	mu       sync.Mutex
	capacity int
	messages []Message
}

// NewOutbox returns an empty Outbox holding at most DefaultOutboxCapacity messages.
func NewOutbox() *Outbox {
	return NewBoundedOutbox(DefaultOutboxCapacity)
}

// NewBoundedOutbox returns an empty Outbox holding at most capacity messages.
// Non-positive capacities fall back to DefaultOutboxCapacity.
func NewBoundedOutbox(capacity int) *Outbox {
	if capacity <= 0 {
		capacity = DefaultOutboxCapacity
	}
	return &Outbox{capacity: capacity}
}

// Send records msg after the same recipient checks the SMTP mailer applies.
func (o *Outbox) Send(ctx context.Context, msg Message) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	recipients := uniqueAddresses(msg.To)
	if len(recipients) == 0 {
		return errors.New("outbox: at least one recipient is required")
	}
	msg.To = recipients

	o.mu.Lock()
	if len(o.messages) >= o.capacity {
		n := copy(o.messages, o.messages[len(o.messages)-o.capacity+1:])
		o.messages = o.messages[:n]
	}
	o.messages = append(o.messages, msg)
	o.mu.Unlock()
	return nil
}

// Messages returns a copy of the retained messages in send order.
func (o *Outbox) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]Message, len(o.messages))
	copy(out, o.messages)
	return out
}

// Last returns the most recent message addressed to recipient.
func (o *Outbox) Last(recipient string) (Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i := len(o.messages) - 1; i >= 0; i-- {
		for _, to := range o.messages[i].To {
			if to == recipient {
				return o.messages[i], true
			}
		}
	}
	return Message{}, false
}
