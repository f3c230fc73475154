package amqp

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestHandleDelivery(t *testing.T) {
	body, err := NewLedgerChangeMessage("transactions", 4, "repay").ToJSON()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		body       []byte
		handlerErr error
		want       outcome
		wantCalled bool
	}{
		{name: "handled change is acked", body: body, want: ack, wantCalled: true},
		{name: "failed mirror is requeued", body: body, handlerErr: errors.New("sheets unavailable"), want: requeue, wantCalled: true},
		{name: "garbage is dropped", body: []byte("not json"), want: drop},
		{name: "wrong version type is dropped", body: []byte(`{"key":"targets","version":"two"}`), want: drop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *LedgerChangeMessage
			handler := func(_ context.Context, msg *LedgerChangeMessage) error {
				got = msg
				return tt.handlerErr
			}

			if out := handleDelivery(context.Background(), tt.body, handler); out != tt.want {
				t.Fatalf("handleDelivery() = %v, want %v", out, tt.want)
			}
			if (got != nil) != tt.wantCalled {
				t.Fatalf("handler called = %v, want %v", got != nil, tt.wantCalled)
			}
			if got != nil && (got.Key != "transactions" || got.Version != 4 || got.Operation != "repay") {
				t.Errorf("handler got %+v", got)
			}
		})
	}
}

func TestPublishLedgerChange_FailsFastWhileCircuitOpen(t *testing.T) {
	c := &Client{exchangeName: "funds", queueName: "funds.changes"}
	for i := 0; i < maxFailures; i++ {
		c.recordFailure()
	}

	err := c.PublishLedgerChange(context.Background(), "targets", 3, "target_add")
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestPublishLedgerChange_CancelledContext(t *testing.T) {
	c := &Client{exchangeName: "funds", queueName: "funds.changes"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.PublishLedgerChange(ctx, "transactions", 1, "add"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if c.failureCount != 0 {
		t.Errorf("a cancelled publish counted as a broker failure")
	}
}

func TestCircuitBreaker_Lifecycle(t *testing.T) {
	c := &Client{}

	for i := 1; i < maxFailures; i++ {
		c.recordFailure()
		if c.isCircuitOpen() {
			t.Fatalf("open after %d failures, threshold is %d", i, maxFailures)
		}
	}
	c.recordFailure()
	if !c.isCircuitOpen() {
		t.Fatal("still closed at the failure threshold")
	}

	// Once the timeout passes one publish is let through.
	c.lastFailure = time.Now().Add(-openTimeout - time.Second)
	if c.isCircuitOpen() || atomic.LoadInt32(&c.state) != StateHalfOpen {
		t.Fatalf("state = %d after timeout, want half-open", c.state)
	}

	// A failure while half-open reopens at once.
	c.recordFailure()
	if !c.isCircuitOpen() {
		t.Fatal("half-open failure did not reopen the circuit")
	}

	c.recordSuccess()
	if c.isCircuitOpen() || c.failureCount != 0 {
		t.Fatalf("success left state=%d failures=%d", c.state, c.failureCount)
	}
}

func TestExponentialBackoff_Doubles(t *testing.T) {
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, maxBackoff, maxBackoff}
	for attempt, w := range want {
		if got := exponentialBackoff(attempt); got != w {
			t.Errorf("attempt %d: %v, want %v", attempt, got, w)
		}
	}
	if got := exponentialBackoff(40); got != maxBackoff {
		t.Errorf("attempt 40: %v, want cap %v", got, maxBackoff)
	}
}

func TestIsConnectionError(t *testing.T) {
	for _, msg := range []string{"dial tcp 127.0.0.1:5672: connect: connection refused", "unexpected EOF", "write: broken pipe", "channel closed"} {
		if !isConnectionError(errors.New(msg)) {
			t.Errorf("%q should be retried as a connection error", msg)
		}
	}
	for _, err := range []error{nil, errors.New("PRECONDITION_FAILED - inequivalent arg 'durable'")} {
		if isConnectionError(err) {
			t.Errorf("%v should not be retried", err)
		}
	}
}

func TestLedgerChangeMessage_WireFormat(t *testing.T) {
	msg := &LedgerChangeMessage{
		Key:       "transactions",
		Version:   2,
		Operation: "repay",
		Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	want := `{"key":"transactions","version":2,"operation":"repay","timestamp":"2024-01-01T12:00:00Z"}`
	if string(data) != want {
		t.Fatalf("ToJSON() = %s, want %s", data, want)
	}

	fresh := NewLedgerChangeMessage("targets", 7, "target_add")
	if fresh.Timestamp.IsZero() || fresh.Timestamp.Location() != time.UTC {
		t.Errorf("NewLedgerChangeMessage() timestamp = %v, want current UTC", fresh.Timestamp)
	}
}
