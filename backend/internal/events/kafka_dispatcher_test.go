package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"editorServer/backend/internal/ot/delta"
)

func testOptions() KafkaDispatcherOptions {
	return KafkaDispatcherOptions{
		QueueSize:   8,
		Workers:     1,
		MaxRetry:    2,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  2 * time.Millisecond,
	}
}

func TestKafkaDispatcher_SendsEvent(t *testing.T) {
	producer := mocks.NewSyncProducer(t, sarama.NewConfig())
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var evt EditEvent
		if err := json.Unmarshal(val, &evt); err != nil {
			return err
		}
		if evt.EventType != EventDocumentEdited || evt.Revision != 3 || evt.EventID == "" {
			return fmt.Errorf("unexpected event %+v", evt)
		}
		if len(evt.Ops) != 1 || evt.Ops[0][1].Text != "x" {
			return fmt.Errorf("unexpected ops %+v", evt.Ops)
		}
		return nil
	})

	d := NewKafkaDispatcher(producer, "editor-events", NewSemaphoreControl(1), testOptions())
	err := d.Enqueue(context.Background(), EditEvent{
		EventType: EventDocumentEdited,
		SessionID: "s-1",
		FileName:  "idk.txt",
		Action:    "insert_char",
		Revision:  3,
		Ops:       []delta.Delta{delta.Insert(2, "x")},
		AppliedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	d.Close()
	if err := producer.Close(); err != nil {
		t.Fatalf("producer.Close() error = %v", err)
	}
}

func TestKafkaDispatcher_RetriesThenSucceeds(t *testing.T) {
	producer := mocks.NewSyncProducer(t, sarama.NewConfig())
	producer.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)
	producer.ExpectSendMessageAndSucceed()

	d := NewKafkaDispatcher(producer, "editor-events", nil, testOptions())
	if err := d.Enqueue(context.Background(), EditEvent{EventType: EventDocumentSaved, SessionID: "s-1"}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	d.Close()
	if err := producer.Close(); err != nil {
		t.Fatalf("producer.Close() error = %v", err)
	}
}

func TestKafkaDispatcher_DropsAfterMaxRetry(t *testing.T) {
	producer := mocks.NewSyncProducer(t, sarama.NewConfig())
	for i := 0; i < 3; i++ {
		producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	}

	d := NewKafkaDispatcher(producer, "editor-events", nil, testOptions())
	if err := d.Enqueue(context.Background(), EditEvent{EventType: EventDocumentEdited, SessionID: "s-1"}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	d.Close()
	if err := producer.Close(); err != nil {
		t.Fatalf("producer.Close() error = %v", err)
	}
}

func TestKafkaDispatcher_EnqueueAfterClose(t *testing.T) {
	d := NewKafkaDispatcher(nil, "", nil, testOptions())
	d.Close()

	err := d.Enqueue(context.Background(), EditEvent{EventType: EventDocumentEdited})
	if !errors.Is(err, ErrDispatcherClosed) {
		t.Fatalf("Enqueue() error = %v, want %v", err, ErrDispatcherClosed)
	}
}

func TestEditEvent_Key(t *testing.T) {
	if got := (EditEvent{SessionID: "s-1", FileName: "a.txt"}).Key(); got != "a.txt" {
		t.Fatalf("Key() = %q, want %q", got, "a.txt")
	}
	if got := (EditEvent{SessionID: "s-1"}).Key(); got != "s-1" {
		t.Fatalf("Key() = %q, want %q", got, "s-1")
	}
}

func TestSemaphoreControl(t *testing.T) {
	sem := NewSemaphoreControl(1)
	if !sem.TryAcquire() {
		t.Fatalf("TryAcquire() = false on empty semaphore")
	}
	if sem.TryAcquire() {
		t.Fatalf("TryAcquire() = true on full semaphore")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	if err := sem.Acquire(ctx); !errors.Is(err, ErrAcquireTimeout) {
		t.Fatalf("Acquire() error = %v, want %v", err, ErrAcquireTimeout)
	}

	if err := sem.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := sem.Release(); !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("second Release() error = %v, want %v", err, ErrNotAcquired)
	}
	if sem.InUse() != 0 {
		t.Fatalf("InUse() = %d, want 0", sem.InUse())
	}
}
