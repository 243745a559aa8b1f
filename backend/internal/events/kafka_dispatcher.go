package events

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

var ErrDispatcherClosed = errors.New("DISPATCHER_CLOSED")

// KafkaDispatcher：本地有界队列 + worker 异步发送 + 有限重试。
// - 编辑请求只负责入队，不等 kafka
// - kafka 短暂不可用时靠队列吸收，后台补发
// - 队列满且 ctx 到期时丢弃，避免内存无限增长
type KafkaDispatcher struct {
	producer sarama.SyncProducer
	topic    string

	queue chan EditEvent

	// 限制并发的 SendMessage 数量
	kafkaSem *SemaphoreControl

	workers     int
	maxRetry    int
	baseBackoff time.Duration
	maxBackoff  time.Duration

	closeOnce sync.Once
	closed    chan struct{}
	wg        sync.WaitGroup
}

type KafkaDispatcherOptions struct {
	QueueSize   int
	Workers     int
	MaxRetry    int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func NewKafkaDispatcher(producer sarama.SyncProducer, topic string, kafkaSem *SemaphoreControl, opt KafkaDispatcherOptions) *KafkaDispatcher {
	if opt.Workers <= 0 {
		opt.Workers = 1
	}
	d := &KafkaDispatcher{
		producer:    producer,
		topic:       topic,
		queue:       make(chan EditEvent, opt.QueueSize),
		kafkaSem:    kafkaSem,
		workers:     opt.Workers,
		maxRetry:    opt.MaxRetry,
		baseBackoff: opt.BaseBackoff,
		maxBackoff:  opt.MaxBackoff,
		closed:      make(chan struct{}),
	}

	d.Start()
	return d
}

// Enqueue 把事件放入本地队列。
// - 队列满时等待直到 ctx 超时
// - ctx 超时返回错误（事件不要求必达）
func (d *KafkaDispatcher) Enqueue(ctx context.Context, evt EditEvent) error {
	if evt.EventID == "" {
		evt.EventID = uuid.NewString()
	}
	select {
	case <-d.closed:
		return ErrDispatcherClosed
	default:
	}
	select {
	case d.queue <- evt:
		return nil
	case <-d.closed:
		return ErrDispatcherClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *KafkaDispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.workerLoop(i)
	}
}

// Close 停止接收新事件，等 worker 把队列里剩下的发完
func (d *KafkaDispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.closed)
	})
	d.wg.Wait()
}

func (d *KafkaDispatcher) workerLoop(workerID int) {
	defer d.wg.Done()
	for {
		select {
		case evt := <-d.queue:
			d.sendWithRetry(workerID, evt)
		case <-d.closed:
			d.drain(workerID)
			return
		}
	}
}

func (d *KafkaDispatcher) drain(workerID int) {
	for {
		select {
		case evt := <-d.queue:
			d.sendWithRetry(workerID, evt)
		default:
			return
		}
	}
}

func (d *KafkaDispatcher) sendWithRetry(workerID int, evt EditEvent) {
	for attempt := 0; attempt <= d.maxRetry; attempt++ {
		if d.kafkaSem != nil {
			// worker 允许一直等待（不影响编辑主链路）
			_ = d.kafkaSem.Acquire(context.Background())
		}

		err := d.sendOnce(evt)

		if d.kafkaSem != nil {
			_ = d.kafkaSem.Release()
		}

		if err == nil {
			return
		}

		if attempt == d.maxRetry {
			log.Printf("kafka send failed, drop event id=%s type=%s session=%s rev=%d worker=%d err=%v",
				evt.EventID, evt.EventType, evt.SessionID, evt.Revision, workerID, err)
			return
		}

		// 退避，每次 x2
		backoff := d.baseBackoff * time.Duration(1<<attempt)
		if backoff > d.maxBackoff {
			backoff = d.maxBackoff
		}
		time.Sleep(backoff)
	}
}

func (d *KafkaDispatcher) sendOnce(evt EditEvent) error {
	if d.producer == nil || d.topic == "" {
		return nil
	}
	b, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: d.topic,
		Key:   sarama.StringEncoder(evt.Key()),
		Value: sarama.ByteEncoder(b),
	}
	_, _, err = d.producer.SendMessage(msg)
	return err
}
