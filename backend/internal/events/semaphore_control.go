package events

import (
	"context"
	"errors"
)

var (
	ErrAcquireTimeout = errors.New("SEMAPHORE_ACQUIRE_TIMEOUT")
	ErrNotAcquired    = errors.New("SEMAPHORE_NOT_ACQUIRED")
)

const DefaultSemaphoreSize = 100

// SemaphoreControl 限制并发数：发送 kafka、同时服务的连接数
type SemaphoreControl struct {
	ch chan struct{}
}

func NewSemaphoreControl(size int) *SemaphoreControl {
	if size <= 0 {
		size = DefaultSemaphoreSize
	}
	return &SemaphoreControl{ch: make(chan struct{}, size)}
}

func (s *SemaphoreControl) Acquire(ctx context.Context) error {
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ErrAcquireTimeout
	}
}

// TryAcquire 不等待，拿不到立即返回 false
func (s *SemaphoreControl) TryAcquire() bool {
	select {
	case s.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *SemaphoreControl) Release() error {
	select {
	case <-s.ch:
		return nil
	default:
		return ErrNotAcquired
	}
}

func (s *SemaphoreControl) InUse() int { return len(s.ch) }
