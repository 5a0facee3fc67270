package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/auprolis-code/auprolis/internal/domain"
)

// SignalBus is an in-process implementation of domain.SignalBus: channel
// fan-out for pub/sub and an append-only slice per stream. Subscriptions
// support the same trailing-wildcard patterns the Redis bus accepts
// ("ch:asset:*").
type SignalBus struct {
	mu      sync.RWMutex
	subs    map[*subscriber]bool
	streams map[string][]domain.StreamMessage
	nextID  int64
}

type subscriber struct {
	pattern string
	ch      chan []byte
}

// NewSignalBus creates an in-process signal bus.
func NewSignalBus() *SignalBus {
	return &SignalBus{
		subs:    make(map[*subscriber]bool),
		streams: make(map[string][]domain.StreamMessage),
		nextID:  1,
	}
}

// Publish delivers the payload to every matching subscriber. Slow
// subscribers whose buffers are full are skipped.
func (sb *SignalBus) Publish(_ context.Context, channel string, payload []byte) error {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	for s := range sb.subs {
		if !patternMatch(s.pattern, channel) {
			continue
		}
		select {
		case s.ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel that emits payloads published to channels
// matching the given name or trailing-wildcard pattern. The subscription
// ends, and the channel closes, when the context is cancelled.
func (sb *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	s := &subscriber{pattern: channel, ch: make(chan []byte, 128)}

	sb.mu.Lock()
	sb.subs[s] = true
	sb.mu.Unlock()

	out := make(chan []byte, 128)
	go func() {
		defer close(out)
		defer func() {
			sb.mu.Lock()
			delete(sb.subs, s)
			sb.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case payload := <-s.ch:
				select {
				case out <- payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// StreamAppend appends a payload to the named stream.
func (sb *SignalBus) StreamAppend(_ context.Context, stream string, payload []byte) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.streams[stream] = append(sb.streams[stream], domain.StreamMessage{
		ID:      fmt.Sprintf("%d-0", sb.nextID),
		Payload: payload,
	})
	sb.nextID++
	return nil
}

// StreamRead returns up to count messages with IDs after lastID. Use "0" or
// "0-0" to read from the beginning.
func (sb *SignalBus) StreamRead(_ context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	msgs := sb.streams[stream]
	start := 0
	if lastID != "" && lastID != "0" && lastID != "0-0" {
		for i, m := range msgs {
			if m.ID == lastID {
				start = i + 1
				break
			}
		}
	}
	if start >= len(msgs) {
		return nil, nil
	}
	out := msgs[start:]
	if count > 0 && len(out) > count {
		out = out[:count]
	}
	return append([]domain.StreamMessage(nil), out...), nil
}

// patternMatch reports whether channel matches the subscription pattern,
// where a trailing '*' matches any suffix.
func patternMatch(pattern, channel string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(channel, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == channel
}

// Compile-time interface check.
var _ domain.SignalBus = (*SignalBus)(nil)
