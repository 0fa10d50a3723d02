package local

import (
	"context"
	"sync"
)

// LocalMessage is an in-process pub/sub message.
type LocalMessage struct {
	Channel string
	Payload string
}

// LocalPubSub fans guild announcements out to in-process subscribers when no
// Redis address is configured. A subscriber that stops draining its channel
// loses messages; publishers never block on it.
type LocalPubSub struct {
	mu      sync.RWMutex
	chans   map[string]map[chan *LocalMessage]struct{}
	bufSize int
}

// NewPubSub creates a LocalPubSub with the given per-subscriber buffer size.
func NewPubSub(bufSize int) *LocalPubSub {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &LocalPubSub{
		chans:   make(map[string]map[chan *LocalMessage]struct{}),
		bufSize: bufSize,
	}
}

// Publish delivers a message to every subscriber of the channel. Sends
// happen under the read lock, so a concurrent cancel cannot close a channel
// mid-send.
func (ps *LocalPubSub) Publish(_ context.Context, channel, message string) error {
	msg := &LocalMessage{Channel: channel, Payload: message}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	for ch := range ps.chans[channel] {
		select {
		case ch <- msg:
		default:
			// subscriber buffer full, drop
		}
	}
	return nil
}

// Subscribe returns a message channel fed by all the named channels and a
// cancel function that unsubscribes and closes it. Cancel is safe to call
// more than once.
func (ps *LocalPubSub) Subscribe(_ context.Context, channels ...string) (<-chan *LocalMessage, func(), error) {
	ch := make(chan *LocalMessage, ps.bufSize)

	ps.mu.Lock()
	for _, name := range channels {
		set := ps.chans[name]
		if set == nil {
			set = make(map[chan *LocalMessage]struct{})
			ps.chans[name] = set
		}
		set[ch] = struct{}{}
	}
	ps.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			ps.mu.Lock()
			for _, name := range channels {
				delete(ps.chans[name], ch)
				if len(ps.chans[name]) == 0 {
					delete(ps.chans, name)
				}
			}
			ps.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}
