package server

import (
	"encoding/json"
	"sync"
)

// Event is the payload pushed to all subscribed clients. One of the typed
// fields is set depending on Type.
type Event struct {
	Type    string      `json:"type"`
	Round   *RoundState `json:"round,omitempty"`
	Guess   *Guess      `json:"guess,omitempty"`
	Player  *Player     `json:"player,omitempty"`
	RoundNo int64       `json:"roundNo,omitempty"`
}

// Event types.
const (
	eventRound          = "round"
	eventGuess          = "guess"
	eventPlayerJoined   = "player_joined"
	eventGuessesCleared = "guesses_cleared"
)

// Broker is an in-process pub/sub for SSE events. Every subscriber observes
// every committed mutation eventually; delivery is at-least-once from the
// client's perspective (reconnects re-read state) and unordered across
// players. Slow subscribers drop events rather than block writers.
type Broker struct {
	mu   sync.RWMutex
	subs map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded events.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

// Publish sends an event to all subscribers.
func (b *Broker) Publish(event Event) {
	data, _ := json.Marshal(event)
	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}
