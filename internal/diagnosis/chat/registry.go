package chat

import (
	"sync"
	"time"

	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/domain"
)

// Registry holds the open channel of each session.
type Registry struct {
	streamer Streamer
	now      func() time.Time

	mu       sync.Mutex
	channels map[string]*Channel
}

func NewRegistry(streamer Streamer) *Registry {
	return &Registry{
		streamer: streamer,
		now:      time.Now,
		channels: make(map[string]*Channel),
	}
}

// Open starts a channel on rec for the session, closing any previous one.
func (r *Registry) Open(sessionID string, rec *domain.DiagnosisResult) *Channel {
	ch := newChannel(r.streamer, rec, r.now)

	r.mu.Lock()
	prev := r.channels[sessionID]
	r.channels[sessionID] = ch
	r.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	return ch
}

func (r *Registry) Get(sessionID string) (*Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[sessionID]
	if !ok {
		return nil, domain.ErrChatNotOpen
	}
	return ch, nil
}

// Close closes and forgets the session's channel, if any.
func (r *Registry) Close(sessionID string) {
	r.mu.Lock()
	ch := r.channels[sessionID]
	delete(r.channels, sessionID)
	r.mu.Unlock()

	if ch != nil {
		ch.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels)
}
