// Package chat runs the follow-up conversation opened on a finalized
// diagnosis. It never feeds back into the diagnosis session.
package chat

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/domain"
)

// Streamer produces the model reply as a sequence of text fragments.
type Streamer interface {
	Stream(ctx context.Context, history []domain.ChatMessage, message string) iter.Seq2[string, error]
}

// SeedText is the opening model message for a record.
func SeedText(rec *domain.DiagnosisResult) string {
	return fmt.Sprintf(`"%s"에 대한 분석을 완료했습니다. "%s" 문제나 수리 절차에 대해 궁금한 점을 물어보세요.`, rec.Appliance, rec.Issue)
}

// Channel is one conversation. Sends are serialized; Messages and Close may
// be called while a send is streaming.
type Channel struct {
	streamer Streamer
	now      func() time.Time
	recordID string

	sendMu sync.Mutex

	mu       sync.Mutex
	messages []domain.ChatMessage
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
}

func newChannel(streamer Streamer, rec *domain.DiagnosisResult, now func() time.Time) *Channel {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Channel{
		streamer: streamer,
		now:      now,
		recordID: rec.ID,
		ctx:      ctx,
		cancel:   cancel,
	}
	c.messages = []domain.ChatMessage{c.message(domain.RoleModel, SeedText(rec))}
	return c
}

// RecordID is the id of the diagnosis the channel was opened on.
func (c *Channel) RecordID() string { return c.recordID }

func (c *Channel) Messages() []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Send posts text and streams the reply, calling onFragment for each
// fragment as it arrives. A failed round yields the apology message; the
// error return is reserved for a closed channel or an empty message.
func (c *Channel) Send(ctx context.Context, text string, onFragment func(string)) (domain.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ChatMessage{}, domain.ErrEmptySubmission
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ChatMessage{}, domain.ErrChatNotOpen
	}
	history := make([]domain.ChatMessage, len(c.messages))
	copy(history, c.messages)
	c.messages = append(c.messages, c.message(domain.RoleUser, text))
	c.mu.Unlock()

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	var acc Accumulator
	for fragment, err := range c.streamer.Stream(streamCtx, history, text) {
		if err != nil {
			acc.Fail()
			break
		}
		if c.ctx.Err() != nil {
			break
		}
		acc.Append(fragment)
		if onFragment != nil {
			onFragment(fragment)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ChatMessage{}, domain.ErrChatNotOpen
	}
	reply := c.message(domain.RoleModel, acc.Text())
	c.messages = append(c.messages, reply)
	return reply, nil
}

// Reply is Send without incremental delivery.
func (c *Channel) Reply(ctx context.Context, text string) (domain.ChatMessage, error) {
	return c.Send(ctx, text, nil)
}

// Close stops any in-flight stream. Further sends fail with ErrChatNotOpen.
func (c *Channel) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
}

func (c *Channel) message(role domain.ChatRole, text string) domain.ChatMessage {
	return domain.ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: c.now().UnixMilli(),
	}
}
