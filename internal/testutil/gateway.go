package testutil

import (
	"context"
	"sync"
	"time"

	"qrwatcher/internal/delivery"
	"qrwatcher/internal/domain"
)

// Gateway call kinds recorded by FakeGateway
const (
	CallText   = "text"
	CallPhoto  = "photo"
	CallEdit   = "edit"
	CallDelete = "delete"
)

// Call is a recorded successful gateway call
type Call struct {
	Kind      string
	ChatID    int64
	MessageID int
	Text      string
	PNG       []byte
}

// FakeGateway is an in-memory Telegram that tracks which messages exist in each chat
type FakeGateway struct {
	mu     sync.Mutex
	nextID int
	calls  []Call
	live   map[int64]map[int]bool
	fail   map[int64]error
	// failKind limits fail to one call kind; empty means all kinds
	failKind map[int64]string
	stall    map[int64]bool
}

// NewFakeGateway creates an empty fake gateway
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		live:     make(map[int64]map[int]bool),
		fail:     make(map[int64]error),
		failKind: make(map[int64]string),
		stall:    make(map[int64]bool),
	}
}

// Stall makes every call to chatID block until its context is done
func (g *FakeGateway) Stall(chatID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stall[chatID] = true
}

// FailChat makes every call to chatID return err
func (g *FakeGateway) FailChat(chatID int64, err error) {
	g.FailChatKind(chatID, "", err)
}

// FailChatKind makes calls of one kind to chatID return err
func (g *FakeGateway) FailChatKind(chatID int64, kind string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail[chatID] = err
	g.failKind[chatID] = kind
}

// Vanish removes a message as if the user deleted it
func (g *FakeGateway) Vanish(ref domain.MessageRef) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.live[ref.ChatID], ref.MessageID)
}

// Calls returns the successful calls made to chatID
func (g *FakeGateway) Calls(chatID int64) []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	var calls []Call
	for _, c := range g.calls {
		if c.ChatID == chatID {
			calls = append(calls, c)
		}
	}
	return calls
}

// Count returns the number of successful calls of kind made to chatID
func (g *FakeGateway) Count(chatID int64, kind string) int {
	n := 0
	for _, c := range g.Calls(chatID) {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// LivePhotos returns the number of photo messages currently present in chatID
func (g *FakeGateway) LivePhotos(chatID int64) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.live[chatID])
}

// IsLive reports whether the referenced message exists
func (g *FakeGateway) IsLive(ref domain.MessageRef) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.live[ref.ChatID][ref.MessageID]
}

func (g *FakeGateway) SendText(ctx context.Context, chatID int64, text string) error {
	if err := g.wait(ctx, chatID); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure(ctx, chatID, CallText); err != nil {
		return err
	}
	g.nextID++
	g.calls = append(g.calls, Call{Kind: CallText, ChatID: chatID, MessageID: g.nextID, Text: text})
	return nil
}

func (g *FakeGateway) SendPhoto(ctx context.Context, chatID int64, png []byte, caption string) (domain.MessageRef, error) {
	if err := g.wait(ctx, chatID); err != nil {
		return domain.MessageRef{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure(ctx, chatID, CallPhoto); err != nil {
		return domain.MessageRef{}, err
	}
	g.nextID++
	if g.live[chatID] == nil {
		g.live[chatID] = make(map[int]bool)
	}
	g.live[chatID][g.nextID] = true
	g.calls = append(g.calls, Call{Kind: CallPhoto, ChatID: chatID, MessageID: g.nextID, Text: caption, PNG: png})
	return domain.MessageRef{ChatID: chatID, MessageID: g.nextID, SentAt: time.Now()}, nil
}

func (g *FakeGateway) EditPhoto(ctx context.Context, ref domain.MessageRef, png []byte, caption string) error {
	if err := g.wait(ctx, ref.ChatID); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure(ctx, ref.ChatID, CallEdit); err != nil {
		return err
	}
	if !g.live[ref.ChatID][ref.MessageID] {
		return delivery.ErrGone
	}
	g.calls = append(g.calls, Call{Kind: CallEdit, ChatID: ref.ChatID, MessageID: ref.MessageID, Text: caption, PNG: png})
	return nil
}

func (g *FakeGateway) DeleteMessage(ctx context.Context, ref domain.MessageRef) error {
	if err := g.wait(ctx, ref.ChatID); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure(ctx, ref.ChatID, CallDelete); err != nil {
		return err
	}
	if !g.live[ref.ChatID][ref.MessageID] {
		return delivery.ErrGone
	}
	delete(g.live[ref.ChatID], ref.MessageID)
	g.calls = append(g.calls, Call{Kind: CallDelete, ChatID: ref.ChatID, MessageID: ref.MessageID})
	return nil
}

func (g *FakeGateway) wait(ctx context.Context, chatID int64) error {
	g.mu.Lock()
	stalled := g.stall[chatID]
	g.mu.Unlock()
	if !stalled {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

// failure must be called with the lock held
func (g *FakeGateway) failure(ctx context.Context, chatID int64, kind string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err, ok := g.fail[chatID]
	if !ok {
		return nil
	}
	if k := g.failKind[chatID]; k != "" && k != kind {
		return nil
	}
	return err
}
