package cart

import (
	"context"
	"fmt"
	"sync"

	pkgerrors "github.com/angelmondragon/gourmet-cart/pkg/errors"
	"github.com/angelmondragon/gourmet-cart/pkg/logger"
	"github.com/angelmondragon/gourmet-cart/pkg/types"
)

// CartChanged is published after every successful mutation and once after the
// initial load. Subscribers re-read state through Engine.Snapshot.
type CartChanged struct{}

// ItemAdded is published after CartChanged on a successful AddItem. It carries
// display hints only.
type ItemAdded struct {
	Name        string
	UnitPrice   types.Money
	OriginLabel string
	// Trigger is the opaque UI reference passed through WithTrigger, if any.
	Trigger any
}

type subscription[E any] struct {
	id uint64
	fn func(E)
}

// Topic is a typed in-process publish/subscribe channel owned by the engine.
// Only the engine publishes; everybody else can only subscribe.
type Topic[E any] struct {
	name string
	log  *logger.Logger

	mu     sync.RWMutex
	nextID uint64
	subs   []subscription[E]
}

func newTopic[E any](name string, log *logger.Logger) *Topic[E] {
	return &Topic[E]{name: name, log: log}
}

// Subscribe registers fn and returns a function that removes it again.
// Calling the returned function more than once is harmless.
func (t *Topic[E]) Subscribe(fn func(E)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.subs = append(t.subs, subscription[E]{id: id, fn: fn})
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { t.remove(id) })
	}
}

// Subscribers returns how many handlers are attached.
func (t *Topic[E]) Subscribers() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}

func (t *Topic[E]) remove(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, sub := range t.subs {
		if sub.id == id {
			t.subs = append(t.subs[:i:i], t.subs[i+1:]...)
			return
		}
	}
}

// publish delivers event synchronously to every subscriber. A panicking
// handler is logged and does not stop delivery to the others.
func (t *Topic[E]) publish(ctx context.Context, event E) {
	t.mu.RLock()
	subs := make([]subscription[E], len(t.subs))
	copy(subs, t.subs)
	t.mu.RUnlock()

	for _, sub := range subs {
		t.deliver(ctx, sub, event)
	}
}

func (t *Topic[E]) deliver(ctx context.Context, sub subscription[E], event E) {
	defer func() {
		if r := recover(); r != nil {
			ctx = t.log.WithFields(ctx, map[string]any{"topic": t.name, "subscriber": sub.id})
			t.log.Error(ctx, "cart subscriber panicked", pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("panic: %v", r)))
		}
	}()
	sub.fn(event)
}
