package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/status"
)

// Subscriber receives the snapshot after every committed change. Subscribers
// are called synchronously, in subscription order, from the refresh cycle and
// must not call Refresh. They must treat the snapshot as read-only.
type Subscriber interface {
	OnRecordChanged(ctx context.Context, snapshot *status.Snapshot)
}

// SubscriberFunc adapts a function to Subscriber
type SubscriberFunc func(ctx context.Context, snapshot *status.Snapshot)

// OnRecordChanged implements Subscriber
func (f SubscriberFunc) OnRecordChanged(ctx context.Context, snapshot *status.Snapshot) {
	f(ctx, snapshot)
}

// Subscribe registers sub and returns its id
func (c *defaultCoordinator) Subscribe(sub Subscriber) (string, error) {
	if sub == nil {
		return "", ErrNilSubscriber
	}
	if c.isStopped() {
		return "", ErrCoordinatorStopped
	}

	id := uuid.NewString()

	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	c.subscribers[id] = sub
	c.order = append(c.order, id)
	return id, nil
}

// Unsubscribe removes the subscriber with the given id
func (c *defaultCoordinator) Unsubscribe(id string) error {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	if _, ok := c.subscribers[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSubscriberNotFound, id)
	}
	delete(c.subscribers, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

func (c *defaultCoordinator) notify(ctx context.Context, snapshot *status.Snapshot) {
	c.subsMu.RLock()
	subs := make([]Subscriber, 0, len(c.order))
	ids := make([]string, 0, len(c.order))
	for _, id := range c.order {
		subs = append(subs, c.subscribers[id])
		ids = append(ids, id)
	}
	c.subsMu.RUnlock()

	for i, sub := range subs {
		c.deliver(ctx, ids[i], sub, snapshot)
	}
}

func (c *defaultCoordinator) deliver(ctx context.Context, id string, sub Subscriber, snapshot *status.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Subscriber panicked",
				"plate", c.plate.String(),
				"subscriber", id,
				"panic", fmt.Sprint(r))
		}
	}()
	sub.OnRecordChanged(ctx, snapshot)
}
