package client

import (
	"context"
	"time"
)

// Poller fires a function on a fixed interval until its context is
// cancelled. Each tick is fire-and-forget: a failed poll is reported to
// the error callback and the schedule keeps going, which is the only
// retry behavior the client has.
type Poller struct {
	Interval time.Duration

	// OnError receives poll failures. Nil means failures are dropped.
	OnError func(error)
}

func NewPoller(interval time.Duration) *Poller {
	return &Poller{
		Interval: interval,
	}
}

// Run polls until ctx is cancelled. The first poll happens immediately,
// then every Interval. Ticks are not deduplicated: a slow poll simply
// delays the next one, it never overlaps it.
func (poller *Poller) Run(ctx context.Context, poll func(context.Context) error) {
	ticker := time.NewTicker(poller.Interval)
	defer ticker.Stop()

	for {
		if err := poll(ctx); err != nil && poller.OnError != nil {
			poller.OnError(err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// WatchThread polls the chat's messages on the configured interval and
// hands each fresh thread to the callback.
func (client *Client) WatchThread(ctx context.Context, chatID uint, interval time.Duration, onUpdate func(*Thread)) {
	poller := NewPoller(interval)
	poller.Run(ctx, func(ctx context.Context) error {
		thread, err := client.Messages(ctx, chatID)
		if err != nil {
			return err
		}
		onUpdate(thread)
		return nil
	})
}

// WatchInbox polls the counselor inbox on the configured interval.
func (client *Client) WatchInbox(ctx context.Context, interval time.Duration, onUpdate func([]ChatPreview)) {
	poller := NewPoller(interval)
	poller.Run(ctx, func(ctx context.Context) error {
		chats, err := client.Inbox(ctx)
		if err != nil {
			return err
		}
		onUpdate(chats)
		return nil
	})
}
