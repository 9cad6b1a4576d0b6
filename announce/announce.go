package announce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"maple-exp-bot/bot"
	"maple-exp-bot/metrics"
	"maple-exp-bot/scraper"
)

const defaultHeading = "📢 This week's Sunday Maple!"

// Subscribers lists and prunes announcement targets.
type Subscribers interface {
	SubscribedChatIDs(ctx context.Context) ([]int64, error)
	Unsubscribe(ctx context.Context, chatID int64) error
}

// Result summarizes one run.
type Result struct {
	Sent    int
	Failed  int
	Removed int
}

// Runner posts the Sunday Maple event to every subscribed chat.
type Runner struct {
	events  bot.EventFinder
	subs    Subscribers
	sender  bot.MessageSender
	heading string
	last    Result
}

// Option configures a Runner.
type Option func(*Runner)

// WithHeading sets the message sent before the event.
func WithHeading(heading string) Option {
	return func(r *Runner) {
		r.heading = heading
	}
}

// NewRunner creates a new announcement runner.
func NewRunner(events bot.EventFinder, subs Subscribers, sender bot.MessageSender, opts ...Option) *Runner {
	r := &Runner{
		events:  events,
		subs:    subs,
		sender:  sender,
		heading: defaultHeading,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the announcement. Weeks without an event post nothing.
// Chats that can no longer be reached are unsubscribed.
func (r *Runner) Run(ctx context.Context) error {
	chatIDs, err := r.subs.SubscribedChatIDs(ctx)
	if err != nil {
		metrics.AnnouncementsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("list subscriptions: %w", err)
	}
	if len(chatIDs) == 0 {
		slog.Info("no subscribed chats, skipping announcement")
		return nil
	}

	ev, err := r.events.FindSundayMaple(ctx)
	if errors.Is(err, scraper.ErrNoImage) && ev != nil {
		slog.Warn("event has no image, posting text only", "event", ev.Title)
		err = nil
	}
	if errors.Is(err, scraper.ErrNoEvent) {
		slog.Info("no Sunday Maple event this week")
		metrics.AnnouncementsTotal.WithLabelValues("no_event").Inc()
		return nil
	}
	if err != nil {
		metrics.AnnouncementsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("find event: %w", err)
	}

	slog.Info("starting announcement", "event", ev.Title, "chats", len(chatIDs))

	var res Result
	for _, chatID := range chatIDs {
		err := r.post(ctx, chatID, ev)
		switch {
		case err == nil:
			res.Sent++
			metrics.AnnouncementsTotal.WithLabelValues("sent").Inc()
		case errors.Is(err, bot.ErrChatUnavailable):
			res.Failed++
			metrics.AnnouncementsTotal.WithLabelValues("failed").Inc()
			if err := r.subs.Unsubscribe(ctx, chatID); err != nil {
				slog.Warn("failed to remove unreachable chat", "chat_id", chatID, "error", err)
				continue
			}
			res.Removed++
			slog.Info("removed unreachable chat", "chat_id", chatID)
		default:
			res.Failed++
			metrics.AnnouncementsTotal.WithLabelValues("failed").Inc()
			slog.Warn("failed to post announcement", "chat_id", chatID, "error", err)
		}
	}

	r.last = res
	slog.Info("announcement complete", "sent", res.Sent, "failed", res.Failed, "removed", res.Removed)
	return nil
}

// LastResult returns the outcome of the most recent run.
func (r *Runner) LastResult() Result {
	return r.last
}

func (r *Runner) post(ctx context.Context, chatID int64, ev *scraper.Event) error {
	if _, err := r.sender.SendMessage(ctx, chatID, r.heading, false); err != nil {
		return err
	}
	if ev.ImageURL == "" {
		_, err := r.sender.SendMessage(ctx, chatID, bot.FormatEvent(ev), true)
		return err
	}
	_, err := r.sender.SendPhotoURL(ctx, chatID, ev.ImageURL, bot.FormatEvent(ev))
	return err
}
