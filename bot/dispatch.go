package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"maple-exp-bot/metrics"
)

// ErrQueueClosed is returned by Submit once the dispatcher has stopped.
var ErrQueueClosed = errors.New("dispatcher stopped")

// EventKind distinguishes chat commands from scheduled work.
type EventKind int

const (
	EventCommand EventKind = iota
	EventAnnouncement
)

// Event is one unit of work for the dispatcher.
type Event struct {
	Kind      EventKind
	ChatID    int64
	ChatTitle string
	Text      string
}

// Announcer posts the weekly announcement.
type Announcer interface {
	Run(ctx context.Context) error
}

// Command is a parsed slash command.
type Command struct {
	Name string
	Args string
}

// ParseCommand splits "/name@bot args" into its parts. Text that is not a
// command returns false.
func ParseCommand(text string) (Command, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return Command{}, false
	}

	head, args, _ := strings.Cut(text[1:], " ")
	name, _, _ := strings.Cut(head, "@")
	if name == "" {
		return Command{}, false
	}
	return Command{Name: strings.ToLower(name), Args: strings.TrimSpace(args)}, true
}

// Dispatcher serializes commands and announcements onto one loop.
type Dispatcher struct {
	handler   *CommandHandler
	announcer Announcer
	queue     chan Event
	done      chan struct{}
	timeout   time.Duration
}

// NewDispatcher creates a dispatcher with a queue of the given size.
// timeout bounds the handling of one event; zero means no limit.
func NewDispatcher(handler *CommandHandler, announcer Announcer, size int, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		handler:   handler,
		announcer: announcer,
		queue:     make(chan Event, size),
		done:      make(chan struct{}),
		timeout:   timeout,
	}
}

// Submit enqueues an event, blocking while the queue is full.
func (d *Dispatcher) Submit(ctx context.Context, ev Event) error {
	select {
	case d.queue <- ev:
		return nil
	case <-d.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run handles events until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.queue:
			d.Handle(ctx, ev)
		}
	}
}

// Handle processes a single event.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	switch ev.Kind {
	case EventAnnouncement:
		d.announce(ctx)
	case EventCommand:
		d.command(ctx, ev)
	}
}

func (d *Dispatcher) announce(ctx context.Context) {
	if d.announcer == nil {
		return
	}
	logger := slog.With("request_id", uuid.NewString(), "event", "announcement")
	logger.Info("running weekly announcement")
	if err := d.announcer.Run(ctx); err != nil {
		logger.Error("announcement failed", "error", err)
	}
}

func (d *Dispatcher) command(ctx context.Context, ev Event) {
	cmd, ok := ParseCommand(ev.Text)
	if !ok {
		return
	}

	logger := slog.With("request_id", uuid.NewString(), "chat_id", ev.ChatID, "command", cmd.Name)
	start := time.Now()

	var err error
	h := d.handler
	switch cmd.Name {
	case "start", "help":
		err = h.HandleStart(ctx, ev.ChatID)
	case "info":
		err = h.HandleInfo(ctx, ev.ChatID, cmd.Args)
	case "weekly":
		err = h.HandleWeekly(ctx, ev.ChatID, cmd.Args)
	case "monthly":
		err = h.HandleMonthly(ctx, ev.ChatID, cmd.Args)
	case "scouter":
		err = h.HandleScouter(ctx, ev.ChatID, cmd.Args)
	case "sunday":
		err = h.HandleSunday(ctx, ev.ChatID)
	case "subscribe":
		err = h.HandleSubscribe(ctx, ev.ChatID, ev.ChatTitle)
	case "unsubscribe":
		err = h.HandleUnsubscribe(ctx, ev.ChatID)
	default:
		logger.Debug("ignoring unknown command")
		return
	}

	status := errorStatus(err)
	metrics.CommandsTotal.WithLabelValues(cmd.Name, status).Inc()

	switch status {
	case "ok":
		logger.Info("handled command", "args", cmd.Args, "duration", time.Since(start))
	case "internal_error":
		logger.Error("command failed", "args", cmd.Args, "error", err)
	default:
		logger.Warn("command failed", "args", cmd.Args, "status", status, "error", err)
	}
}
