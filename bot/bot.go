package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"maple-exp-bot/scraper"
)

// Sentinel errors for dependency interfaces
var (
	ErrNotSubscribed   = errors.New("chat not subscribed")
	ErrChatUnavailable = errors.New("chat unavailable")
)

// MessageSender sends messages to Telegram.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string, html bool) (int64, error)
	SendPhoto(ctx context.Context, chatID int64, png []byte, caption string) (int64, error)
	SendPhotoURL(ctx context.Context, chatID int64, photoURL, caption string) (int64, error)
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
}

// EventFinder finds the ongoing Sunday Maple event.
type EventFinder interface {
	FindSundayMaple(ctx context.Context) (*scraper.Event, error)
}

// SubscriptionStore manages announcement subscriptions.
type SubscriptionStore interface {
	Subscribe(ctx context.Context, chatID int64, title string) (bool, error)
	Unsubscribe(ctx context.Context, chatID int64) error
}

const defaultScouterURL = "https://maplescouter.com/info?name="

// CommandHandler handles bot commands.
type CommandHandler struct {
	sender     MessageSender
	reports    *Reports
	events     EventFinder
	subs       SubscriptionStore
	scouterURL string
	next       func() time.Time
}

// Option configures a CommandHandler.
type Option func(*CommandHandler)

// WithScouterURL sets the prefix the character name is appended to.
func WithScouterURL(prefix string) Option {
	return func(h *CommandHandler) {
		h.scouterURL = prefix
	}
}

// WithNextAnnouncement reports the next scheduled post in /subscribe replies.
func WithNextAnnouncement(fn func() time.Time) Option {
	return func(h *CommandHandler) {
		h.next = fn
	}
}

// NewCommandHandler creates a new command handler.
func NewCommandHandler(
	sender MessageSender,
	reports *Reports,
	events EventFinder,
	subs SubscriptionStore,
	opts ...Option,
) *CommandHandler {
	h := &CommandHandler{
		sender:     sender,
		reports:    reports,
		events:     events,
		subs:       subs,
		scouterURL: defaultScouterURL,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleStart handles the /start and /help commands.
func (h *CommandHandler) HandleStart(ctx context.Context, chatID int64) error {
	_, err := h.sender.SendMessage(ctx, chatID, HelpText, true)
	return err
}

// HandleInfo handles /info <name>.
func (h *CommandHandler) HandleInfo(ctx context.Context, chatID int64, args string) error {
	name := strings.TrimSpace(args)
	if name == "" {
		return h.usage(ctx, chatID, "/info <name>")
	}

	loadingID := h.loading(ctx, chatID)
	defer h.dismiss(ctx, chatID, loadingID)

	basic, err := h.reports.Info(ctx, name)
	if err != nil {
		return h.fail(ctx, chatID, err)
	}

	_, err = h.sender.SendMessage(ctx, chatID, FormatCharacterInfo(name, basic), true)
	return err
}

// HandleWeekly handles /weekly <name>.
func (h *CommandHandler) HandleWeekly(ctx context.Context, chatID int64, args string) error {
	name := strings.TrimSpace(args)
	if name == "" {
		return h.usage(ctx, chatID, "/weekly <name>")
	}

	loadingID := h.loading(ctx, chatID)
	defer h.dismiss(ctx, chatID, loadingID)

	report, err := h.reports.Weekly(ctx, name)
	if err != nil {
		return h.fail(ctx, chatID, err)
	}

	card := FormatCharacterInfo(name, report.Character)
	if report.Chart == nil {
		_, err = h.sender.SendMessage(ctx, chatID, card, true)
		return err
	}
	if summary := FormatWeeklySummary(report.Summary); summary != "" {
		card += "\n\n" + summary
	}
	_, err = h.sender.SendPhoto(ctx, chatID, report.Chart, card)
	return err
}

// HandleMonthly handles /monthly <name> [year month].
func (h *CommandHandler) HandleMonthly(ctx context.Context, chatID int64, args string) error {
	const usage = "/monthly <name> [year month] (e.g. /monthly name 2024 3)"

	now := h.reports.Now()
	name, year, month, ok := ParseMonthlyArgs(args, now)
	if !ok {
		return h.usage(ctx, chatID, usage)
	}

	loadingID := h.notice(ctx, chatID, fmt.Sprintf("Fetching exp data for %d-%02d...", year, int(month)))
	defer h.dismiss(ctx, chatID, loadingID)

	report, err := h.reports.Monthly(ctx, name, year, month)
	if errors.Is(err, ErrNoMonthData) {
		_, err = h.sender.SendMessage(ctx, chatID, msgNoMonthData, false)
		return err
	}
	if err != nil {
		return h.fail(ctx, chatID, err)
	}

	_, err = h.sender.SendPhoto(ctx, chatID, report.Chart, FormatMonthlyCaption(name, year, month))
	return err
}

// HandleScouter handles /scouter <name>.
func (h *CommandHandler) HandleScouter(ctx context.Context, chatID int64, args string) error {
	name := strings.TrimSpace(args)
	if name == "" {
		return h.usage(ctx, chatID, "/scouter <name>")
	}

	if strings.EqualFold(name, "sitemap") {
		_, err := h.sender.SendMessage(ctx, chatID, sitemapURL(h.scouterURL), false)
		return err
	}

	link := h.scouterURL + url.QueryEscape(name)
	msg := fmt.Sprintf("%s's scouter:\n<a href=\"%s\">%s</a>",
		html.EscapeString(name), html.EscapeString(link), html.EscapeString(link))
	_, err := h.sender.SendMessage(ctx, chatID, msg, true)
	return err
}

// HandleSunday handles /sunday.
func (h *CommandHandler) HandleSunday(ctx context.Context, chatID int64) error {
	return SendSundayMaple(ctx, h.events, h.sender, chatID)
}

// HandleSubscribe handles /subscribe.
func (h *CommandHandler) HandleSubscribe(ctx context.Context, chatID int64, title string) error {
	added, err := h.subs.Subscribe(ctx, chatID, title)
	if err != nil {
		return h.fail(ctx, chatID, fmt.Errorf("subscribe: %w", err))
	}

	msg := "✅ This chat will get the weekly Sunday Maple post."
	if !added {
		msg = "This chat is already subscribed."
	}
	if h.next != nil {
		if next := h.next(); !next.IsZero() {
			msg += fmt.Sprintf("\nNext post: %s", next.Format("Mon 2006-01-02 15:04 MST"))
		}
	}
	_, err = h.sender.SendMessage(ctx, chatID, msg, false)
	return err
}

// HandleUnsubscribe handles /unsubscribe.
func (h *CommandHandler) HandleUnsubscribe(ctx context.Context, chatID int64) error {
	msg := "Unsubscribed from the weekly post."
	if err := h.subs.Unsubscribe(ctx, chatID); err != nil {
		if !errors.Is(err, ErrNotSubscribed) {
			return h.fail(ctx, chatID, fmt.Errorf("unsubscribe: %w", err))
		}
		msg = "This chat is not subscribed."
	}
	_, err := h.sender.SendMessage(ctx, chatID, msg, false)
	return err
}

// SendSundayMaple posts the current Sunday Maple event to a chat. Lookup
// failures are reported to the chat and returned.
func SendSundayMaple(ctx context.Context, events EventFinder, sender MessageSender, chatID int64) error {
	ev, err := events.FindSundayMaple(ctx)
	if err != nil {
		if _, sendErr := sender.SendMessage(ctx, chatID, eventMessage(err), false); sendErr != nil {
			return errors.Join(err, sendErr)
		}
		return err
	}

	_, err = sender.SendPhotoURL(ctx, chatID, ev.ImageURL, FormatEvent(ev))
	return err
}

// fail reports err to the chat and returns it for logging.
func (h *CommandHandler) fail(ctx context.Context, chatID int64, err error) error {
	if _, sendErr := h.sender.SendMessage(ctx, chatID, UserMessage(err), false); sendErr != nil {
		return errors.Join(err, sendErr)
	}
	return err
}

func (h *CommandHandler) usage(ctx context.Context, chatID int64, usage string) error {
	_, err := h.sender.SendMessage(ctx, chatID, "Usage: "+usage, false)
	return err
}

func (h *CommandHandler) loading(ctx context.Context, chatID int64) int64 {
	return h.notice(ctx, chatID, msgLoading)
}

func (h *CommandHandler) notice(ctx context.Context, chatID int64, text string) int64 {
	id, err := h.sender.SendMessage(ctx, chatID, text, false)
	if err != nil {
		slog.Warn("failed to send loading message", "chat_id", chatID, "error", err)
		return 0
	}
	return id
}

func (h *CommandHandler) dismiss(ctx context.Context, chatID, messageID int64) {
	if messageID == 0 {
		return
	}
	if err := h.sender.DeleteMessage(ctx, chatID, messageID); err != nil {
		slog.Warn("failed to delete loading message", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}

// ParseMonthlyArgs accepts "<name>" or "<name> <year> <month>", defaulting
// to the month of now.
func ParseMonthlyArgs(args string, now time.Time) (string, int, time.Month, bool) {
	fields := strings.Fields(args)
	switch len(fields) {
	case 1:
		return fields[0], now.Year(), now.Month(), true
	case 3:
		year, err := strconv.Atoi(fields[1])
		if err != nil || year < 1 {
			return "", 0, 0, false
		}
		month, err := strconv.Atoi(fields[2])
		if err != nil || month < 1 || month > 12 {
			return "", 0, 0, false
		}
		return fields[0], year, time.Month(month), true
	default:
		return "", 0, 0, false
	}
}

// sitemapURL derives the sitemap link from the scouter prefix.
func sitemapURL(scouterURL string) string {
	u, err := url.Parse(scouterURL)
	if err != nil || u.Host == "" {
		return "https://maplescouter.com/sitemap"
	}
	return u.Scheme + "://" + u.Host + "/sitemap"
}
