package bot

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"maple-exp-bot/exp"
	"maple-exp-bot/nexon"
	"maple-exp-bot/scraper"
)

const imageQuery = "?action=A00&emotion=E00"

// User-facing replies.
const (
	msgLoading       = "Looking up character..."
	msgNotFound      = "Character not found."
	msgNetworkError  = "Network error"
	msgInternalError = "Internal error"
	msgNoMonthData   = "No data for that month."

	msgEventListFailed  = "Failed to load the event list."
	msgEventListMissing = "Event list not found."
	msgNoEvent          = "No Sunday Maple event is running right now."
	msgNoImage          = "Could not find the event image."
)

// HelpText lists the available commands.
const HelpText = "<b>MapleStory bot</b>\n" +
	"Character info and experience charts.\n\n" +
	"/info &lt;name&gt; - Character info\n" +
	"/weekly &lt;name&gt; - Character info with a 7-day exp chart\n" +
	"/monthly &lt;name&gt; [year month] - Monthly exp heatmap\n" +
	"/scouter &lt;name&gt; - MapleScouter link (/scouter sitemap for the sitemap)\n" +
	"/sunday - This week's Sunday Maple event\n" +
	"/subscribe - Post Sunday Maple here every week\n" +
	"/unsubscribe - Stop the weekly post\n\n" +
	"<i>Data: MapleStory Open API | MapleScouter</i>"

// FormatCharacterInfo renders the character card as Telegram HTML.
func FormatCharacterInfo(name string, c *nexon.CharacterBasic) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "<b>%s</b>\n\n", html.EscapeString(name))
	fmt.Fprintf(&sb, "Level: %d (%s%%)\n", c.CharacterLevel, html.EscapeString(orDefault(c.CharacterExpRate, "0")))

	class := html.EscapeString(orDefault(c.CharacterClass, "N/A"))
	if c.CharacterClassLevel != "" {
		class += fmt.Sprintf(" (advancement %s)", html.EscapeString(c.CharacterClassLevel))
	}
	fmt.Fprintf(&sb, "Class: %s\n", class)
	fmt.Fprintf(&sb, "World: %s\n", html.EscapeString(orDefault(c.WorldName, "N/A")))

	guild := "none"
	if c.CharacterGuildName != nil && *c.CharacterGuildName != "" {
		guild = *c.CharacterGuildName
	}
	fmt.Fprintf(&sb, "Guild: %s\n", html.EscapeString(guild))
	fmt.Fprintf(&sb, "Gender: %s\n", html.EscapeString(orDefault(c.CharacterGender, "N/A")))

	var total int64
	if c.CharacterExp != nil {
		total = *c.CharacterExp
	}
	fmt.Fprintf(&sb, "Exp: %s\n", humanize.Comma(total))
	fmt.Fprintf(&sb, "Recently active: %s\n", mark(c.AccessFlag == "true", "⭕", "❌"))
	fmt.Fprintf(&sb, "Liberation quest: %s", mark(c.LiberationQuestClearFlag == "true", "done", "not done"))

	if created, _, _ := strings.Cut(c.CharacterDateCreate, "T"); created != "" {
		fmt.Fprintf(&sb, "\nCreated: %s", html.EscapeString(created))
	}
	if c.CharacterImage != "" {
		fmt.Fprintf(&sb, "\n<a href=\"%s\">Character image</a>", html.EscapeString(c.CharacterImage+imageQuery))
	}
	return sb.String()
}

// FormatWeeklySummary describes the gains of the charted week. It returns
// an empty string when there are no gains.
func FormatWeeklySummary(s exp.Summary) string {
	if s.Days == 0 || s.Best == nil {
		return ""
	}
	text := fmt.Sprintf("Gained +%.3f%% over %d days (avg +%.3f%%/day)\nBest day: %s +%.3f%%",
		s.Total, s.Days, s.Mean, s.Best.Date.Format("01/02"), s.Best.ExpGainRate)
	if s.LevelUps > 0 {
		text += fmt.Sprintf("\nLevel ups: %d", s.LevelUps)
	}
	return text
}

// FormatMonthlyCaption titles a monthly heatmap.
func FormatMonthlyCaption(name string, year int, month time.Month) string {
	return fmt.Sprintf("<b>%s</b> exp gains for %d-%02d", html.EscapeString(name), year, int(month))
}

// FormatEvent renders a found event as a photo caption.
func FormatEvent(ev *scraper.Event) string {
	caption := fmt.Sprintf("<b>%s</b>", html.EscapeString(ev.Title))
	if ev.PostURL != "" {
		caption += fmt.Sprintf("\n<a href=\"%s\">Event notice</a>", html.EscapeString(ev.PostURL))
	}
	return caption
}

// UserMessage maps an error to the reply shown in chat.
func UserMessage(err error) string {
	var apiErr *nexon.APIError
	var transportErr *nexon.TransportError
	switch {
	case errors.Is(err, nexon.ErrNotFound):
		return msgNotFound
	case errors.As(err, &apiErr):
		return fmt.Sprintf("API error (status %d)", apiErr.StatusCode)
	case errors.As(err, &transportErr):
		return msgNetworkError
	default:
		return msgInternalError
	}
}

// errorStatus labels an error for metrics.
func errorStatus(err error) string {
	var apiErr *nexon.APIError
	var transportErr *nexon.TransportError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, nexon.ErrNotFound):
		return "not_found"
	case errors.As(err, &apiErr):
		return "api_error"
	case errors.As(err, &transportErr):
		return "network_error"
	default:
		return "internal_error"
	}
}

func eventMessage(err error) string {
	switch {
	case errors.Is(err, scraper.ErrEventListMissing):
		return msgEventListMissing
	case errors.Is(err, scraper.ErrNoEvent):
		return msgNoEvent
	case errors.Is(err, scraper.ErrNoImage):
		return msgNoImage
	default:
		return msgEventListFailed
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func mark(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
