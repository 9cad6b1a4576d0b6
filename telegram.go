package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"maple-exp-bot/bot"
	"maple-exp-bot/storage"
)

// telegramSender implements bot.MessageSender on the Bot API.
type telegramSender struct {
	api *tgbotapi.BotAPI
}

func (s *telegramSender) SendMessage(ctx context.Context, chatID int64, text string, html bool) (int64, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if html {
		msg.ParseMode = tgbotapi.ModeHTML
	}
	return s.send(msg)
}

func (s *telegramSender) SendPhoto(ctx context.Context, chatID int64, png []byte, caption string) (int64, error) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "chart.png", Bytes: png})
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML
	return s.send(photo)
}

func (s *telegramSender) SendPhotoURL(ctx context.Context, chatID int64, photoURL, caption string) (int64, error) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(photoURL))
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML
	return s.send(photo)
}

func (s *telegramSender) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	_, err := s.api.Request(tgbotapi.NewDeleteMessage(chatID, int(messageID)))
	return classifySendError(err)
}

func (s *telegramSender) send(c tgbotapi.Chattable) (int64, error) {
	sent, err := s.api.Send(c)
	if err != nil {
		return 0, classifySendError(err)
	}
	return int64(sent.MessageID), nil
}

// classifySendError marks errors that mean the bot can no longer post to
// the chat, so announcements can drop it.
func classifySendError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		blocked := apiErr.Code == http.StatusForbidden
		gone := apiErr.Code == http.StatusBadRequest && strings.Contains(strings.ToLower(apiErr.Message), "chat not found")
		if blocked || gone {
			return fmt.Errorf("%w: %v", bot.ErrChatUnavailable, err)
		}
	}
	return err
}

// subscriptionStore maps storage errors onto the bot's sentinels.
type subscriptionStore struct {
	db *storage.DB
}

func (s *subscriptionStore) Subscribe(ctx context.Context, chatID int64, title string) (bool, error) {
	return s.db.Subscribe(ctx, chatID, title)
}

func (s *subscriptionStore) Unsubscribe(ctx context.Context, chatID int64) error {
	err := s.db.Unsubscribe(ctx, chatID)
	if errors.Is(err, storage.ErrNotFound) {
		return bot.ErrNotSubscribed
	}
	return err
}

// commandEvent converts an update into a dispatcher event. Updates that
// carry no command are skipped.
func commandEvent(update tgbotapi.Update) (bot.Event, bool) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return bot.Event{}, false
	}

	title := msg.Chat.Title
	if title == "" {
		title = msg.Chat.UserName
	}
	return bot.Event{
		Kind:      bot.EventCommand,
		ChatID:    msg.Chat.ID,
		ChatTitle: title,
		Text:      msg.Text,
	}, true
}
