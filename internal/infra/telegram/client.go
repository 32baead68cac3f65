// internal/infra/telegram/client.go
package telegram

import (
	"bytes"

	"gopkg.in/telebot.v3"
)

// Messenger sends to chats through a telebot.Bot.
type Messenger struct {
	bot *telebot.Bot
}

func NewMessenger(b *telebot.Bot) *Messenger {
	return &Messenger{bot: b}
}

func (m *Messenger) Send(chatID int64, text string, markup *telebot.ReplyMarkup) error {
	opts := &telebot.SendOptions{DisableWebPagePreview: true}
	if markup != nil {
		opts.ReplyMarkup = markup
	}
	_, err := m.bot.Send(telebot.ChatID(chatID), text, opts)
	return err
}

func (m *Messenger) SendFile(chatID int64, name string, content []byte, caption string) error {
	doc := &telebot.Document{
		File:     telebot.FromReader(bytes.NewReader(content)),
		FileName: name,
		Caption:  caption,
	}
	_, err := m.bot.Send(telebot.ChatID(chatID), doc)
	return err
}
