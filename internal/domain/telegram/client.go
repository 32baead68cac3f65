package telegram

import "gopkg.in/telebot.v3"

// Messenger delivers bot output to a chat, which may be a user or a group.
type Messenger interface {
	// Send posts text, with inline buttons when markup is non-nil.
	Send(chatID int64, text string, markup *telebot.ReplyMarkup) error
	// SendFile posts content as a named document.
	SendFile(chatID int64, name string, content []byte, caption string) error
}
