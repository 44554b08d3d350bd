package notify

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
)

// Telegram sends alerts as plain-text messages to one chat.
type Telegram struct {
	bot  *tele.Bot
	chat *tele.Chat
}

// TelegramOptions configures the Telegram notifier.
type TelegramOptions struct {
	Token   string
	ChatID  int64
	APIURL  string // empty selects the public Bot API
	Timeout time.Duration
}

// NewTelegram creates a send-only bot. No updates are polled and no request
// is made until the first Deliver.
func NewTelegram(opts TelegramOptions) (*Telegram, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if opts.ChatID == 0 {
		return nil, errors.New("telegram chat id is empty")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	b, err := tele.NewBot(tele.Settings{
		URL:     opts.APIURL,
		Token:   opts.Token,
		Client:  &http.Client{Timeout: opts.Timeout},
		Offline: true,
	})
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, chat: &tele.Chat{ID: opts.ChatID}}, nil
}

// Name implements Named.
func (t *Telegram) Name() string { return "telegram" }

// Deliver implements Notifier.
func (t *Telegram) Deliver(ctx context.Context, title, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.bot.Send(t.chat, title+"\n"+body)
	return err
}
