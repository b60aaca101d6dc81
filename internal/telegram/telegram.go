// Package telegram is an optional extra channel: a long-polling Telegram
// bot that feeds inbound messages to the relay and sends the assistant's
// replies back to the chat.
package telegram

import (
	"context"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/user/whatsapp-assistant/internal/relay"
)

const platformTelegram = "Telegram"

type Bot struct {
	api    *tgbotapi.BotAPI
	relay  *relay.Relay
	logger *zap.SugaredLogger
	wg     sync.WaitGroup
	stopCh chan struct{}
}

func New(token string, r *relay.Relay, logger *zap.SugaredLogger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	bot := &Bot{
		api:    api,
		relay:  r,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	// Replies for this channel are sent through the bot API itself.
	r.RegisterSender(platformTelegram, bot)
	return bot, nil
}

// Start begins listening for updates from Telegram.
func (b *Bot) Start() {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60

	updates := b.api.GetUpdatesChan(updateConfig)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.handleUpdates(updates)
	}()
}

// Stop gracefully shuts down the bot.
func (b *Bot) Stop() {
	close(b.stopCh)
	b.api.StopReceivingUpdates()
	b.wg.Wait()
}

func (b *Bot) handleUpdates(updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-b.stopCh:
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil && update.Message.Text != "" {
				b.handleMessage(update.Message)
			}
		}
	}
}

func (b *Bot) handleMessage(message *tgbotapi.Message) {
	sender := message.From.UserName
	if sender == "" {
		sender = strconv.FormatInt(message.From.ID, 10)
	}
	chatID := strconv.FormatInt(message.Chat.ID, 10)
	timestamp := time.Unix(int64(message.Date), 0).Format(time.RFC3339)

	// ProcessIncoming relays the reply back through Send below.
	b.relay.ProcessIncoming(context.Background(), platformTelegram, sender, chatID, message.Text, timestamp)
}

// Send delivers an assistant reply to a Telegram chat. It implements
// relay.Sender.
func (b *Bot) Send(ctx context.Context, chatID, message string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return err
	}
	_, err = b.api.Send(tgbotapi.NewMessage(id, message))
	return err
}
