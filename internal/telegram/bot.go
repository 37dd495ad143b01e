package telegram

import (
	"context"
	"fmt"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/locvowork/attendance_bot/internal/conversation"
	"github.com/locvowork/attendance_bot/internal/logger"
)

const (
	pollTimeout = 60

	// Bot API limits, in characters.
	maxMessageText = 4096
	maxCaption     = 1024
)

// Sender is the part of the Bot API client used to talk back to chats.
// *tgbotapi.BotAPI implements it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Handler processes one decoded input.
type Handler interface {
	Handle(ctx context.Context, in conversation.Input) []conversation.Reply
}

// Connect authorises against the Bot API.
func Connect(token string, debug bool) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram connect: %w", err)
	}
	api.Debug = debug
	return api, nil
}

// Bot turns chat updates into driver inputs and driver replies into
// messages.
type Bot struct {
	api        Sender
	handler    Handler
	dispatcher *Dispatcher
}

func NewBot(api Sender, handler Handler, dispatcher *Dispatcher) *Bot {
	return &Bot{
		api:        api,
		handler:    handler,
		dispatcher: dispatcher,
	}
}

// Poll long-polls the Bot API and runs the bot until ctx is done.
func Poll(ctx context.Context, api *tgbotapi.BotAPI, bot *Bot) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeout
	updates := api.GetUpdatesChan(cfg)

	logger.InfoLog(ctx, "Authorized on account %s", api.Self.UserName)
	bot.Run(ctx, updates)
	api.StopReceivingUpdates()
}

// Run consumes updates until ctx is done or the channel closes, then waits
// for in-flight updates to finish.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	b.dispatcher.Start(ctx)
	defer b.dispatcher.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate decodes one update and queues it on the sender's shard.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	var (
		in         conversation.Input
		chatID     int64
		callbackID string
	)

	switch {
	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		if cq.From == nil || cq.Message == nil || cq.Message.Chat == nil {
			return
		}
		callbackID = cq.ID
		chatID = cq.Message.Chat.ID
		decoded, ok := decodeCallback(cq.Data)
		if !ok {
			logger.WarnLog(ctx, "Ignoring malformed callback data %q", cq.Data)
			b.answerCallback(ctx, callbackID)
			return
		}
		in = decoded
		in.Principal = cq.From.ID
	case update.Message != nil:
		m := update.Message
		if m.From == nil || m.Chat == nil {
			return
		}
		chatID = m.Chat.ID
		in = decodeMessage(m)
		in.Principal = m.From.ID
	default:
		return
	}

	ctx = logger.WithLogger(ctx, map[string]interface{}{
		"correlation_id": uuid.NewString(),
		"update_id":      update.UpdateID,
		"principal":      in.Principal,
	})

	// Accepted updates are finished even if shutdown starts meanwhile.
	jobCtx := context.WithoutCancel(ctx)
	ok := b.dispatcher.Submit(ctx, in.Principal, func() {
		b.process(jobCtx, chatID, callbackID, in)
	})
	if !ok {
		logger.WarnLog(ctx, "Dropped update %d during shutdown", update.UpdateID)
	}
}

func (b *Bot) process(ctx context.Context, chatID int64, callbackID string, in conversation.Input) {
	if callbackID != "" {
		b.answerCallback(ctx, callbackID)
	}
	for _, reply := range b.handler.Handle(ctx, in) {
		if err := b.send(chatID, reply); err != nil {
			logger.ErrorLog(ctx, "Failed to send reply to chat %d: %v", chatID, err)
		}
	}
}

// answerCallback stops the client's loading indicator.
func (b *Bot) answerCallback(ctx context.Context, id string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, "")); err != nil {
		logger.DebugLog(ctx, "Failed to answer callback %s: %v", id, err)
	}
}

func (b *Bot) send(chatID int64, r conversation.Reply) error {
	if r.Document != nil {
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: r.Document.Name, Bytes: r.Document.Data})
		doc.Caption = clampText(r.Text, maxCaption)
		if markup := replyKeyboard(r.Keyboard); markup != nil {
			doc.ReplyMarkup = markup
		}
		_, err := b.api.Send(doc)
		return err
	}

	msg := tgbotapi.NewMessage(chatID, clampText(r.Text, maxMessageText))
	if inline := inlineKeyboard(r); inline != nil {
		msg.ReplyMarkup = *inline
	} else if markup := replyKeyboard(r.Keyboard); markup != nil {
		msg.ReplyMarkup = markup
	}
	_, err := b.api.Send(msg)
	return err
}

// clampText cuts text to at most limit characters, marking the cut with an
// ellipsis.
func clampText(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit-1]) + "…"
}
