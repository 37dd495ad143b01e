package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/locvowork/attendance_bot/internal/conversation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	failSend error
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, c)
	return tgbotapi.Message{}, s.failSend
}

func (s *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

type recordingHandler struct {
	mu      sync.Mutex
	inputs  []conversation.Input
	replies []conversation.Reply
}

func (h *recordingHandler) Handle(ctx context.Context, in conversation.Input) []conversation.Reply {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inputs = append(h.inputs, in)
	return h.replies
}

func textUpdate(id int, from int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: from},
			Chat: &tgbotapi.Chat{ID: from},
			Text: text,
		},
	}
}

// runUpdates feeds updates through a bot and waits for them to finish.
func runUpdates(t *testing.T, b *Bot, updates ...tgbotapi.Update) {
	t.Helper()
	ch := make(chan tgbotapi.Update, len(updates))
	for _, u := range updates {
		ch <- u
	}
	close(ch)

	done := make(chan struct{})
	go func() {
		b.Run(context.Background(), ch)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("bot did not drain updates")
	}
}

func TestBot_TextMessage(t *testing.T) {
	sender := &fakeSender{}
	handler := &recordingHandler{replies: []conversation.Reply{{Text: "hi", Keyboard: conversation.KeyboardMain}}}
	b := NewBot(sender, handler, NewDispatcher(2))

	runUpdates(t, b, textUpdate(1, 42, labelReports))

	require.Len(t, handler.inputs, 1)
	assert.Equal(t, conversation.Input{Principal: 42, Command: conversation.CommandReportsMenu}, handler.inputs[0])

	require.Len(t, sender.sent, 1)
	msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "hi", msg.Text)
	assert.IsType(t, tgbotapi.ReplyKeyboardMarkup{}, msg.ReplyMarkup)
}

func TestBot_CallbackIsAnswered(t *testing.T) {
	sender := &fakeSender{}
	handler := &recordingHandler{replies: []conversation.Reply{{Text: "done"}}}
	b := NewBot(sender, handler, NewDispatcher(1))

	update := tgbotapi.Update{
		UpdateID: 2,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb-1",
			From:    &tgbotapi.User{ID: 7},
			Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 70}},
			Data:    "emp:3",
		},
	}
	runUpdates(t, b, update)

	require.Len(t, handler.inputs, 1)
	assert.Equal(t, conversation.CommandSelectEmployee, handler.inputs[0].Command)
	assert.Equal(t, int64(3), handler.inputs[0].EmployeeID)
	assert.Equal(t, int64(7), handler.inputs[0].Principal)

	require.Len(t, sender.requests, 1)
	cb, ok := sender.requests[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Equal(t, "cb-1", cb.CallbackQueryID)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(70), sender.sent[0].(tgbotapi.MessageConfig).ChatID)
}

func TestBot_MalformedCallbackIsDropped(t *testing.T) {
	sender := &fakeSender{}
	handler := &recordingHandler{}
	b := NewBot(sender, handler, NewDispatcher(1))

	runUpdates(t, b, tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb-2",
			From:    &tgbotapi.User{ID: 7},
			Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 7}},
			Data:    "emp:nope",
		},
	})

	assert.Empty(t, handler.inputs)
	assert.Len(t, sender.requests, 1)
}

func TestBot_SendsInlineChoicesAndDocuments(t *testing.T) {
	sender := &fakeSender{}
	handler := &recordingHandler{replies: []conversation.Reply{
		{Text: "pick", Keyboard: conversation.KeyboardCancel, EmployeeOptions: []conversation.EmployeeOption{{EmployeeID: 1, Label: "Ivanov"}}},
		{Text: "report", Document: &conversation.Document{Name: "r.csv", Data: []byte("a,b")}},
	}}
	b := NewBot(sender, handler, NewDispatcher(1))

	runUpdates(t, b, textUpdate(3, 5, "anything"))

	require.Len(t, sender.sent, 2)
	msg := sender.sent[0].(tgbotapi.MessageConfig)
	assert.IsType(t, tgbotapi.InlineKeyboardMarkup{}, msg.ReplyMarkup)

	doc, ok := sender.sent[1].(tgbotapi.DocumentConfig)
	require.True(t, ok)
	assert.Equal(t, "report", doc.Caption)
	file, ok := doc.File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.Equal(t, "r.csv", file.Name)
}

func TestBot_SendFailureDoesNotStopProcessing(t *testing.T) {
	sender := &fakeSender{failSend: errors.New("network down")}
	handler := &recordingHandler{replies: []conversation.Reply{{Text: "x"}}}
	b := NewBot(sender, handler, NewDispatcher(1))

	runUpdates(t, b, textUpdate(1, 1, "a"), textUpdate(2, 1, "b"))

	assert.Len(t, handler.inputs, 2)
	assert.Len(t, sender.sent, 2)
}

func TestBot_IgnoresUpdatesWithoutSender(t *testing.T) {
	handler := &recordingHandler{}
	b := NewBot(&fakeSender{}, handler, NewDispatcher(1))

	runUpdates(t, b,
		tgbotapi.Update{UpdateID: 1},
		tgbotapi.Update{UpdateID: 2, Message: &tgbotapi.Message{Text: "channel post"}},
	)
	assert.Empty(t, handler.inputs)
}

func TestClampText(t *testing.T) {
	assert.Equal(t, "short", clampText("short", 10))
	assert.Equal(t, "абвг…", clampText("абвгдежз", 5))
	assert.Equal(t, 4096, utf8.RuneCountInString(clampText(strings.Repeat("я", 5000), maxMessageText)))
}

func TestBot_LongTextIsClamped(t *testing.T) {
	sender := &fakeSender{}
	handler := &recordingHandler{replies: []conversation.Reply{{Text: strings.Repeat("x", 5000)}}}
	b := NewBot(sender, handler, NewDispatcher(1))

	runUpdates(t, b, textUpdate(3, 5, "anything"))

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, maxMessageText, utf8.RuneCountInString(msg.Text))
}
