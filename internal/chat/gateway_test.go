package chat_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/p-n-ai/pai-ionian/internal/chat"
)

func TestNewGateway(t *testing.T) {
	gw := chat.NewGateway()
	if gw == nil {
		t.Fatal("NewGateway() returned nil")
	}
}

func TestGateway_RegisterChannel(t *testing.T) {
	gw := chat.NewGateway()
	gw.Register("telegram", &chat.MockChannel{})
	gw.Register("websocket", &chat.MockChannel{})

	if !gw.HasChannel("telegram") {
		t.Error("HasChannel(telegram) should be true after Register")
	}
	if got := gw.Names(); !slices.Equal(got, []string{"telegram", "websocket"}) {
		t.Errorf("Names() = %v, want [telegram websocket]", got)
	}
}

func TestGateway_HasChannel_NotRegistered(t *testing.T) {
	gw := chat.NewGateway()

	if gw.HasChannel("whatsapp") {
		t.Error("HasChannel(whatsapp) should be false when not registered")
	}
}

func TestGateway_SendMessage(t *testing.T) {
	gw := chat.NewGateway()
	mock := &chat.MockChannel{}
	gw.Register("telegram", mock)

	err := gw.Send(context.Background(), chat.OutboundMessage{
		Channel: "telegram",
		UserID:  "123",
		Text:    "Hello!",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(mock.Sent()) != 1 {
		t.Errorf("SentMessages = %d, want 1", len(mock.Sent()))
	}
}

func TestGateway_SendMessage_UnknownChannel(t *testing.T) {
	gw := chat.NewGateway()

	err := gw.Send(context.Background(), chat.OutboundMessage{
		Channel: "unknown",
		UserID:  "123",
		Text:    "Hello!",
	})
	if err == nil {
		t.Error("Send() should error for unknown channel")
	}
}

func TestGateway_StartStopAll(t *testing.T) {
	gw := chat.NewGateway()
	mock := &chat.MockChannel{}
	gw.Register("telegram", mock)

	if err := gw.StartAll(context.Background(), func(chat.InboundMessage) {}); err != nil {
		t.Fatalf("StartAll() error = %v", err)
	}
	if err := gw.StopAll(); err != nil {
		t.Fatalf("StopAll() error = %v", err)
	}
	if !mock.Started || !mock.Stopped {
		t.Errorf("Started = %v, Stopped = %v, want both true", mock.Started, mock.Stopped)
	}
}

type echoResponder struct{ err error }

func (r echoResponder) ProcessMessage(_ context.Context, msg chat.InboundMessage) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "echo: " + msg.Text, nil
}

func TestGateway_Handler(t *testing.T) {
	gw := chat.NewGateway()
	mock := &chat.MockChannel{}
	gw.Register("websocket", mock)

	handle := gw.Handler(context.Background(), echoResponder{})
	handle(chat.InboundMessage{Channel: "websocket", UserID: "u1", Text: "hi"})

	sent := mock.Sent()
	if len(sent) != 1 {
		t.Fatalf("sent = %d messages, want 1", len(sent))
	}
	if sent[0].Text != "echo: hi" || sent[0].UserID != "u1" {
		t.Errorf("sent = %+v, want echo to u1", sent[0])
	}
	if mock.Typing != 1 {
		t.Errorf("Typing = %d, want 1", mock.Typing)
	}
}

type countingResponder struct{ calls int }

func (r *countingResponder) ProcessMessage(context.Context, chat.InboundMessage) (string, error) {
	r.calls++
	return "ok", nil
}

func TestGateway_Handler_UnregisteredChannel(t *testing.T) {
	gw := chat.NewGateway()
	mock := &chat.MockChannel{}
	gw.Register("websocket", mock)

	r := &countingResponder{}
	gw.Handler(context.Background(), r)(chat.InboundMessage{Channel: "sms", UserID: "u1", Text: "hi"})

	if r.calls != 0 {
		t.Errorf("ProcessMessage calls = %d, want 0 for a channel that cannot reply", r.calls)
	}
	if len(mock.Sent()) != 0 || mock.Typing != 0 {
		t.Errorf("mock saw sent=%d typing=%d, want nothing", len(mock.Sent()), mock.Typing)
	}
}

func TestGateway_Handler_ResponderError(t *testing.T) {
	gw := chat.NewGateway()
	mock := &chat.MockChannel{}
	gw.Register("websocket", mock)

	gw.Handler(context.Background(), echoResponder{err: errors.New("boom")})(chat.InboundMessage{Channel: "websocket", UserID: "u1", Text: "hi"})

	if len(mock.Sent()) != 0 {
		t.Errorf("sent = %d messages, want 0", len(mock.Sent()))
	}
}
