// Package chat provides a unified interface for the quiz's messaging channels
// (Telegram, WebSocket).
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// InboundMessage is a message received from any channel.
type InboundMessage struct {
	Channel    string
	UserID     string
	ExternalID string
	Text       string
	Username   string
	FirstName  string
	LastName   string
	Language   string
}

// OutboundMessage is a message to send via any channel.
type OutboundMessage struct {
	Channel   string
	UserID    string
	Text      string
	ParseMode string // "Markdown", "HTML", or ""
}

// Channel is the interface each messaging platform must implement.
type Channel interface {
	SendMessage(ctx context.Context, userID string, msg OutboundMessage) error
	SendTyping(ctx context.Context, userID string) error
	Start(ctx context.Context, handler func(InboundMessage)) error
	Stop() error
}

// Gateway routes messages to/from registered channels.
type Gateway struct {
	channels map[string]Channel
	mu       sync.RWMutex
}

// NewGateway creates a new chat gateway.
func NewGateway() *Gateway {
	return &Gateway{
		channels: make(map[string]Channel),
	}
}

// Register adds a channel to the gateway.
func (g *Gateway) Register(name string, ch Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels[name] = ch
	slog.Info("chat channel registered", "channel", name)
}

// HasChannel returns true if the named channel is registered.
func (g *Gateway) HasChannel(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.channels[name]
	return ok
}

// Names returns the registered channel names in sorted order.
func (g *Gateway) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.channels))
	for name := range g.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Send dispatches a message to the appropriate channel.
func (g *Gateway) Send(ctx context.Context, msg OutboundMessage) error {
	g.mu.RLock()
	ch, ok := g.channels[msg.Channel]
	g.mu.RUnlock()

	if !ok {
		return fmt.Errorf("unknown channel: %s", msg.Channel)
	}

	return ch.SendMessage(ctx, msg.UserID, msg)
}

// SendTyping sends a typing indicator to the user on the given channel.
func (g *Gateway) SendTyping(ctx context.Context, channel, userID string) error {
	g.mu.RLock()
	ch, ok := g.channels[channel]
	g.mu.RUnlock()

	if !ok {
		return fmt.Errorf("unknown channel: %s", channel)
	}

	return ch.SendTyping(ctx, userID)
}

// StartAll starts all registered channels with the given message handler.
func (g *Gateway) StartAll(ctx context.Context, handler func(InboundMessage)) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for name, ch := range g.channels {
		slog.Info("starting channel", "channel", name)
		if err := ch.Start(ctx, handler); err != nil {
			return fmt.Errorf("starting channel %s: %w", name, err)
		}
	}
	return nil
}

// StopAll stops every registered channel and joins their errors.
func (g *Gateway) StopAll() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error
	for name, ch := range g.channels {
		if err := ch.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stopping channel %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Responder turns an inbound message into reply text.
type Responder interface {
	ProcessMessage(ctx context.Context, msg InboundMessage) (string, error)
}

// Handler returns a message handler that shows a typing indicator, asks r for
// a reply and sends it back on the message's channel.
func (g *Gateway) Handler(ctx context.Context, r Responder) func(InboundMessage) {
	return func(msg InboundMessage) {
		if !g.HasChannel(msg.Channel) {
			slog.Warn("dropping message from unregistered channel", "channel", msg.Channel, "user_id", msg.UserID)
			return
		}
		if err := g.SendTyping(ctx, msg.Channel, msg.UserID); err != nil {
			slog.Debug("typing indicator failed", "channel", msg.Channel, "error", err)
		}

		reply, err := r.ProcessMessage(ctx, msg)
		if err != nil {
			slog.Error("failed to process message", "channel", msg.Channel, "user_id", msg.UserID, "error", err)
			return
		}
		if reply == "" {
			return
		}

		if err := g.Send(ctx, OutboundMessage{
			Channel: msg.Channel,
			UserID:  msg.UserID,
			Text:    reply,
		}); err != nil {
			slog.Error("failed to send reply", "channel", msg.Channel, "user_id", msg.UserID, "error", err)
		}
	}
}

// MockChannel is a test double for Channel.
type MockChannel struct {
	mu           sync.Mutex
	SentMessages []OutboundMessage
	Typing       int
	Started      bool
	Stopped      bool
}

func (m *MockChannel) SendMessage(_ context.Context, _ string, msg OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentMessages = append(m.SentMessages, msg)
	return nil
}

func (m *MockChannel) SendTyping(_ context.Context, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Typing++
	return nil
}

func (m *MockChannel) Start(_ context.Context, _ func(InboundMessage)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Started = true
	return nil
}

func (m *MockChannel) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stopped = true
	return nil
}

// Sent returns a copy of the messages sent so far.
func (m *MockChannel) Sent() []OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]OutboundMessage{}, m.SentMessages...)
}
