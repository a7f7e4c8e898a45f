// Package notify carries user-facing messages out of the editing session:
// validation failures and successful clipboard copies.
package notify

import (
	"sync"

	"github.com/rs/zerolog"
)

// Notifier receives user-facing messages.
type Notifier interface {
	Error(msg string)
	Success(msg string)
}

// LogNotifier writes notifications to a logger, tagged so they can be told
// apart from diagnostics.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("channel", "notify").Logger()}
}

func (n *LogNotifier) Error(msg string) {
	n.log.Error().Msg(msg)
}

func (n *LogNotifier) Success(msg string) {
	n.log.Info().Bool("success", true).Msg(msg)
}

// Message is one recorded notification.
type Message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Recorder keeps the most recent notifications in memory so they can be
// returned to an MCP client alongside a tool result. It forwards to Next when
// set.
type Recorder struct {
	Next Notifier

	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Error(msg string) {
	r.add("error", msg)
	if r.Next != nil {
		r.Next.Error(msg)
	}
}

func (r *Recorder) Success(msg string) {
	r.add("success", msg)
	if r.Next != nil {
		r.Next.Success(msg)
	}
}

func (r *Recorder) add(level, text string) {
	r.mu.Lock()
	r.messages = append(r.messages, Message{Level: level, Text: text})
	r.mu.Unlock()
}

// Drain returns the recorded messages and clears them.
func (r *Recorder) Drain() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.messages
	r.messages = nil
	return out
}
