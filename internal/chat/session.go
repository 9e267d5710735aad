package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/claimwise/cli/internal/api"
	"github.com/claimwise/cli/internal/notify"
)

// Role of a message author
type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

// Greeting opens every session
const Greeting = "Hello! I can help explain any clauses in your document, your rights, or what to do next. What would you like to know?"

// Message is one entry of the transcript
type Message struct {
	ID        string
	Role      Role
	Content   string
	Sources   []api.Source
	Error     bool
	CreatedAt time.Time
}

// Backend answers questions
type Backend interface {
	Chat(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error)
}

// Session is an append-only chat transcript. At most one question is
// outstanding at a time.
type Session struct {
	backend  Backend
	fileID   func() string
	notifier notify.Notifier
	logger   *slog.Logger

	mu       sync.Mutex
	messages []Message
	pending  bool
}

// NewSession creates a session. fileID scopes questions to the document on
// screen and may return "".
func NewSession(backend Backend, fileID func() string, notifier notify.Notifier, logger *slog.Logger) *Session {
	if fileID == nil {
		fileID = func() string { return "" }
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		backend:  backend,
		fileID:   fileID,
		notifier: notifier,
		logger:   logger.With("component", "chat"),
	}
	s.messages = append(s.messages, newMessage(RoleAI, Greeting))
	return s
}

func newMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// Send asks a question. Blank text, or a question while another is
// outstanding, does nothing and returns false.
func (s *Session) Send(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return false
	}
	s.pending = true
	s.messages = append(s.messages, newMessage(RoleUser, text))
	s.mu.Unlock()

	req := api.ChatRequest{Message: text, FileID: s.fileID()}
	resp, err := s.backend.Chat(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = false

	if err != nil {
		s.logger.Error("chat request failed", "file_id", req.FileID, "error", err)
		msg := newMessage(RoleAI, "Sorry, I couldn't answer that. "+api.UserMessage(err))
		msg.Error = true
		s.messages = append(s.messages, msg)
		if s.notifier != nil {
			s.notifier.Notify(notify.LevelError, "Chat failed", api.UserMessage(err))
		}
		return true
	}

	msg := newMessage(RoleAI, resp.Answer)
	msg.Sources = resp.Sources
	s.messages = append(s.messages, msg)
	return true
}

// AppendVoiceTurn records a spoken question and its answer, in that order
func (s *Session) AppendVoiceTurn(transcript, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(transcript) != "" {
		s.messages = append(s.messages, newMessage(RoleUser, transcript))
	}
	if strings.TrimSpace(answer) != "" {
		s.messages = append(s.messages, newMessage(RoleAI, answer))
	}
}

// Pending reports whether a question is awaiting its answer
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Messages returns a copy of the transcript
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}
