package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimwise/cli/internal/api"
	"github.com/claimwise/cli/internal/logging"
	"github.com/claimwise/cli/internal/notify"
)

type fakeBackend struct {
	mu       sync.Mutex
	requests []api.ChatRequest
	resp     *api.ChatResponse
	err      error
	release  chan struct{}
}

func (f *fakeBackend) Chat(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.release != nil {
		<-f.release
	}
	return f.resp, f.err
}

func (f *fakeBackend) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type recordingNotifier struct {
	levels []notify.Level
}

func (r *recordingNotifier) Notify(level notify.Level, title, message string) string {
	r.levels = append(r.levels, level)
	return "id"
}

func TestSendBlankIsNoop(t *testing.T) {
	fb := &fakeBackend{}
	s := NewSession(fb, nil, nil, logging.Discard())

	assert.False(t, s.Send(context.Background(), "   \n\t"))
	assert.Equal(t, 0, fb.count())
	require.Len(t, s.Messages(), 1)
	assert.Equal(t, Greeting, s.Messages()[0].Content)
}

func TestSendAppendsAnswerWithSources(t *testing.T) {
	fb := &fakeBackend{resp: &api.ChatResponse{
		Answer:  "Your landlord must return the deposit within 30 days.",
		Sources: []api.Source{{Chapter: "186", Section: "15B", Relevance: "high"}},
	}}
	s := NewSession(fb, func() string { return "doc-1" }, nil, logging.Discard())

	assert.True(t, s.Send(context.Background(), " When do I get my deposit back? "))

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, RoleUser, msgs[1].Role)
	assert.Equal(t, "When do I get my deposit back?", msgs[1].Content)
	assert.Equal(t, RoleAI, msgs[2].Role)
	assert.Len(t, msgs[2].Sources, 1)
	assert.False(t, s.Pending())

	require.Equal(t, 1, fb.count())
	assert.Equal(t, "doc-1", fb.requests[0].FileID)
}

func TestSendFailureIsInline(t *testing.T) {
	fb := &fakeBackend{err: &api.Error{Status: 503, Detail: "overloaded"}}
	n := &recordingNotifier{}
	s := NewSession(fb, nil, n, logging.Discard())

	assert.True(t, s.Send(context.Background(), "hello"))

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.True(t, msgs[2].Error)
	assert.Contains(t, msgs[2].Content, "try again later")
	assert.Equal(t, []notify.Level{notify.LevelError}, n.levels)
	assert.False(t, s.Pending())
}

func TestPendingBlocksSecondQuestion(t *testing.T) {
	fb := &fakeBackend{resp: &api.ChatResponse{Answer: "ok"}, release: make(chan struct{})}
	s := NewSession(fb, nil, nil, logging.Discard())

	done := make(chan bool)
	go func() { done <- s.Send(context.Background(), "first") }()

	require.Eventually(t, s.Pending, time.Second, time.Millisecond)
	assert.False(t, s.Send(context.Background(), "second"))

	close(fb.release)
	assert.True(t, <-done)
	assert.False(t, s.Pending())
	assert.Equal(t, 1, fb.count())
	assert.Len(t, s.Messages(), 3)
}

func TestAppendVoiceTurn(t *testing.T) {
	s := NewSession(&fakeBackend{}, nil, nil, logging.Discard())
	s.AppendVoiceTurn("Is the late fee legal?", "It exceeds the state cap.")

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, RoleUser, msgs[1].Role)
	assert.Equal(t, RoleAI, msgs[2].Role)
}
