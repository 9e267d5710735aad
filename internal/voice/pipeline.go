package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claimwise/cli/internal/api"
	"github.com/claimwise/cli/internal/notify"
)

// State of the capture pipeline
type State string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateStopping   State = "stopping"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StatePlaying    State = "playing"
	StateError      State = "error"
)

var (
	// ErrBusy is returned by Start while a session is in progress
	ErrBusy = errors.New("voice session already in progress")
	// ErrNotRecording is returned by Stop when nothing is being recorded
	ErrNotRecording = errors.New("not recording")
	// ErrClosed is returned by Stop when Close ended its session
	ErrClosed = errors.New("voice session closed")

	// ErrNoAudio rejects a session that captured nothing
	ErrNoAudio = &api.ValidationError{Field: "audio", Message: "No audio was recorded. Please try again."}
	// ErrTooShort rejects a session below the minimum size
	ErrTooShort = &api.ValidationError{Field: "audio", Message: "Recording too short. Hold to record for at least a second."}
)

// CaptureError is a failure to acquire the microphone
type CaptureError struct {
	Message string
	Err     error
}

func (e *CaptureError) Error() string { return e.Message }
func (e *CaptureError) Unwrap() error { return e.Err }

func captureError(err error) *CaptureError {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return &CaptureError{Message: "Microphone access denied. Allow microphone access and try again.", Err: err}
	case errors.Is(err, ErrDeviceNotFound):
		return &CaptureError{Message: "No microphone found. Connect a microphone and try again.", Err: err}
	default:
		return &CaptureError{Message: fmt.Sprintf("Could not access the microphone: %v", err), Err: err}
	}
}

// Submitter sends a recording and returns the spoken answer
type Submitter interface {
	VoiceChat(ctx context.Context, audio []byte, filename, mimeType, fileID string) (*api.VoiceReply, error)
}

// Transcript receives the text of each completed turn
type Transcript interface {
	AppendVoiceTurn(transcript, answer string)
}

// Options tune the pipeline
type Options struct {
	MaxDuration time.Duration
	Slice       time.Duration
	MinBytes    int
	SettleDelay time.Duration
}

// DefaultOptions returns the standard limits
func DefaultOptions() Options {
	return Options{
		MaxDuration: 60 * time.Second,
		Slice:       time.Second,
		MinBytes:    1000,
		SettleDelay: 300 * time.Millisecond,
	}
}

// Chunk is one slice of encoded audio
type Chunk struct {
	Data     []byte
	MimeType string
}

// Turn is a completed question and answer
type Turn struct {
	Transcript string
	Answer     string
	Language   string
	TTSFailed  bool
	Playing    bool
}

// EventKind identifies pipeline events
type EventKind int

const (
	EventState EventKind = iota
	EventTurn
	EventError
	EventNotice
	EventPlaybackEnded
)

// Event is published to the listener on every visible change
type Event struct {
	Kind    EventKind
	State   State
	Turn    *Turn
	Err     error
	Message string
}

// Config wires a pipeline to its collaborators
type Config struct {
	Device     Device
	Submitter  Submitter
	Player     Player
	Transcript Transcript
	// Context reports the document on screen when a recording is submitted
	Context  func() DocumentContext
	Notifier notify.Notifier
	Listener func(Event)
	Options  Options
	Logger   *slog.Logger
}

// Pipeline records a spoken question, submits it and plays the answer.
// One session runs at a time.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger

	mu         sync.Mutex
	state      State
	starting   bool
	processing bool
	stream     Stream
	recorder   Recorder
	mimeType   string
	chunks     []Chunk
	startedAt  time.Time
	maxTimer   *time.Timer
	session    uint64
	playCancel context.CancelFunc
}

// New creates a pipeline
func New(cfg Config) *Pipeline {
	if cfg.Options == (Options{}) {
		cfg.Options = DefaultOptions()
	}
	if cfg.Context == nil {
		cfg.Context = func() DocumentContext { return DocumentContext{} }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "voice"),
		state:  StateIdle,
	}
}

// State returns the current state
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Recording reports whether audio is being captured
func (p *Pipeline) Recording() bool {
	return p.State() == StateRecording
}

// Processing reports whether a session is between stop and the end of playback
func (p *Pipeline) Processing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processing
}

// Elapsed is the recording time of the current session
func (p *Pipeline) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateRecording {
		return 0
	}
	return time.Since(p.startedAt)
}

// BufferedBytes is the size of the audio captured so far
func (p *Pipeline) BufferedBytes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.chunks {
		n += len(c.Data)
	}
	return n
}

// Start acquires the microphone and begins recording
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.state != StateIdle || p.processing || p.starting {
		p.mu.Unlock()
		return ErrBusy
	}
	p.starting = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.starting = false
		p.mu.Unlock()
	}()

	stream, err := p.cfg.Device.Open(ctx, Constraints{
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
	})
	if err != nil {
		cerr := captureError(err)
		p.logger.Error("microphone acquisition failed", "error", err)
		p.fail(cerr)
		return cerr
	}

	mimeType := Negotiate(p.cfg.Device.Supports)

	p.mu.Lock()
	p.session++
	session := p.session
	p.mimeType = mimeType
	p.chunks = nil
	p.mu.Unlock()

	rec, err := stream.Record(mimeType, p.cfg.Options.Slice, func(data []byte) { p.appendChunk(session, data) })
	if err != nil {
		if cerr := stream.Close(); cerr != nil {
			p.logger.Warn("failed to release microphone", "error", cerr)
		}
		cerr := &CaptureError{Message: fmt.Sprintf("Could not start recording: %v", err), Err: err}
		p.logger.Error("recorder start failed", "mime_type", mimeType, "error", err)
		p.fail(cerr)
		return cerr
	}

	p.mu.Lock()
	if p.session != session {
		p.mu.Unlock()
		if err := rec.Stop(); err != nil {
			p.logger.Warn("recorder stop failed", "error", err)
		}
		p.release(stream)
		return ErrClosed
	}
	p.stream = stream
	p.recorder = rec
	if actual := rec.MimeType(); actual != "" && actual != p.mimeType {
		p.mimeType = actual
		for i := range p.chunks {
			p.chunks[i].MimeType = actual
		}
	}
	mimeType = p.mimeType
	p.startedAt = time.Now()
	p.maxTimer = time.AfterFunc(p.cfg.Options.MaxDuration, func() { p.autoStop(session) })
	p.state = StateRecording
	p.mu.Unlock()

	p.logger.Info("recording started", "mime_type", mimeType)
	p.emit(Event{Kind: EventState, State: StateRecording})
	return nil
}

// appendChunk buffers one slice tagged with the recorder's actual format.
// Slices from an ended session are dropped.
func (p *Pipeline) appendChunk(session uint64, data []byte) {
	if len(data) == 0 {
		return
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	p.mu.Lock()
	if p.session == session {
		p.chunks = append(p.chunks, Chunk{Data: buf, MimeType: p.mimeType})
	}
	p.mu.Unlock()
}

// autoStop ends the session when the maximum duration is reached. It only
// acts on the session that armed it.
func (p *Pipeline) autoStop(session uint64) {
	p.mu.Lock()
	current := p.session == session && p.state == StateRecording
	p.mu.Unlock()
	if !current {
		return
	}

	p.logger.Info("maximum recording duration reached", "max", p.cfg.Options.MaxDuration)
	if _, err := p.Stop(context.Background()); err != nil {
		p.logger.Debug("auto stop ended with error", "error", err)
	}
}

// Stop ends recording, validates the audio, submits it and starts playback
// of the answer. Without an active recorder it only logs a warning. A Close
// while Stop is in flight ends the session; Stop then leaves the pipeline
// alone and returns ErrClosed.
func (p *Pipeline) Stop(ctx context.Context) (*Turn, error) {
	p.mu.Lock()
	if p.recorder == nil || p.state != StateRecording {
		p.mu.Unlock()
		p.logger.Warn("stop requested without an active recording")
		return nil, ErrNotRecording
	}
	rec, stream, mimeType, session := p.recorder, p.stream, p.mimeType, p.session
	p.recorder, p.stream = nil, nil
	if p.maxTimer != nil {
		p.maxTimer.Stop()
		p.maxTimer = nil
	}
	p.processing = true
	p.state = StateStopping
	p.mu.Unlock()
	p.emit(Event{Kind: EventState, State: StateStopping})

	defer p.clearChunks(session)

	rec.RequestData()
	if err := rec.Stop(); err != nil {
		p.logger.Warn("recorder stop failed", "error", err)
	}
	p.release(stream)

	// late slices can still arrive after stop
	select {
	case <-time.After(p.cfg.Options.SettleDelay):
	case <-ctx.Done():
		p.finish(session)
		return nil, ctx.Err()
	}

	if !p.setState(session, StateValidating) {
		return nil, ErrClosed
	}
	audio, err := p.collect(session)
	if errors.Is(err, ErrClosed) {
		return nil, err
	}
	if err != nil {
		p.logger.Info("recording rejected", "reason", err)
		p.failProcessing(session, err)
		return nil, err
	}

	if !p.setState(session, StateSubmitting) {
		return nil, ErrClosed
	}
	fileID := p.cfg.Context().FileID()
	filename := "recording." + Extension(mimeType)
	p.logger.Info("submitting recording", "bytes", len(audio), "mime_type", mimeType, "file_id", fileID)

	reply, err := p.cfg.Submitter.VoiceChat(ctx, audio, filename, mimeType, fileID)
	if err != nil {
		p.logger.Error("voice request failed", "error", err)
		p.failProcessing(session, err)
		return nil, err
	}
	if !p.current(session) {
		p.logger.Debug("voice reply arrived after close")
		return nil, ErrClosed
	}

	turn := &Turn{
		Transcript: reply.Transcript,
		Answer:     reply.Answer,
		Language:   reply.Language,
		TTSFailed:  reply.TTSFailed,
	}
	if p.cfg.Transcript != nil {
		p.cfg.Transcript.AppendVoiceTurn(reply.Transcript, reply.Answer)
	}

	switch {
	case reply.TTSFailed:
		p.notice(notify.LevelWarning, "Voice response unavailable, showing text only.")
		p.emit(Event{Kind: EventTurn, Turn: turn})
		p.finish(session)
	case len(reply.Audio) == 0:
		p.logger.Warn("voice reply carried no audio")
		p.notice(notify.LevelWarning, "Received an empty audio response, showing text only.")
		p.emit(Event{Kind: EventTurn, Turn: turn})
		p.finish(session)
	case p.cfg.Player == nil:
		p.emit(Event{Kind: EventTurn, Turn: turn})
		p.finish(session)
	default:
		turn.Playing = true
		p.emit(Event{Kind: EventTurn, Turn: turn})
		p.play(session, reply.Audio, reply.ContentType)
	}

	return turn, nil
}

func (p *Pipeline) play(session uint64, audio []byte, contentType string) {
	ctx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	if p.session != session {
		p.mu.Unlock()
		cancel()
		return
	}
	p.playCancel = cancel
	p.state = StatePlaying
	p.mu.Unlock()
	p.emit(Event{Kind: EventState, State: StatePlaying})

	go func() {
		defer cancel()
		if err := p.cfg.Player.Play(ctx, audio, contentType); err != nil && ctx.Err() == nil {
			p.logger.Warn("playback failed", "error", err)
			p.notice(notify.LevelWarning, "Could not play the voice response.")
		}
		p.mu.Lock()
		if p.session == session {
			p.playCancel = nil
		}
		p.mu.Unlock()
		if p.finish(session) {
			p.emit(Event{Kind: EventPlaybackEnded})
		}
	}()
}

// collect validates and concatenates the captured slices
func (p *Pipeline) collect(session uint64) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session != session {
		return nil, ErrClosed
	}
	if len(p.chunks) == 0 {
		return nil, ErrNoAudio
	}
	var buf bytes.Buffer
	for _, c := range p.chunks {
		buf.Write(c.Data)
	}
	if buf.Len() < p.cfg.Options.MinBytes {
		return nil, ErrTooShort
	}
	return buf.Bytes(), nil
}

// Close ends any session in progress and releases the microphone. A Stop
// still in flight returns ErrClosed and no longer touches pipeline state.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	rec, stream := p.recorder, p.stream
	p.recorder, p.stream = nil, nil
	if p.maxTimer != nil {
		p.maxTimer.Stop()
		p.maxTimer = nil
	}
	if p.playCancel != nil {
		p.playCancel()
		p.playCancel = nil
	}
	p.session++
	p.chunks = nil
	p.state = StateIdle
	p.processing = false
	p.mu.Unlock()

	if rec != nil {
		if err := rec.Stop(); err != nil {
			p.logger.Warn("recorder stop failed", "error", err)
		}
	}
	p.release(stream)
	return nil
}

func (p *Pipeline) release(stream Stream) {
	if stream == nil {
		return
	}
	if err := stream.Close(); err != nil {
		p.logger.Warn("failed to release microphone", "error", err)
	}
}

// current reports whether session has not been superseded by Close or Start
func (p *Pipeline) current(session uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session == session
}

func (p *Pipeline) clearChunks(session uint64) {
	p.mu.Lock()
	if p.session == session {
		p.chunks = nil
	}
	p.mu.Unlock()
}

// setState moves session to s. It reports false and changes nothing once
// the session is over.
func (p *Pipeline) setState(session uint64, s State) bool {
	p.mu.Lock()
	if p.session != session {
		p.mu.Unlock()
		return false
	}
	p.state = s
	p.mu.Unlock()
	p.emit(Event{Kind: EventState, State: s})
	return true
}

// finish returns to idle once a session is fully over
func (p *Pipeline) finish(session uint64) bool {
	p.mu.Lock()
	if p.session != session {
		p.mu.Unlock()
		return false
	}
	p.state = StateIdle
	p.processing = false
	p.mu.Unlock()
	p.emit(Event{Kind: EventState, State: StateIdle})
	return true
}

// fail reports a start failure; nothing was being processed yet
func (p *Pipeline) fail(err error) {
	p.mu.Lock()
	p.state = StateError
	session := p.session
	p.mu.Unlock()
	p.report(err)
	p.finish(session)
}

func (p *Pipeline) failProcessing(session uint64, err error) {
	if !p.setState(session, StateError) {
		return
	}
	p.report(err)
	p.finish(session)
}

func (p *Pipeline) report(err error) {
	msg := api.UserMessage(err)
	var cerr *CaptureError
	if errors.As(err, &cerr) {
		msg = cerr.Message
	}
	if p.cfg.Notifier != nil {
		p.cfg.Notifier.Notify(notify.LevelError, "Voice", msg)
	}
	p.emit(Event{Kind: EventError, Err: err, Message: msg})
}

func (p *Pipeline) notice(level notify.Level, msg string) {
	if p.cfg.Notifier != nil {
		p.cfg.Notifier.Notify(level, "Voice", msg)
	}
	p.emit(Event{Kind: EventNotice, Message: msg})
}

func (p *Pipeline) emit(ev Event) {
	if p.cfg.Listener != nil {
		p.cfg.Listener(ev)
	}
}
