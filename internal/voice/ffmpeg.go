package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// FFmpegDevice captures from a system input through ffmpeg
type FFmpegDevice struct {
	path   string
	format string
	input  string
	logger *slog.Logger

	probeOnce sync.Once
	encoders  string
}

// NewFFmpegDevice creates a device reading input with the given ffmpeg input
// format, e.g. "pulse"/"default", "alsa"/"hw:0" or "avfoundation"/":0".
func NewFFmpegDevice(path, format, input string, logger *slog.Logger) *FFmpegDevice {
	if path == "" {
		path = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FFmpegDevice{
		path:   path,
		format: format,
		input:  input,
		logger: logger.With("component", "ffmpeg"),
	}
}

// Supports checks the encoders of the local ffmpeg build
func (d *FFmpegDevice) Supports(mimeType string) bool {
	d.probeOnce.Do(func() {
		out, err := exec.Command(d.path, "-hide_banner", "-encoders").Output()
		if err != nil {
			d.logger.Warn("failed to list ffmpeg encoders", "error", err)
			return
		}
		d.encoders = string(out)
	})

	switch mimeType {
	case "":
		return true
	case "audio/webm;codecs=opus":
		return strings.Contains(d.encoders, "libopus")
	case "audio/webm":
		return strings.Contains(d.encoders, "libopus") || strings.Contains(d.encoders, "libvorbis")
	case "audio/mp4":
		return strings.Contains(d.encoders, " aac ")
	default:
		return false
	}
}

// Open checks that the input can be read before any recording starts
func (d *FFmpegDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	if _, err := exec.LookPath(d.path); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not installed: %v", ErrDeviceNotFound, err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(probeCtx, d.path,
		"-hide_banner", "-loglevel", "error",
		"-f", d.format, "-i", d.input,
		"-t", "0.1", "-f", "null", "-",
	)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, classifyOpenError(stderr.String(), err)
	}

	if c.EchoCancellation {
		d.logger.Debug("echo cancellation is not available for ffmpeg capture")
	}
	return &ffmpegStream{device: d, constraints: c}, nil
}

func classifyOpenError(stderr string, err error) error {
	msg := strings.ToLower(stderr)
	switch {
	case strings.Contains(msg, "permission denied"), strings.Contains(msg, "not authorized"):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, strings.TrimSpace(stderr))
	case strings.Contains(msg, "no such file"), strings.Contains(msg, "cannot open"),
		strings.Contains(msg, "no such device"), strings.Contains(msg, "input/output error"):
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, strings.TrimSpace(stderr))
	default:
		if s := strings.TrimSpace(stderr); s != "" {
			return fmt.Errorf("ffmpeg: %s: %w", s, err)
		}
		return fmt.Errorf("ffmpeg: %w", err)
	}
}

type ffmpegStream struct {
	device      *FFmpegDevice
	constraints Constraints

	mu       sync.Mutex
	closed   bool
	recorder *ffmpegRecorder
}

// encodeArgs maps a MIME type to ffmpeg output options
func (s *ffmpegStream) encodeArgs(mimeType string) ([]string, string) {
	switch mimeType {
	case "audio/webm;codecs=opus":
		return []string{"-c:a", "libopus", "-f", "webm"}, mimeType
	case "audio/webm":
		if s.device.Supports("audio/webm;codecs=opus") {
			return []string{"-c:a", "libopus", "-f", "webm"}, mimeType
		}
		return []string{"-c:a", "libvorbis", "-f", "webm"}, mimeType
	case "audio/mp4":
		return []string{"-c:a", "aac", "-f", "mp4", "-movflags", "frag_keyframe+empty_moov"}, mimeType
	default:
		return []string{"-c:a", "pcm_s16le", "-f", "wav"}, "audio/wav"
	}
}

func (s *ffmpegStream) Record(mimeType string, slice time.Duration, onData func([]byte)) (Recorder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("stream closed")
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-f", s.device.format, "-i", s.device.input}
	var filters []string
	if s.constraints.NoiseSuppression {
		filters = append(filters, "afftdn")
	}
	if s.constraints.AutoGainControl {
		filters = append(filters, "dynaudnorm")
	}
	if len(filters) > 0 {
		args = append(args, "-af", strings.Join(filters, ","))
	}
	encode, actual := s.encodeArgs(mimeType)
	args = append(args, encode...)
	args = append(args, "pipe:1")

	cmd := exec.Command(s.device.path, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open ffmpeg stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	r := &ffmpegRecorder{
		cmd:      cmd,
		stdin:    stdin,
		mimeType: actual,
		onData:   onData,
		readDone: make(chan struct{}),
		stop:     make(chan struct{}),
	}
	go r.read(stdout)
	go r.slices(slice)

	s.recorder = r
	s.device.logger.Debug("ffmpeg recording", "args", strings.Join(args, " "))
	return r, nil
}

// Close stops the capture process if a recorder is still running
func (s *ffmpegStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.recorder != nil {
		s.recorder.kill()
	}
	return nil
}

type ffmpegRecorder struct {
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	mimeType string
	onData   func([]byte)

	mu       sync.Mutex
	buf      bytes.Buffer
	stopOnce sync.Once
	stopErr  error
	readDone chan struct{}
	stop     chan struct{}
}

func (r *ffmpegRecorder) read(stdout io.Reader) {
	defer close(r.readDone)
	chunk := make([]byte, 32*1024)
	for {
		n, err := stdout.Read(chunk)
		if n > 0 {
			r.mu.Lock()
			r.buf.Write(chunk[:n])
			r.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func (r *ffmpegRecorder) slices(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.RequestData()
		}
	}
}

func (r *ffmpegRecorder) RequestData() {
	r.mu.Lock()
	if r.buf.Len() == 0 {
		r.mu.Unlock()
		return
	}
	data := make([]byte, r.buf.Len())
	copy(data, r.buf.Bytes())
	r.buf.Reset()
	r.mu.Unlock()

	r.onData(data)
}

// Stop asks ffmpeg to finish the container, waits for the last bytes and
// delivers them
func (r *ffmpegRecorder) Stop() error {
	r.stopOnce.Do(func() {
		close(r.stop)
		if _, err := io.WriteString(r.stdin, "q"); err != nil {
			_ = r.cmd.Process.Kill()
		}
		_ = r.stdin.Close()

		select {
		case <-r.readDone:
		case <-time.After(3 * time.Second):
			_ = r.cmd.Process.Kill()
			<-r.readDone
		}
		if err := r.cmd.Wait(); err != nil {
			var exitErr *exec.ExitError
			if !errors.As(err, &exitErr) {
				r.stopErr = err
			}
		}
		r.RequestData()
	})
	return r.stopErr
}

func (r *ffmpegRecorder) kill() {
	select {
	case <-r.readDone:
		return
	default:
	}
	if r.cmd.Process != nil {
		_ = r.cmd.Process.Kill()
	}
}

func (r *ffmpegRecorder) MimeType() string {
	return r.mimeType
}
