package voice

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// CommandPlayer plays audio with an external program such as ffplay.
// The audio is written to a temporary file that is removed once playback ends.
type CommandPlayer struct {
	path string
	args []string
}

// NewCommandPlayer creates a player. Without args, ffplay flags are used.
func NewCommandPlayer(path string, args ...string) *CommandPlayer {
	if path == "" {
		path = "ffplay"
	}
	if len(args) == 0 {
		args = []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}
	}
	return &CommandPlayer{path: path, args: args}
}

// Play blocks until playback finishes or ctx is cancelled
func (p *CommandPlayer) Play(ctx context.Context, audio []byte, contentType string) error {
	f, err := os.CreateTemp("", "claimwise-reply-*."+Extension(contentType))
	if err != nil {
		return fmt.Errorf("failed to create audio file: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(audio); err != nil {
		f.Close()
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close audio file: %w", err)
	}

	args := append(append([]string{}, p.args...), f.Name())
	cmd := exec.CommandContext(ctx, p.path, args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("playback failed: %w", err)
	}
	return nil
}
