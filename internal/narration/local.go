package narration

import (
	"context"
	stderrors "errors"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/pkg/errors"
)

// CommandSpeaker speaks through a local text-to-speech program such as
// espeak or macOS say.
type CommandSpeaker struct {
	Command string
}

// Speak blocks until the program exits or ctx is cancelled.
func (c CommandSpeaker) Speak(ctx context.Context, text string, voice VoiceParams) error {
	if c.Command == "" {
		return ErrSpeechUnavailable
	}
	path, err := exec.LookPath(c.Command)
	if err != nil {
		return errors.Wrap(ErrSpeechUnavailable, err.Error())
	}
	cmd := exec.CommandContext(ctx, path, speakerArgs(filepath.Base(c.Command), text, voice.Normalize())...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrapf(err, "%s", c.Command)
	}
	return nil
}

// speakerArgs adapts the voice contract to the program's flags.
func speakerArgs(program, text string, v VoiceParams) []string {
	wpm := strconv.Itoa(int(math.Round(175 * v.Rate)))
	switch program {
	case "say":
		return []string{"-r", wpm, text}
	default:
		// espeak pitch is 0..99 with 50 as neutral.
		pitch := int(math.Round(50 + 49*v.Pitch))
		if pitch < 0 {
			pitch = 0
		}
		if pitch > 99 {
			pitch = 99
		}
		return []string{"-s", wpm, "-p", strconv.Itoa(pitch), "-v", v.Language, text}
	}
}

// CommandPlayer plays audio by handing a temp file to a program such as
// mpg123 or afplay.
type CommandPlayer struct {
	Command string
	Args    []string

	mu  sync.Mutex
	cmd *exec.Cmd
}

// Play starts the program and returns immediately.
func (p *CommandPlayer) Play(ctx context.Context, audio []byte, done func(error)) error {
	path, err := exec.LookPath(p.Command)
	if err != nil {
		return err
	}
	f, err := os.CreateTemp("", "glassbridge-*.mp3")
	if err != nil {
		return err
	}
	if _, err := f.Write(audio); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	f.Close()
	args := append(append([]string{}, p.Args...), f.Name())
	cmd := exec.CommandContext(ctx, path, args...)
	if err := cmd.Start(); err != nil {
		os.Remove(f.Name())
		return err
	}
	p.mu.Lock()
	p.cmd = cmd
	p.mu.Unlock()
	go func() {
		err := cmd.Wait()
		os.Remove(f.Name())
		p.mu.Lock()
		if p.cmd == cmd {
			p.cmd = nil
		}
		p.mu.Unlock()
		if ctx.Err() != nil {
			// cancelled through Stop; the queue already moved on
			err = nil
		}
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) && exitErr.ExitCode() < 0 {
			err = nil
		}
		done(err)
	}()
	return nil
}

// Stop kills the running program, if any.
func (p *CommandPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	p.cmd = nil
}

// SilentPlayer completes every playback immediately without sound.
type SilentPlayer struct{}

func (SilentPlayer) Play(_ context.Context, _ []byte, done func(error)) error {
	go done(nil)
	return nil
}

func (SilentPlayer) Stop() {}
