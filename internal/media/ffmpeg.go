// Package media normalizes fetched audio/video into the PCM format the
// transcription engine consumes. Container handling and resampling are
// delegated to ffmpeg.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// SampleRate is the rate whisper models expect.
const SampleRate = 16000

type commandResult struct {
	stdout string
	stderr string
}

type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return commandResult{stdout: stdout.String(), stderr: stderr.String()}, err
}

// Converter shells out to ffmpeg to turn arbitrary media containers into
// 16 kHz mono pcm_s16le WAV files.
type Converter struct {
	ffmpegPath string
	runner     commandRunner
}

func NewConverter(ffmpegPath string) *Converter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Converter{ffmpegPath: ffmpegPath, runner: execRunner{}}
}

// Available reports whether the configured ffmpeg binary is on PATH.
func (c *Converter) Available() error {
	if _, err := exec.LookPath(c.ffmpegPath); err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}
	return nil
}

// ToWAV converts src into a fresh WAV file in the same directory and returns
// its path. Unreadable or unsupported content surfaces as an error carrying
// the tail of ffmpeg's stderr.
func (c *Converter) ToWAV(ctx context.Context, src string) (string, error) {
	dst := strings.TrimSuffix(src, filepath.Ext(src)) + ".16k.wav"

	result, err := c.runner.Run(ctx, c.ffmpegPath, buildFFmpegArgs(src, dst)...)
	if err != nil {
		return "", fmt.Errorf("ffmpeg convert: %w: %s", err, stderrTail(result.stderr))
	}
	if _, statErr := os.Stat(dst); statErr != nil {
		return "", fmt.Errorf("ffmpeg convert: no output produced: %w", statErr)
	}
	return dst, nil
}

func buildFFmpegArgs(src, dst string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", src,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(SampleRate),
		"-c:a", "pcm_s16le",
		dst,
	}
}

func stderrTail(stderr string) string {
	s := strings.TrimSpace(stderr)
	const max = 512
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max:]
}
