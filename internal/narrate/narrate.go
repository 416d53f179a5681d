// Package narrate turns a story's dialogue into one speech audio file.
package narrate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/logging"
	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/story"
	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/tts"
)

// ErrEmptyScript is wrapped in a SynthesisError when no scene has dialogue.
var ErrEmptyScript = errors.New("story has no dialogue to synthesize")

// SynthesisError is returned when speech synthesis or writing the audio
// file fails.
type SynthesisError struct {
	Path string
	Err  error
}

func (e *SynthesisError) Error() string {
	if e.Path == "" {
		return "synthesize audio: " + e.Err.Error()
	}
	return fmt.Sprintf("synthesize audio %s: %v", e.Path, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// Narrator is the audio-synthesis client.
type Narrator struct {
	synth     tts.Synthesizer
	outputDir string
	language  string
	now       func() time.Time
}

// NewNarrator creates a narrator writing into outputDir. language is the
// fixed spoken-language code sent with every request.
func NewNarrator(synth tts.Synthesizer, outputDir, language string) *Narrator {
	return &Narrator{synth: synth, outputDir: outputDir, language: language, now: time.Now}
}

// Narrate synthesizes the story script and returns the audio file path.
func (n *Narrator) Narrate(ctx context.Context, s *story.Story) (string, error) {
	if s == nil {
		return "", &SynthesisError{Err: errors.New("nil story")}
	}
	script := s.Script()
	if strings.TrimSpace(script) == "" {
		return "", &SynthesisError{Err: ErrEmptyScript}
	}

	path := n.nextPath()
	logger := logging.FromContext(ctx).With().Str("path", path).Str("tts", n.synth.Name()).Logger()
	logger.Info().Int("script_len", len(script)).Msg("Generating audio")

	start := time.Now()
	if err := n.synth.Synthesize(ctx, script, n.language, path); err != nil {
		logger.Error().Err(err).Msg("Audio synthesis failed")
		return "", &SynthesisError{Path: path, Err: err}
	}

	logger.Info().Dur("elapsed", time.Since(start)).Msg("Audio saved")
	return path, nil
}

// nextPath derives a per-run unique file name from the current time plus a
// random suffix, so concurrent runs in the same millisecond cannot collide.
func (n *Narrator) nextPath() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	name := fmt.Sprintf("audio_%d_%s.mp3", n.now().UnixMilli(), id)
	return filepath.Join(n.outputDir, name)
}
