// Package tts holds the speech-synthesis adapters.
package tts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/config"
)

// Synthesizer renders text spoken in lang (an ISO 639-1 code such as "te")
// into an audio file at dest. dest is either fully written or untouched.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, lang, dest string) error
	Name() string
}

// New creates the synthesizer named by cfg.Provider.
func New(cfg config.TTS, apiKey string) (Synthesizer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "google":
		return NewGoogleTranslate("", cfg.Timeout), nil
	case "openai":
		if apiKey == "" {
			log.Warn().Str("key_env", cfg.APIKeyEnv).Msg("OpenAI TTS API key not set")
		}
		return NewOpenAISpeech(apiKey, "", cfg.OpenAIModel, cfg.OpenAIVoice, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown tts provider %q", cfg.Provider)
	}
}

// WriteFileAtomic writes data to a temp file next to path and renames it
// into place.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.part")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing audio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing audio: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting audio permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming audio: %w", err)
	}
	return nil
}
