package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

// OpenAISpeech synthesizes speech with the OpenAI audio/speech endpoint.
// The model detects the spoken language from the text, so lang is only
// logged.
type OpenAISpeech struct {
	Model  string
	Voice  string
	apiKey string
	client *openai.Client
}

// NewOpenAISpeech creates the adapter. An empty baseURL uses the OpenAI
// default.
func NewOpenAISpeech(apiKey, baseURL, model, voice string, timeout time.Duration) *OpenAISpeech {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	if model == "" {
		model = "gpt-4o-mini-tts"
	}
	if voice == "" {
		voice = string(openai.VoiceAlloy)
	}
	return &OpenAISpeech{
		Model:  model,
		Voice:  voice,
		apiKey: apiKey,
		client: openai.NewClientWithConfig(cfg),
	}
}

func (o *OpenAISpeech) Name() string {
	return "openai"
}

// maxSpeechInputRunes is the longest input the speech endpoint accepts per
// request.
const maxSpeechInputRunes = 4096

// Synthesize renders text chunk by chunk and writes the joined MP3 to dest.
func (o *OpenAISpeech) Synthesize(ctx context.Context, text, lang, dest string) error {
	if o.apiKey == "" {
		return errors.New("OpenAI API key not configured")
	}
	chunks := chunkText(text, maxSpeechInputRunes)
	if len(chunks) == 0 {
		return errors.New("no text to synthesize")
	}
	log.Debug().Str("lang", lang).Str("model", o.Model).Int("chunks", len(chunks)).Msg("Requesting OpenAI speech")

	parts := make([][]byte, 0, len(chunks))
	for i, chunk := range chunks {
		audio, err := o.speak(ctx, chunk)
		if err != nil {
			return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		parts = append(parts, audio)
	}

	if len(parts) == 1 {
		return WriteFileAtomic(dest, parts[0])
	}
	joined, err := joinMP3(parts)
	if err != nil {
		return fmt.Errorf("joining audio chunks: %w", err)
	}
	return WriteFileAtomic(dest, joined)
}

func (o *OpenAISpeech) speak(ctx context.Context, text string) ([]byte, error) {
	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.Model),
		Input:          text,
		Voice:          openai.SpeechVoice(o.Voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI speech error: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("reading OpenAI speech: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("OpenAI speech returned empty audio")
	}
	return audio, nil
}
