package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hyacinthus/mp3join"
	"github.com/rs/zerolog/log"
)

const (
	defaultGoogleTTSURL = "https://translate.google.com/translate_tts"

	// maxChunkRunes is the longest text the translate endpoint accepts per
	// request.
	maxChunkRunes = 100
)

// GoogleTranslate synthesizes speech through the Google Translate TTS
// endpoint. Long text is split into chunks whose MP3s are joined.
type GoogleTranslate struct {
	BaseURL string
	client  *http.Client
}

// NewGoogleTranslate creates the adapter. An empty baseURL uses the public
// endpoint.
func NewGoogleTranslate(baseURL string, timeout time.Duration) *GoogleTranslate {
	if baseURL == "" {
		baseURL = defaultGoogleTTSURL
	}
	return &GoogleTranslate{
		BaseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *GoogleTranslate) Name() string {
	return "google"
}

// Synthesize fetches every chunk in order and writes the joined MP3 to dest.
func (g *GoogleTranslate) Synthesize(ctx context.Context, text, lang, dest string) error {
	chunks := chunkText(text, maxChunkRunes)
	if len(chunks) == 0 {
		return errors.New("no text to synthesize")
	}

	parts := make([][]byte, 0, len(chunks))
	for i, chunk := range chunks {
		audio, err := g.fetch(ctx, chunk, lang, i, len(chunks))
		if err != nil {
			return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		parts = append(parts, audio)
	}
	log.Debug().Int("chunks", len(chunks)).Str("dest", dest).Msg("Fetched speech chunks")

	if len(parts) == 1 {
		return WriteFileAtomic(dest, parts[0])
	}

	joined, err := joinMP3(parts)
	if err != nil {
		return fmt.Errorf("joining audio chunks: %w", err)
	}
	return WriteFileAtomic(dest, joined)
}

func (g *GoogleTranslate) fetch(ctx context.Context, text, lang string, idx, total int) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", lang)
	q.Set("q", text)
	q.Set("idx", strconv.Itoa(idx))
	q.Set("total", strconv.Itoa(total))
	q.Set("textlen", strconv.Itoa(utf8.RuneCountInString(text)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google tts request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading google tts response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google tts returned %d: %s", resp.StatusCode, string(body))
	}
	if len(body) == 0 {
		return nil, errors.New("google tts returned empty audio")
	}
	return body, nil
}

func joinMP3(parts [][]byte) ([]byte, error) {
	joiner := mp3join.New()
	for _, p := range parts {
		if err := joiner.Append(bytes.NewReader(p)); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, joiner.Reader()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// chunkText splits text on whitespace into pieces of at most size runes.
// Words longer than size are split hard.
func chunkText(text string, size int) []string {
	var chunks []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, word := range strings.Fields(text) {
		runes := []rune(word)
		for len(runes) > size {
			flush()
			chunks = append(chunks, string(runes[:size]))
			runes = runes[size:]
		}

		n := len(runes)
		if curLen > 0 && curLen+1+n > size {
			flush()
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(string(runes))
		curLen += n
	}
	flush()
	return chunks
}
