// Package scriptgen asks the generative-text provider for a story script
// and turns the reply into a validated story.Story.
package scriptgen

import (
	"context"
	"errors"
	"time"

	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/llm"
	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/logging"
	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/story"
)

// Generator is the story-generation client.
type Generator struct {
	provider  llm.Provider
	maxTokens int
	pick      func() story.Category
}

// NewGenerator creates a generator choosing a category uniformly at random
// on every call.
func NewGenerator(provider llm.Provider, maxTokens int) *Generator {
	return &Generator{provider: provider, maxTokens: maxTokens, pick: story.RandomCategory}
}

// WithCategoryPicker returns a copy of g that uses pick to choose categories.
func (g *Generator) WithCategoryPicker(pick func() story.Category) *Generator {
	c := *g
	c.pick = pick
	return &c
}

// Generate requests one story. Errors are *llm.UpstreamError when the
// provider call fails and *story.ParseError when the reply is unusable.
func (g *Generator) Generate(ctx context.Context) (*story.Story, error) {
	if g.provider == nil {
		return nil, &llm.UpstreamError{Provider: "none", Err: errors.New("no LLM provider configured")}
	}

	category := g.pick()
	logger := logging.FromContext(ctx).With().Str("category", string(category)).Str("provider", g.provider.Name()).Logger()
	logger.Info().Msg("Generating story")

	start := time.Now()
	reply, err := g.provider.Generate(ctx, story.BuildPrompt(category), g.maxTokens)
	if err != nil {
		var ue *llm.UpstreamError
		if !errors.As(err, &ue) {
			err = &llm.UpstreamError{Provider: g.provider.Name(), Err: err}
		}
		logger.Error().Err(err).Msg("Story generation request failed")
		return nil, err
	}
	logger.Debug().Dur("elapsed", time.Since(start)).Int("reply_len", len(reply)).Msg("Received story reply")

	s, err := story.Parse(reply)
	if err != nil {
		logger.Error().Err(err).Msg("Story reply could not be parsed")
		return nil, err
	}

	if s.Category != category {
		logger.Warn().Str("returned", string(s.Category)).Msg("Model returned a different category")
	}
	logger.Info().Str("title", s.TitleTranslated).Int("scenes", len(s.Scenes)).
		Int("seconds", s.TotalDuration()).Msg("Story generated")
	return s, nil
}
