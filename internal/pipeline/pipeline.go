package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/llm"
	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/logging"
	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/narrate"
	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/story"
)

// Stage names reported in a failed Result.
const (
	StageGenerate   = "generate"
	StageSynthesize = "synthesize"
)

const successMessage = "Video processing complete!"

// StoryGenerator produces a fresh story per call.
type StoryGenerator interface {
	Generate(ctx context.Context) (*story.Story, error)
}

// Narrator renders a story's dialogue to an audio file and returns its path.
type Narrator interface {
	Narrate(ctx context.Context, s *story.Story) (string, error)
}

// Result is the outcome of one pipeline run. On failure after the story was
// generated, Story is still set for diagnostics.
type Result struct {
	Success    bool         `json:"success"`
	RunID      string       `json:"runId"`
	Story      *story.Story `json:"story,omitempty"`
	AudioPath  string       `json:"audioPath,omitempty"`
	Message    string       `json:"message,omitempty"`
	Error      string       `json:"error,omitempty"`
	Details    string       `json:"details,omitempty"`
	Stage      string       `json:"stage,omitempty"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
}

// Duration is the wall time of the run.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Pipeline runs generate-then-synthesize.
type Pipeline struct {
	generator StoryGenerator
	narrator  Narrator
	now       func() time.Time
}

// New creates a new pipeline.
func New(generator StoryGenerator, narrator Narrator) *Pipeline {
	return &Pipeline{generator: generator, narrator: narrator, now: time.Now}
}

// Run executes one pipeline run. It always returns a Result; errors and
// panics from either stage are converted into a failed Result.
func (p *Pipeline) Run(ctx context.Context) (r *Result) {
	r = &Result{RunID: uuid.NewString(), StartedAt: p.now()}
	logger := logging.FromContext(ctx).With().Str("run_id", r.RunID).Logger()
	ctx = logger.WithContext(ctx)

	stage := StageGenerate
	defer func() {
		if rec := recover(); rec != nil {
			r.fail(stage, fmt.Errorf("panic: %v", rec))
			logger.Error().Str("stage", stage).Interface("panic", rec).Msg("Pipeline run panicked")
		}
		r.FinishedAt = p.now()
	}()

	logger.Info().Msg("Step 1/2: Generating story...")
	s, err := p.generator.Generate(ctx)
	if err != nil {
		r.fail(stage, err)
		logger.Error().Err(err).Str("stage", stage).Msg("Pipeline run failed")
		return r
	}
	logger.Info().Str("title", s.TitleTranslated).Str("category", string(s.Category)).Msg("Story ready")

	stage = StageSynthesize
	r.Story = s
	logger.Info().Msg("Step 2/2: Synthesizing audio...")
	path, err := p.narrator.Narrate(ctx, s)
	if err != nil {
		r.fail(stage, err)
		logger.Error().Err(err).Str("stage", stage).Msg("Pipeline run failed")
		return r
	}

	r.Success = true
	r.AudioPath = path
	r.Message = successMessage
	logger.Info().Str("audio", path).Msg("Pipeline run complete")
	return r
}

func (r *Result) fail(stage string, err error) {
	r.Success = false
	r.AudioPath = ""
	r.Message = ""
	r.Stage = stage
	r.Error = err.Error()
	r.Details = errorKind(err) + ": " + err.Error()
}

func errorKind(err error) string {
	var ue *llm.UpstreamError
	var pe *story.ParseError
	var se *narrate.SynthesisError
	switch {
	case errors.As(err, &ue):
		return "UpstreamError"
	case errors.As(err, &pe):
		return "ParseError"
	case errors.As(err, &se):
		return "SynthesisError"
	case errors.Is(err, context.DeadlineExceeded):
		return "Timeout"
	default:
		return "Error"
	}
}
