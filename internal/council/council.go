package council

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/joeynyc/Citadel-Local/internal/cache"
	"github.com/joeynyc/Citadel-Local/internal/providers"
	"github.com/joeynyc/Citadel-Local/internal/redact"
	"github.com/joeynyc/Citadel-Local/internal/review"
)

// Default model names for each stage.
const (
	DefaultTriageModel  = "llama3.2:3b"
	DefaultDeepModel    = "qwen3-coder:30b"
	DefaultSkepticModel = "gpt-oss:20b"
)

// FailureMode decides what happens when a stage call fails.
type FailureMode string

const (
	// FailAbort stops the whole run on the first failed call.
	FailAbort FailureMode = "abort"
	// FailIsolate records the failure on the finding and moves on.
	FailIsolate FailureMode = "isolate"
)

// ParseFailureMode validates a failure mode name. Empty selects FailAbort.
func ParseFailureMode(s string) (FailureMode, error) {
	switch FailureMode(s) {
	case "", FailAbort:
		return FailAbort, nil
	case FailIsolate:
		return FailIsolate, nil
	default:
		return "", fmt.Errorf("unknown failure mode: %q (want abort or isolate)", s)
	}
}

// Options configures a Council.
type Options struct {
	TriageModel  string
	DeepModel    string
	SkepticModel string
	// Concurrency bounds how many findings are reviewed at once. Values
	// below 1 are treated as 1.
	Concurrency int
	FailureMode FailureMode
	Match       MatchPolicy
	// RedactPrompts strips secrets from evidence before it leaves the process.
	RedactPrompts bool
	RedactPaths   []string
	Cache         *cache.Cache
	// OnProgress, if set, is called after each finding completes.
	OnProgress func(done, total int)
}

// Stats summarizes one Review call.
type Stats struct {
	Calls      int
	CacheHits  int
	LLMMs      int64
	Skipped    int
	Reviewed   int
	Failed     int
	Downgraded int
}

// Council runs the triage, deep and skeptic stages against a chat model.
type Council struct {
	model  providers.ChatModel
	opts   Options
	logger zerolog.Logger
}

// New creates a Council. Empty model names fall back to the defaults.
func New(model providers.ChatModel, opts Options, logger zerolog.Logger) *Council {
	if opts.TriageModel == "" {
		opts.TriageModel = DefaultTriageModel
	}
	if opts.DeepModel == "" {
		opts.DeepModel = DefaultDeepModel
	}
	if opts.SkepticModel == "" {
		opts.SkepticModel = DefaultSkepticModel
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.FailureMode == "" {
		opts.FailureMode = FailAbort
	}
	if opts.Match == "" {
		opts.Match = MatchExact
	}
	return &Council{
		model:  model,
		opts:   opts,
		logger: logger.With().Str("component", "council").Logger(),
	}
}

// Review annotates every finding with council verdicts and returns the
// annotated copies in input order. The input slice is not modified.
//
// Any review already present on a finding is discarded and replaced; running
// Review twice issues a fresh set of calls.
//
// In abort mode the first failed call cancels the run and its error is
// returned. In isolate mode the failure is recorded on the finding and the
// run continues; cancellation of ctx still aborts.
func (c *Council) Review(ctx context.Context, repoCtx review.RepoContext, findings []review.Finding) ([]review.Finding, Stats, error) {
	out := make([]review.Finding, len(findings))
	copy(out, findings)

	var (
		mu    sync.Mutex
		stats Stats
		done  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)

	for i := range out {
		i := i
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			var local Stats
			err := c.reviewOne(gctx, repoCtx, &out[i], &local)

			mu.Lock()
			stats.add(local)
			done++
			n := done
			mu.Unlock()

			if c.opts.OnProgress != nil {
				c.opts.OnProgress(n, len(out))
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, stats, err
	}
	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}
	return out, stats, nil
}

func (s *Stats) add(o Stats) {
	s.Calls += o.Calls
	s.CacheHits += o.CacheHits
	s.LLMMs += o.LLMMs
	s.Skipped += o.Skipped
	s.Reviewed += o.Reviewed
	s.Failed += o.Failed
	s.Downgraded += o.Downgraded
}

func (c *Council) reviewOne(ctx context.Context, repoCtx review.RepoContext, f *review.Finding, st *Stats) error {
	f.Review = nil
	log := c.logger.With().Str("finding", f.ID).Logger()

	triage, err := c.call(ctx, StageTriage, c.opts.TriageModel, repoCtx, *f, Attached{}, st)
	if err != nil {
		return c.fail(ctx, f, &review.Review{}, StageTriage, nil, err, st)
	}
	rev := &review.Review{Triage: &triage}

	if !NeedsDeepReview(triage.Fields) {
		log.Debug().Msg("triage skipped deep review")
		f.Review = rev
		st.Skipped++
		return nil
	}

	analysis, err := c.call(ctx, StageDeep, c.opts.DeepModel, repoCtx, *f, Attached{Triage: &triage}, st)
	if err != nil {
		return c.fail(ctx, f, rev, StageDeep, nil, err, st)
	}

	skeptic, err := c.call(ctx, StageSkeptic, c.opts.SkepticModel, repoCtx, *f, Attached{Triage: &triage, Analysis: &analysis}, st)
	if err != nil {
		return c.fail(ctx, f, rev, StageSkeptic, &analysis, err, st)
	}

	rev.Deep = &review.DeepReview{Analysis: analysis, Skeptic: skeptic}
	f.Review = rev
	st.Reviewed++

	before := f.Severity
	if Merge(f, triage, skeptic, c.opts.Match) {
		st.Downgraded++
		log.Info().
			Str("severity_before", string(before)).
			Str("severity", string(f.Severity)).
			Float64("confidence", f.Confidence).
			Msg("skeptic downgraded finding")
	}
	return nil
}

// fail applies the failure mode. In abort mode, or when ctx itself is done,
// the error is returned. Otherwise the stages committed so far are kept and
// the failure is recorded.
func (c *Council) fail(ctx context.Context, f *review.Finding, rev *review.Review, stage Stage, analysis *review.Verdict, err error, st *Stats) error {
	if c.opts.FailureMode != FailIsolate || ctx.Err() != nil {
		return err
	}
	c.logger.Warn().Err(err).Str("finding", f.ID).Str("stage", string(stage)).Msg("council stage failed")
	rev.Failure = &review.StageFailure{
		Stage:    string(stage),
		Error:    err.Error(),
		Analysis: analysis,
	}
	f.Review = rev
	st.Failed++
	return nil
}

// call performs one stage exchange and returns the model-tagged verdict.
func (c *Council) call(ctx context.Context, stage Stage, model string, repoCtx review.RepoContext, f review.Finding, prior Attached, st *Stats) (review.Verdict, error) {
	if c.opts.RedactPrompts {
		f = redact.Finding(f, c.opts.RedactPaths)
	}
	payload, err := BuildUserPayload(repoCtx, f, prior)
	if err != nil {
		return review.Verdict{}, fmt.Errorf("%s stage: %w", stage, err)
	}
	system := stage.SystemPrompt()

	key := cache.BuildCacheKey(model, system, payload)
	raw, hit := c.opts.Cache.Get(key)
	if hit {
		st.CacheHits++
	} else {
		start := time.Now()
		resp, err := c.model.Chat(ctx, providers.ChatRequest{
			Model: model,
			Messages: []providers.Message{
				{Role: providers.RoleSystem, Content: system},
				{Role: providers.RoleUser, Content: payload},
			},
		})
		elapsed := time.Since(start)
		st.Calls++
		st.LLMMs += elapsed.Milliseconds()
		if err != nil {
			return review.Verdict{}, fmt.Errorf("%s stage: %w", stage, err)
		}
		c.logger.Debug().
			Str("stage", string(stage)).
			Str("model", model).
			Str("finding", f.ID).
			Dur("elapsed", elapsed).
			Msg("council call complete")
		raw = resp.Raw
		if err := c.opts.Cache.Put(key, model, raw); err != nil {
			c.logger.Warn().Err(err).Msg("writing cache entry")
		}
	}

	fields := ParseVerdict(ExtractText(raw))
	if IsRaw(fields) {
		c.logger.Debug().Str("stage", string(stage)).Str("finding", f.ID).Msg("model output was not JSON")
	}
	return review.Verdict{Model: model, Fields: fields}, nil
}
