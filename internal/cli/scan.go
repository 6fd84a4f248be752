package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joeynyc/Citadel-Local/internal/baseline"
	"github.com/joeynyc/Citadel-Local/internal/cache"
	"github.com/joeynyc/Citadel-Local/internal/config"
	"github.com/joeynyc/Citadel-Local/internal/council"
	"github.com/joeynyc/Citadel-Local/internal/detectors"
	"github.com/joeynyc/Citadel-Local/internal/gitctx"
	"github.com/joeynyc/Citadel-Local/internal/output"
	"github.com/joeynyc/Citadel-Local/internal/providers"
	"github.com/joeynyc/Citadel-Local/internal/repo"
	"github.com/joeynyc/Citadel-Local/internal/review"
)

// Shared scan flags
var (
	flagOut       string
	flagFormat    string
	flagBaseline  string
	flagFailOn    string
	flagNoCouncil bool
	flagRules     string
	flagBase      string
)

func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagOut, "out", "out", "Output directory")
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output formats, comma-separated (json, md, sarif, text)")
	cmd.Flags().StringVar(&flagBaseline, "baseline", "", "Suppress findings recorded in this baseline file")
	cmd.Flags().StringVar(&flagFailOn, "fail-on", "", "Exit 1 when a finding is at or above this severity (none, info, low, medium, high, critical)")
	cmd.Flags().BoolVar(&flagNoCouncil, "no-council", false, "Skip the model council (deterministic findings only)")
	cmd.Flags().StringVar(&flagRules, "rules", "", "Custom rules file")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagFormat != "" {
		m["formats"] = flagFormat
	}
	if flagFailOn != "" {
		m["fail_on"] = flagFailOn
	}
	if flagRules != "" {
		m["rules_file"] = flagRules
	}
	if flagNoCouncil {
		m["ollama.enabled"] = "false"
	}
	return m
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

var scanCmd = &cobra.Command{
	Use:   "scan <path>",
	Short: "Scan a repository folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(buildOverrides())
		if err != nil {
			return err
		}
		runScan(cmd.Context(), scanTarget{path: args[0], mode: "scan"}, cfg)
		return nil
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff <path>",
	Short: "Scan only files changed against a git base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(buildOverrides())
		if err != nil {
			return err
		}
		runScan(cmd.Context(), scanTarget{path: args[0], mode: "diff", base: flagBase}, cfg)
		return nil
	},
}

// scanTarget selects the files a scan covers.
type scanTarget struct {
	path string
	mode string // "scan" or "diff"
	base string
}

// scanResult is the deterministic part of a scan.
type scanResult struct {
	root     string
	files    []string
	meta     review.RepoContext
	findings []review.Finding
	git      *review.GitInfo
}

// collect resolves the target, selects files and runs the detectors. It
// returns nil with no error when a diff scan has nothing to scan.
func collect(target scanTarget, cfg config.Config) (*scanResult, error) {
	root, err := filepath.Abs(target.path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", target.path, err)
	}
	res := &scanResult{root: root}

	if target.mode == "diff" {
		if err := gitctx.CheckRepo(root); err != nil {
			return nil, err
		}
		res.files, err = gitctx.ChangedFiles(root, target.base, cfg.Ignore, cfg.MaxBytes())
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(outW, "Changed files: %d\n", len(res.files))
		if len(res.files) == 0 {
			return nil, nil
		}
		if info, err := gitctx.GetRepoMeta(root); err == nil {
			res.git = &info
		} else {
			logger.Debug().Err(err).Msg("reading git metadata")
		}
	} else {
		res.files, err = repo.CollectFiles(root, cfg.Ignore, cfg.MaxBytes())
		if err != nil {
			return nil, err
		}
	}

	rules, err := detectors.LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}

	res.meta = repo.Inventory(root, res.files)
	res.findings = detectors.Run(root, res.files, detectors.Options{
		ContextLines: cfg.ContextLines,
		Rules:        rules,
	})
	logger.Info().
		Str("mode", target.mode).
		Int("files", len(res.files)).
		Int("findings", len(res.findings)).
		Msg("detectors complete")
	return res, nil
}

func runScan(ctx context.Context, target scanTarget, cfg config.Config) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	runID := uuid.NewString()
	logger = logger.With().Str("run_id", runID).Logger()
	u := newUI()
	u.Banner(version)

	res, err := collect(target, cfg)
	if err != nil {
		fail(err)
		return
	}
	if res == nil {
		fmt.Fprintln(outW, "No changed files to scan.")
		return
	}
	scanMs := time.Since(start).Milliseconds()

	findings := res.findings
	if flagBaseline != "" {
		bl, err := baseline.Load(flagBaseline)
		if err != nil {
			fail(err)
			return
		}
		var suppressed int
		findings, suppressed = baseline.Filter(findings, bl)
		logger.Info().Int("suppressed", suppressed).Msg("baseline applied")
	}

	var llmMs int64
	if cfg.Ollama.Enabled && len(findings) > 0 {
		var stats council.Stats
		findings, stats, err = runCouncil(ctx, cfg, res.meta, findings)
		if err != nil {
			fail(err)
			return
		}
		llmMs = stats.LLMMs
	}

	report := &review.Report{
		SchemaVersion: review.SchemaVersion,
		Tool:          "citadel",
		Version:       version,
		Scan: review.ScanInfo{
			RepoRoot:  res.root,
			Timestamp: output.Timestamp(time.Now()),
			RunID:     runID,
			Mode:      target.mode,
			Base:      target.base,
			Council:   cfg.Ollama.Enabled,
			Meta:      res.meta,
			Git:       res.git,
			Timing: review.Timing{
				ScanMs:  scanMs,
				LLMMs:   llmMs,
				TotalMs: time.Since(start).Milliseconds(),
			},
		},
		Summary:  review.ComputeSummary(findings),
		Findings: findings,
	}

	outDir, err := filepath.Abs(flagOut)
	if err != nil {
		fail(fmt.Errorf("resolving %s: %w", flagOut, err))
		return
	}
	paths, err := output.WriteAll(report, cfg.Formats, outDir)
	for _, p := range paths {
		u.Wrote(p)
	}
	if err != nil {
		fail(err)
		return
	}

	if !flagQuiet {
		u.Findings(findings)
	}

	if exceedsThreshold(findings, cfg.FailOn) {
		exitCode = ExitFindings
	}
}

// runCouncil reviews findings with the configured models.
func runCouncil(ctx context.Context, cfg config.Config, meta review.RepoContext, findings []review.Finding) ([]review.Finding, council.Stats, error) {
	model, err := providers.New("ollama", providers.Options{
		BaseURL:    cfg.Ollama.BaseURL,
		Timeout:    cfg.Timeout(),
		MaxRetries: cfg.Ollama.MaxRetries,
	})
	if err != nil {
		return nil, council.Stats{}, err
	}

	c, err := cache.New(cfg.Cache.Enabled, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
	if err != nil {
		return nil, council.Stats{}, fmt.Errorf("opening cache: %w", err)
	}

	mode, err := council.ParseFailureMode(cfg.Ollama.OnError)
	if err != nil {
		return nil, council.Stats{}, err
	}
	match, err := council.ParseMatchPolicy(cfg.Ollama.SkepticMatch)
	if err != nil {
		return nil, council.Stats{}, err
	}

	u := newUI()
	sp := u.StartSpinner(fmt.Sprintf("Council reviewing %d findings...", len(findings)))
	cn := council.New(model, council.Options{
		TriageModel:   cfg.Ollama.TriageModel,
		DeepModel:     cfg.Ollama.DeepModel,
		SkepticModel:  cfg.Ollama.SkepticModel,
		Concurrency:   cfg.Ollama.Concurrency,
		FailureMode:   mode,
		Match:         match,
		RedactPrompts: cfg.Privacy.RedactPrompts,
		RedactPaths:   cfg.Privacy.RedactPaths,
		Cache:         c,
		OnProgress: func(done, total int) {
			sp.Update(fmt.Sprintf("Council reviewing findings (%d/%d)...", done, total))
		},
	}, logger)

	reviewed, stats, err := cn.Review(ctx, meta, findings)
	if err != nil {
		sp.Fail("Council failed")
		return nil, stats, err
	}
	sp.Success(fmt.Sprintf("Council done: %d reviewed, %d skipped, %d failed, %d downgraded",
		stats.Reviewed, stats.Skipped, stats.Failed, stats.Downgraded))
	logger.Info().
		Int("calls", stats.Calls).
		Int("cache_hits", stats.CacheHits).
		Int64("llm_ms", stats.LLMMs).
		Int("downgraded", stats.Downgraded).
		Msg("council complete")
	return reviewed, stats, nil
}

func exceedsThreshold(findings []review.Finding, failOn string) bool {
	for _, f := range findings {
		if review.MeetsThreshold(f.Severity, failOn) {
			return true
		}
	}
	return false
}

func init() {
	addScanFlags(scanCmd)
	addScanFlags(diffCmd)
	diffCmd.Flags().StringVar(&flagBase, "base", "origin/main", "Git base ref to diff against")
}
