package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/joeynyc/Citadel-Local/internal/config"
	"github.com/joeynyc/Citadel-Local/internal/logging"
	"github.com/joeynyc/Citadel-Local/internal/providers"
	"github.com/joeynyc/Citadel-Local/internal/ui"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "0.1.0"

// Exit codes.
const (
	ExitSuccess        = 0
	ExitFindings       = 1
	ExitUsageError     = 2
	ExitTransportError = 3
	ExitRuntimeError   = 4
)

// Persistent flags
var (
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string
	flagLogFile   string
	flagQuiet     bool
)

var rootCmd = &cobra.Command{
	Use:          "citadel",
	Short:        "Local security scanner with a model council",
	Long:         "Citadel scans a repository with deterministic detectors and asks a local Ollama council to triage, analyze and challenge each finding.",
	SilenceUsage: true,
}

// Run executes the root command and returns an exit code.
func Run() int {
	return execute(os.Args[1:], os.Stdout, os.Stderr)
}

func execute(args []string, stdout, stderr io.Writer) int {
	exitCode = ExitSuccess
	outW, errW = stdout, stderr
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.Execute()
	closeLogger()
	if err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}
	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

// Output streams, replaced in tests.
var (
	outW io.Writer = os.Stdout
	errW io.Writer = os.Stderr
)

var (
	logger    = zerolog.Nop()
	logCloser io.Closer
)

// fail prints err and records the exit code matching its cause.
func fail(err error) {
	fmt.Fprintf(errW, "Error: %v\n", err)
	switch {
	case providers.IsTransportError(err):
		exitCode = ExitTransportError
	case errors.Is(err, config.ErrInvalid):
		exitCode = ExitUsageError
	default:
		exitCode = ExitRuntimeError
	}
}

// loadConfig builds the effective config from --config, the environment and
// the given flag overrides, then starts the logger it describes.
func loadConfig(overrides map[string]string) (config.Config, error) {
	if overrides == nil {
		overrides = map[string]string{}
	}
	overrides["log.level"] = flagLogLevel
	overrides["log.format"] = flagLogFormat
	overrides["log.file"] = flagLogFile

	cfg, err := config.Load(flagConfig, overrides)
	if err != nil {
		return config.Config{}, err
	}

	closeLogger()
	l, closer, err := logging.New(logging.Config{
		Level:      cfg.Log.Level,
		Format:     logging.Format(cfg.Log.Format),
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Out:        errW,
	})
	if err != nil {
		return config.Config{}, fmt.Errorf("starting logger: %w", err)
	}
	logger, logCloser = l, closer
	return cfg, nil
}

func closeLogger() {
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
	logger = zerolog.Nop()
}

// newUI returns the terminal UI. Spinners only run when stderr is a
// terminal and --quiet is not set.
func newUI() *ui.UI {
	return ui.New(outW, errW, !flagQuiet && isTerminal(errW))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print citadel version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(outW, "citadel version %s\n", version)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", config.DefaultPath, "Config file path")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	pf.StringVar(&flagLogFormat, "log-format", "", "Log format (console, json, text)")
	pf.StringVar(&flagLogFile, "log-file", "", "Also write logs to this file (rotated)")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Disable banner and spinners")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(baselineCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(versionCmd)
}
