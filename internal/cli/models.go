package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joeynyc/Citadel-Local/internal/config"
	"github.com/joeynyc/Citadel-Local/internal/council"
	"github.com/joeynyc/Citadel-Local/internal/providers"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect the Ollama server and council models",
}

// councilModel pairs a stage with its configured model.
type councilModel struct {
	Stage council.Stage
	Model string
}

func councilModels(cfg config.Config) []councilModel {
	return []councilModel{
		{council.StageTriage, cfg.Ollama.TriageModel},
		{council.StageDeep, cfg.Ollama.DeepModel},
		{council.StageSkeptic, cfg.Ollama.SkepticModel},
	}
}

// installed reports whether name is among the server's models. A bare name
// matches the ":latest" tag.
func installed(models []providers.ModelInfo, name string) bool {
	for _, m := range models {
		if m.Name == name || m.Name == name+":latest" {
			return true
		}
	}
	return false
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List models installed on the Ollama server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		o := providers.NewOllama(providers.Options{BaseURL: cfg.Ollama.BaseURL, Timeout: 10 * time.Second})

		models, err := o.ListModels(context.Background())
		if err != nil {
			fail(err)
			return nil
		}

		fmt.Fprintf(outW, "%s:\n", o.BaseURL())
		for _, m := range models {
			fmt.Fprintf(outW, "  - %s (%s)\n", m.Name, humanSize(m.Size))
		}
		fmt.Fprintln(outW)
		fmt.Fprintln(outW, "council:")
		for _, cm := range councilModels(cfg) {
			status := "missing"
			if installed(models, cm.Model) {
				status = "installed"
			}
			fmt.Fprintf(outW, "  %-8s %s [%s]\n", cm.Stage, cm.Model, status)
		}
		return nil
	},
}

var modelsDoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that every council model responds",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		o := providers.NewOllama(providers.Options{BaseURL: cfg.Ollama.BaseURL, Timeout: cfg.Timeout()})

		fmt.Fprintf(outW, "Checking %s...\n", o.BaseURL())

		ctx, cancel := context.WithTimeout(context.Background(), 3*cfg.Timeout())
		defer cancel()

		var firstErr error
		for _, cm := range councilModels(cfg) {
			_, err := o.Chat(ctx, providers.ChatRequest{
				Model: cm.Model,
				Messages: []providers.Message{
					{Role: providers.RoleSystem, Content: "Respond with exactly: ok"},
					{Role: providers.RoleUser, Content: "ping"},
				},
			})
			if err != nil {
				fmt.Fprintf(errW, "FAIL %s (%s): %v\n", cm.Stage, cm.Model, err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			fmt.Fprintf(outW, "OK   %s (%s)\n", cm.Stage, cm.Model)
		}

		if firstErr != nil {
			if providers.IsTransportError(firstErr) {
				exitCode = ExitTransportError
			} else {
				exitCode = ExitRuntimeError
			}
		}
		return nil
	},
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func init() {
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsDoctorCmd)
}
