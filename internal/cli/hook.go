package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joeynyc/Citadel-Local/internal/gitctx"
	"github.com/joeynyc/Citadel-Local/internal/review"
)

const (
	hookMarkerStart = "# >>> citadel pre-commit hook >>>"
	hookMarkerEnd   = "# <<< citadel pre-commit hook <<<"
)

var (
	hookFailOn    string
	hookNoCouncil bool
	hookRepo      string
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Manage the git pre-commit hook",
}

var hookInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install citadel as a git pre-commit hook",
	RunE: func(cmd *cobra.Command, args []string) error {
		if hookFailOn != "none" && !review.ValidSeverity(hookFailOn) {
			return fmt.Errorf("invalid --fail-on %q", hookFailOn)
		}
		hookPath, err := getHookPath(hookRepo)
		if err != nil {
			fail(err)
			return nil
		}

		section := generateHookScript(hookFailOn, hookNoCouncil)

		existing, err := os.ReadFile(hookPath)
		if err != nil && !os.IsNotExist(err) {
			fail(fmt.Errorf("reading hook file: %w", err))
			return nil
		}

		var content string
		if len(existing) == 0 {
			content = "#!/bin/sh\n" + section
		} else {
			content = replaceCitadelSection(string(existing), section)
		}

		if err := os.MkdirAll(filepath.Dir(hookPath), 0o755); err != nil {
			fail(fmt.Errorf("creating hooks directory: %w", err))
			return nil
		}
		if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
			fail(fmt.Errorf("writing hook file: %w", err))
			return nil
		}

		fmt.Fprintf(outW, "Installed citadel pre-commit hook at %s\n", hookPath)
		return nil
	},
}

var hookUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the citadel pre-commit hook",
	RunE: func(cmd *cobra.Command, args []string) error {
		hookPath, err := getHookPath(hookRepo)
		if err != nil {
			fail(err)
			return nil
		}

		existing, err := os.ReadFile(hookPath)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Fprintln(outW, "No pre-commit hook found.")
				return nil
			}
			fail(fmt.Errorf("reading hook file: %w", err))
			return nil
		}

		content := removeCitadelSection(string(existing))

		// Only a shebang left: remove the file.
		trimmed := strings.TrimSpace(content)
		if trimmed == "" || trimmed == "#!/bin/sh" || trimmed == "#!/bin/bash" {
			if err := os.Remove(hookPath); err != nil {
				fail(fmt.Errorf("removing hook file: %w", err))
				return nil
			}
			fmt.Fprintf(outW, "Removed citadel pre-commit hook at %s\n", hookPath)
			return nil
		}

		if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
			fail(fmt.Errorf("writing hook file: %w", err))
			return nil
		}
		fmt.Fprintf(outW, "Removed citadel section from %s\n", hookPath)
		return nil
	},
}

func getHookPath(dir string) (string, error) {
	gitDir, err := gitctx.GitDir(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(gitDir, "hooks", "pre-commit"), nil
}

func generateHookScript(failOn string, noCouncil bool) string {
	cmd := fmt.Sprintf("citadel diff . --base HEAD --fail-on %s --quiet", failOn)
	if noCouncil {
		cmd += " --no-council"
	}

	var b strings.Builder
	b.WriteString(hookMarkerStart + "\n")
	b.WriteString(cmd + "\n")
	b.WriteString("CITADEL_EXIT=$?\n")
	b.WriteString("if [ $CITADEL_EXIT -eq 1 ]; then\n")
	b.WriteString("  echo \"citadel: findings at or above " + failOn + ", commit blocked\"\n")
	b.WriteString("  exit 1\n")
	b.WriteString("elif [ $CITADEL_EXIT -ge 2 ]; then\n")
	b.WriteString("  echo \"citadel: scan failed (exit $CITADEL_EXIT), allowing commit\"\n")
	b.WriteString("fi\n")
	b.WriteString(hookMarkerEnd + "\n")
	return b.String()
}

func replaceCitadelSection(existing, section string) string {
	startIdx := strings.Index(existing, hookMarkerStart)
	endIdx := strings.Index(existing, hookMarkerEnd)

	if startIdx == -1 || endIdx == -1 {
		if !strings.HasSuffix(existing, "\n") {
			existing += "\n"
		}
		return existing + section
	}

	before := existing[:startIdx]
	after := strings.TrimPrefix(existing[endIdx+len(hookMarkerEnd):], "\n")
	return before + section + after
}

func removeCitadelSection(existing string) string {
	startIdx := strings.Index(existing, hookMarkerStart)
	endIdx := strings.Index(existing, hookMarkerEnd)

	if startIdx == -1 || endIdx == -1 {
		return existing
	}

	before := existing[:startIdx]
	after := strings.TrimPrefix(existing[endIdx+len(hookMarkerEnd):], "\n")
	return before + after
}

func init() {
	hookCmd.AddCommand(hookInstallCmd)
	hookCmd.AddCommand(hookUninstallCmd)
	hookCmd.PersistentFlags().StringVar(&hookRepo, "repo", ".", "Repository to install the hook into")
	hookInstallCmd.Flags().StringVar(&hookFailOn, "fail-on", "high", "Block the commit at or above this severity")
	hookInstallCmd.Flags().BoolVar(&hookNoCouncil, "no-council", false, "Run detectors only")
}
