package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joeynyc/Citadel-Local/internal/baseline"
	"github.com/joeynyc/Citadel-Local/internal/output"
	"github.com/joeynyc/Citadel-Local/internal/review"
)

var flagBaselineOut string

var baselineCmd = &cobra.Command{
	Use:   "baseline <path>",
	Short: "Record current deterministic findings as accepted",
	Long:  "Run the detectors without the council and write every finding to a baseline file. Later scans given --baseline only report findings not in it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(map[string]string{"rules_file": flagRules})
		if err != nil {
			return err
		}
		res, err := collect(scanTarget{path: args[0], mode: "scan"}, cfg)
		if err != nil {
			fail(err)
			return nil
		}
		bl, err := baseline.Save(flagBaselineOut, res.findings)
		if err != nil {
			fail(err)
			return nil
		}
		path, _ := filepath.Abs(flagBaselineOut)
		fmt.Fprintf(outW, "Recorded %d findings (%d unique)\n", len(res.findings), bl.Len())
		fmt.Fprintf(outW, "Wrote: %s\n", path)
		return nil
	},
}

var (
	flagReportOut    string
	flagReportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report <findings.json>",
	Short: "Render a report from findings.json",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := output.GetWriter(flagReportFormat); err != nil {
			return err
		}
		report, err := output.ReadReport(args[0])
		if err != nil {
			fail(err)
			return nil
		}
		if report.Summary.Counts.Total() != len(report.Findings) {
			report.Summary = review.ComputeSummary(report.Findings)
		}
		out := flagReportOut
		if out == "-" {
			out = ""
		}
		if err := output.WriteReport(report, flagReportFormat, out); err != nil {
			fail(err)
			return nil
		}
		if out != "" {
			path, _ := filepath.Abs(out)
			fmt.Fprintf(outW, "Wrote: %s\n", path)
		}
		return nil
	},
}

func init() {
	baselineCmd.Flags().StringVar(&flagBaselineOut, "out", "baseline.json", "Baseline file to write")
	baselineCmd.Flags().StringVar(&flagRules, "rules", "", "Custom rules file")

	reportCmd.Flags().StringVar(&flagReportOut, "out", "report.md", "Output file (- for stdout)")
	reportCmd.Flags().StringVar(&flagReportFormat, "format", "md", "Output format (md, text, sarif, json)")
}
