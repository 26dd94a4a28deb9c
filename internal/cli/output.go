package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/termsheet-validator/internal/pipeline"
)

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printResult(cmd *cobra.Command, name string, res pipeline.ValidationResult) {
	cmd.Printf("File:       %s\n", name)
	cmd.Printf("Status:     %s\n", res.Status.Upper())
	cmd.Printf("Risk score: %.3f (%.0f%%)\n", res.RiskScore, res.RiskScore*100)
	if ex := res.Extraction; ex != nil {
		cmd.Printf("Extracted:  %s, %d page(s), confidence %.2f\n", ex.Method, ex.Pages, ex.Confidence)
	}
	if res.FellBack() {
		cmd.Println("Note:       sample data was substituted for unreadable input")
	}
	if len(res.Issues) == 0 {
		cmd.Println("No issues found.")
		return
	}
	cmd.Println("Issues:")
	for _, is := range res.Issues {
		cmd.Printf("  [%s] %s: %s\n", is.Severity, is.RuleID, is.Description)
	}
}

// resultLine is the one-line form used by batch and watch.
func resultLine(path string, res pipeline.ValidationResult) string {
	line := fmt.Sprintf("%-8s %5.1f%%  %2d issue(s)  %s", res.Status.Upper(), res.RiskScore*100, len(res.Issues), filepath.Base(path))
	if res.FellBack() {
		line += "  (fallback)"
	}
	return line
}
