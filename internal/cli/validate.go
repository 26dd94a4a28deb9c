package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/termsheet-validator/internal/extract"
)

var validateJSON bool

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a term sheet file",
	Long: `Runs the full pipeline on a single file: text extraction, field parsing
and rule evaluation. Unreadable documents are validated against sample data
and flagged as such.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	doc, err := extract.Open(args[0])
	if err != nil {
		return err
	}
	res, err := a.Pipeline.Validate(cmd.Context(), doc)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if validateJSON {
		return outputJSON(cmd, res)
	}
	printResult(cmd, doc.Name, res)
	return nil
}
