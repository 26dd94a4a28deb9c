package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/termsheet-validator/internal/extract"
)

var extractQuiet bool

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Print the text extracted from a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	extractCmd.Flags().BoolVarP(&extractQuiet, "quiet", "q", false, "print only the text")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	doc, err := extract.Open(args[0])
	if err != nil {
		return err
	}
	res, err := a.Extractor.Extract(cmd.Context(), doc)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}
	if !extractQuiet {
		cmd.Printf("Method:     %s\n", res.Method)
		cmd.Printf("Pages:      %d\n", res.Pages)
		cmd.Printf("Confidence: %.2f\n", res.Confidence)
		cmd.Printf("Duration:   %s\n", res.Duration.Round(time.Millisecond))
		if res.Fallback {
			cmd.Println("Fallback:   sample text")
		}
		for _, w := range res.Warnings {
			cmd.Printf("Warning:    %s\n", w)
		}
		cmd.Println()
	}
	cmd.Println(res.Text)
	return nil
}
