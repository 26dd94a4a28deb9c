package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

var rulesJSON bool

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List validation rules and approved reference data",
	Args:  cobra.NoArgs,
	RunE:  runRules,
}

func init() {
	rulesCmd.Flags().BoolVar(&rulesJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(rulesCmd)
}

func runRules(cmd *cobra.Command, _ []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	set := a.Engine.RuleSet()
	lists := set.Lists()
	lo, hi := set.PrincipalBounds()

	if rulesJSON {
		return outputJSON(cmd, map[string]any{
			"rules":    a.Engine.Rules(),
			"approved": lists,
			"principal_limits": map[string]string{
				"min": lo.String(),
				"max": hi.String(),
			},
		})
	}

	cmd.Println("Rules:")
	for _, r := range a.Engine.Rules() {
		cmd.Printf("  %-24s %-6s %s\n", r.ID, r.Severity, r.Description)
	}
	cmd.Println()
	cmd.Println("Approved counterparties: " + strings.Join(lists.Counterparties, ", "))
	cmd.Println("Approved issuers:        " + strings.Join(lists.Issuers, ", "))
	cmd.Println("Approved products:       " + strings.Join(lists.Products, ", "))
	cmd.Println("Approved governing laws: " + strings.Join(lists.GoverningLaws, ", "))
	cmd.Printf("Principal limits:        %s - %s\n", lo.StringFixed(2), hi.StringFixed(2))
	return nil
}
