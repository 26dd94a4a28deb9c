package cli

import (
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP validation API",
	Long: `Starts the HTTP API (and the gRPC health endpoint when server.grpc_addr
is set). Shuts down gracefully on interrupt.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	srv, err := a.Server()
	if err != nil {
		return err
	}
	cmd.Printf("Serving on %s\n", a.Config.Server.HTTPAddr)
	return srv.Run(cmd.Context())
}
