// Package cli implements the lakefence command-line client.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			_ = json.NewEncoder(os.Stdout).Encode(map[string]interface{}{"error": err.Error()})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		host   string
		apiKey string
		token  string
		output string
		client *Client
	)

	rootCmd := &cobra.Command{
		Use:           "lakefence",
		Short:         "Lakefence CLI",
		Long:          "Command-line client for the lakefence tenant-isolated query API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// Precedence: flag > env > default.
			if !cmd.Flags().Changed("host") {
				if v := os.Getenv("LAKEFENCE_HOST"); v != "" {
					host = v
				}
			}
			if !cmd.Flags().Changed("api-key") {
				if v := os.Getenv("LAKEFENCE_API_KEY"); v != "" {
					apiKey = v
				}
			}
			if !cmd.Flags().Changed("token") {
				if v := os.Getenv("LAKEFENCE_TOKEN"); v != "" {
					token = v
				}
			}
			*client = *NewClient(host, apiKey, token)
		},
	}

	rootCmd.PersistentFlags().StringVar(&host, "host", "http://localhost:8080", "API host URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for authentication")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "JWT token for authentication")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json)")

	client = NewClient(host, apiKey, token)

	rootCmd.AddCommand(
		newQueryCmd(client, &output),
		newAskCmd(client, &output),
		newContextsCmd(client, &output),
		newGrantsCmd(client, &output),
		newAuditCmd(client, &output),
		newSchemaCmd(client, &output),
	)

	return rootCmd
}
