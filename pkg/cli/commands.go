package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newQueryCmd(client *Client, output *string) *cobra.Command {
	var tenant string

	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Execute SQL against the tenant-filtered view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := client.Query(cmd.Context(), tenant, args[0])
			if err != nil {
				return err
			}
			if *output == "json" {
				return printJSON(os.Stdout, result)
			}
			printRowSet(os.Stdout, result)
			return nil
		},
	}
	cmd.Flags().StringVarP(&tenant, "tenant", "t", "", "Tenant to query as (required)")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func newAskCmd(client *Client, output *string) *cobra.Command {
	var tenant string

	cmd := &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Ask a natural-language question about the tenant's data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			answer, err := client.Ask(cmd.Context(), tenant, args[0])
			if err != nil {
				return err
			}
			if *output == "json" {
				return printJSON(os.Stdout, answer)
			}
			fmt.Fprintf(os.Stdout, "-- %s\n", answer.SQL)
			printRowSet(os.Stdout, &answer.Result)
			return nil
		},
	}
	cmd.Flags().StringVarP(&tenant, "tenant", "t", "", "Tenant to query as (required)")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func newContextsCmd(client *Client, output *string) *cobra.Command {
	return &cobra.Command{
		Use:   "contexts",
		Short: "List active tenant context records (should be empty at rest)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := client.Contexts(cmd.Context())
			if err != nil {
				return err
			}
			if *output == "json" {
				return printJSON(os.Stdout, records)
			}
			if len(records) == 0 {
				fmt.Fprintln(os.Stdout, "no active contexts")
				return nil
			}
			for _, rec := range records {
				fmt.Fprintf(os.Stdout, "%s\t%s\t%s\n", rec.SessionKey, rec.TenantID, rec.CreatedAt)
			}
			return nil
		},
	}
}

func newGrantsCmd(client *Client, output *string) *cobra.Command {
	return &cobra.Command{
		Use:   "grants",
		Short: "List tenants you are authorized to query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenants, err := client.Grants(cmd.Context())
			if err != nil {
				return err
			}
			if *output == "json" {
				return printJSON(os.Stdout, tenants)
			}
			for _, tenant := range tenants {
				fmt.Fprintln(os.Stdout, tenant)
			}
			return nil
		},
	}
}

func newAuditCmd(client *Client, output *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent query audit entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := client.Audit(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if *output == "json" {
				return printJSON(os.Stdout, entries)
			}
			for _, e := range entries {
				fmt.Fprintf(os.Stdout, "%s\t%s\t%s\t%s\t%s\n",
					e.CreatedAt, e.Principal, e.TenantID, e.Status, e.SQL)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum entries to show")
	return cmd
}

func newSchemaCmd(client *Client, output *string) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Show the queryable view's schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := client.ViewSchema(cmd.Context())
			if err != nil {
				return err
			}
			if *output == "json" {
				return printJSON(os.Stdout, schema)
			}
			fmt.Fprintf(os.Stdout, "%s\n", schema.Table)
			for _, col := range schema.Columns {
				fmt.Fprintf(os.Stdout, "  %s\t%s\n", col.Name, col.Type)
			}
			return nil
		},
	}
}
