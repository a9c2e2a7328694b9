package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/David-Botos/data-refinery/pkg/connector"
)

var tablesSchemas []string

var tablesCmd = &cobra.Command{
	Use:   "tables <source>",
	Short: "List the tables of a warehouse that the table command can clean",
	Long: `tables validates the connection to a Postgres or Snowflake warehouse and lists
the base tables of each schema. Without --schema the schemas configured in
POSTGRES_SCHEMAS or SNOWFLAKE_SCHEMAS are listed.`,
	Example: `  refinery tables postgres --schema public
  refinery tables snowflake`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := strings.ToLower(args[0])
		schemas, err := schemasToList(source)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		conn, err := connector.NewConnectorFactory(cfg, logger).Create(ctx, source)
		if err != nil {
			return err
		}
		defer conn.Close()
		if err := conn.Validate(ctx); err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SCHEMA\tTABLE")
		for _, schema := range schemas {
			tables, err := conn.ListTables(ctx, schema)
			if err != nil {
				return err
			}
			for _, t := range tables {
				fmt.Fprintf(tw, "%s\t%s\n", schema, t)
			}
		}
		return tw.Flush()
	},
}

// schemasToList returns --schema, or the configured schemas of source
func schemasToList(source string) ([]string, error) {
	if len(tablesSchemas) > 0 {
		return tablesSchemas, nil
	}
	var configured []string
	switch source {
	case connector.SourcePostgres:
		if cfg.Postgres != nil {
			configured = cfg.Postgres.Schemas
		}
	case connector.SourceSnowflake:
		if cfg.Snowflake != nil {
			configured = cfg.Snowflake.Schemas
		}
	default:
		return nil, fmt.Errorf("unknown source %q (want %s or %s)", source, connector.SourcePostgres, connector.SourceSnowflake)
	}
	if len(configured) == 0 {
		return nil, errors.New("no schema given: pass --schema or configure the source's schemas")
	}
	return configured, nil
}

func init() {
	rootCmd.AddCommand(tablesCmd)
	tablesCmd.Flags().StringSliceVar(&tablesSchemas, "schema", nil, "schema to list (repeatable or comma separated)")
}
