package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/pseudomuto/groundskeeper/pkg/metadata"
	"github.com/pseudomuto/groundskeeper/pkg/utils"
	"github.com/urfave/cli/v3"
)

// list creates the list command, which prints the tracking table.
//
// Example usage:
//
//	groundskeeper list -p sqlite -c ./app.db
func list(p commandParams) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Show the versions recorded in the tracking table",
		Flags: connectionFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			engine, err := newEngine(cmd, p)
			if err != nil {
				return err
			}

			rows, err := engine.List(ctx)
			if err != nil {
				return err
			}

			if len(rows) == 0 {
				fmt.Fprintln(writer(cmd), "No versions recorded")
				return nil
			}

			return printVersions(cmd, rows)
		},
	}
}

func printVersions(cmd *cli.Command, rows []*metadata.DbVersion) error {
	tw := tabwriter.NewWriter(writer(cmd), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSTATUS\tAPPLIED ON\tAPPLIED BY\tTOOL\tDURATION\tFAILED SCRIPT")

	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s %s\t%s\t%s\n",
			row.Version,
			row.Status,
			row.AppliedOn.UTC().Format(time.RFC3339),
			row.AppliedByUser,
			row.AppliedByTool,
			row.AppliedByToolVersion,
			time.Duration(row.DurationMs)*time.Millisecond,
			utils.Deref(row.FailedScriptPath, ""),
		)
	}

	return tw.Flush()
}
