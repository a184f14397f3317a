package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"musicbot/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		follow bool
		user   string
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon's current log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var filter logs.Filter
			if user != "" {
				userID, err := parseUserID(user)
				if err != nil {
					return err
				}
				filter = logs.ForUser(userID)
			}

			path := filepath.Join(cfg.Paths.LogDir, logs.CurrentFileName)
			tail, offset, err := logs.Last(path, lines, filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, filter, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().StringVarP(&user, "user", "u", "", "Only show lines for this user id")
	return cmd
}
