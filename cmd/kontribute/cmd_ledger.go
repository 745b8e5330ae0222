package main

import (
	"strconv"

	"github.com/spf13/cobra"
)

func (c *cli) ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Query the ledger story actor",
	}

	get := &cobra.Command{
		Use:   "get [story-id]",
		Short: "Print one ledger story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return err
			}
			ctx, cancel := c.ctx(cmd)
			defer cancel()

			rec, err := c.app.Ledger.Get(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd, rec)
		},
	}

	var page int
	ids := &cobra.Command{
		Use:   "ids",
		Short: "List story ids, one page at a time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()

			out, err := c.app.Ledger.GetStoryIDs(ctx, page)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
	ids.Flags().IntVar(&page, "page", 0, "zero-based page index")

	user := &cobra.Command{
		Use:   "user [principal]",
		Short: "List the story ids authored by a principal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()

			out, err := c.app.Ledger.GetUserStories(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}

	cmd.AddCommand(get, ids, user)
	return cmd
}
