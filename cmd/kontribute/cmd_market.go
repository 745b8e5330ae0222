package main

import (
	"github.com/spf13/cobra"

	"kontribute/internal/listing"
)

func (c *cli) marketCmd() *cobra.Command {
	var (
		page  int
		sort  string
		order string
	)
	cmd := &cobra.Command{
		Use:   "market",
		Short: "Browse an author's marketplace",
	}
	pageCmd := &cobra.Command{
		Use:   "page [author]",
		Short: "Print one page of tokens for sale",
		Long: `Fetches the author's price listing, keeps tokens for sale, optionally
narrows them to one rarity and prints the requested page of 8.

Rarities: 0 all, 1 common, 2 uncommon, 3 rare, 4 epic, 5 legendary, 6 artifact.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := listing.ParseOrder(order)
			if err != nil {
				return err
			}
			ctx, cancel := c.ctx(cmd)
			defer cancel()

			p, err := c.app.Pipeline.Load(ctx, listing.Query{AuthorID: args[0], Page: page, SortKey: sort, Order: o})
			if err != nil {
				return err
			}
			return printJSON(cmd, p)
		},
	}
	pageCmd.Flags().IntVar(&page, "page", 0, "zero-based page index")
	pageCmd.Flags().StringVar(&sort, "sort", listing.AllRarities, "rarity to keep, 0 for all")
	pageCmd.Flags().StringVar(&order, "order", "", "price order: LtoH or HtoL")

	cmd.AddCommand(pageCmd)
	return cmd
}
