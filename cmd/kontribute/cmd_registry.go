package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kontribute/internal/registry"
)

func (c *cli) registryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Manage the candidate story-service endpoints per partition",
		Long: `Endpoints registered for a partition (user_<author>) are queried before
endpoints registered for every partition ("*"), each group by position.`,
	}

	var (
		partition string
		position  int
	)
	add := &cobra.Command{
		Use:   "add [base-url]",
		Short: "Register or reposition an endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			return c.app.Registry.Add(ctx, registry.Endpoint{Partition: partition, Position: position, BaseURL: args[0]})
		},
	}
	add.Flags().StringVar(&partition, "partition", registry.Wildcard, "partition key, * for all")
	add.Flags().IntVar(&position, "position", 0, "order within the partition")

	var rmPartition string
	rm := &cobra.Command{
		Use:   "rm [base-url]",
		Short: "Remove an endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			removed, err := c.app.Registry.Remove(ctx, rmPartition, args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("no endpoint %s in partition %s", args[0], rmPartition)
			}
			return nil
		},
	}
	rm.Flags().StringVar(&rmPartition, "partition", registry.Wildcard, "partition key, * for all")

	var candidatesFor string
	ls := &cobra.Command{
		Use:   "ls [partition]",
		Short: "List endpoints, or the candidates for --for in query order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()

			var (
				eps []registry.Endpoint
				err error
			)
			switch {
			case candidatesFor != "":
				eps, err = c.app.Registry.Candidates(ctx, candidatesFor)
			case len(args) == 1:
				eps, err = c.app.Registry.List(ctx, args[0])
			default:
				eps, err = c.app.Registry.List(ctx, "")
			}
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PARTITION\tPOSITION\tBASE URL")
			for _, ep := range eps {
				fmt.Fprintf(w, "%s\t%d\t%s\n", ep.Partition, ep.Position, ep.BaseURL)
			}
			return w.Flush()
		},
	}
	ls.Flags().StringVar(&candidatesFor, "for", "", "show the candidates for this partition key")

	cmd.AddCommand(add, rm, ls)
	return cmd
}
