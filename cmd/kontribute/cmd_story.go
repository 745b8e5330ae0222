package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kontribute/internal/keys"
)

func (c *cli) storyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "story",
		Short: "Assemble stories from the partitioned story service",
	}

	show := &cobra.Command{
		Use:   "show [story-key]",
		Short: "Fetch a story and its proposals",
		Long: `Resolves the story's partition, queries every candidate replica and
prints the assembled narrative with percent-decoded text.

Example:
  kontribute story show 'author_alice_story_the%20hollow%20tree'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()

			n, err := c.app.Assembler.Load(ctx, args[0])
			if err != nil {
				return err
			}
			if n == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "story not available yet")
				return nil
			}
			return printJSON(cmd, n.Decoded())
		},
	}

	key := &cobra.Command{
		Use:         "key [author] [title]",
		Short:       "Print the story key and partition for an author and title",
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{offline: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			sk := keys.StoryKey(args[0], args[1])
			pk, err := keys.PartitionKeyOf(sk)
			if err != nil {
				return err
			}
			first, err := keys.ProposalKeyOf(sk, 1)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{
				"story_key":      sk,
				"partition_key":  pk,
				"first_proposal": first,
			})
		},
	}

	cmd.AddCommand(show, key)
	return cmd
}
