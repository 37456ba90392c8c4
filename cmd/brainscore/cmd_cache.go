package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newCacheCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and prune the result cache",
	}
	cmd.AddCommand(newCacheLsCmd(opts), newCacheRmCmd(opts), newCacheClearCmd(opts))
	return cmd
}

func newCacheLsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [prefix]",
		Short: "List cached result keys",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			keys, err := a.Memo().Store().Keys(ctx, prefix)
			if err != nil {
				return err
			}
			if keys == nil {
				keys = []string{}
			}
			return opts.print(cmd.OutOrStdout(), keys, strings.Join(keys, "\n"))
		},
	}
}

func newCacheRmCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <key>...",
		Short: "Delete cached results by key",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			for _, key := range args {
				if err := a.Memo().Store().Delete(ctx, key); err != nil {
					return fmt.Errorf("failed to delete %s: %w", key, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d key(s)\n", len(args))
			return nil
		},
	}
}

func newCacheClearCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <function>",
		Short: "Delete every cached result of a function, e.g. benchmark.Base.ceiling",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Memo().Invalidate(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d key(s)\n", n)
			return nil
		},
	}
}
