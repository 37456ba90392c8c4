package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brainscore/brainscore/internal/assembly"
	"github.com/brainscore/brainscore/internal/benchmark/registry"
	"github.com/brainscore/brainscore/internal/benchmark/regressing"
)

func newListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered benchmarks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := registry.Identifiers()
			return opts.print(cmd.OutOrStdout(), ids, strings.Join(ids, "\n"))
		},
	}
}

func newCeilingCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ceiling <benchmark>",
		Short: "Compute or read the cached ceiling of a benchmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			b, err := a.Pool().Load(ctx, args[0])
			if err != nil {
				return err
			}
			c, err := b.Ceiling(ctx)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), c, fmt.Sprintf("%s\t%s", args[0], c))
		},
	}
}

func newScoreCmd(opts *globalOptions) *cobra.Command {
	var activations string

	cmd := &cobra.Command{
		Use:   "score <benchmark>",
		Short: "Score precomputed activations on a benchmark",
		Long: `Score reads activations from a JSON file of the form
{"stimulus_ids": [...], "values": [[...], ...]} with one row per stimulus.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var features assembly.Features
			if err := readJSON(activations, &features); err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := opts.openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			b, err := a.Pool().Load(ctx, args[0])
			if err != nil {
				return err
			}
			s, err := b.Score(ctx, regressing.PrecomputedCandidate{Features: &features})
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), s, fmt.Sprintf("%s\t%s", args[0], s))
		},
	}
	cmd.Flags().StringVarP(&activations, "activations", "a", "", "JSON file with model activations")
	cmd.MarkFlagRequired("activations")
	return cmd
}
