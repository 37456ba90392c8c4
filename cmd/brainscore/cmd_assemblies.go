package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/brainscore/brainscore/internal/assembly"
	"github.com/brainscore/brainscore/internal/benchmark/registry"
)

func newAssembliesCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assemblies",
		Short: "Manage the neural assemblies benchmarks read",
	}
	cmd.AddCommand(newPublishSyntheticCmd(opts), newFetchCmd(opts))
	return cmd
}

func newPublishSyntheticCmd(opts *globalOptions) *cobra.Command {
	spec := assembly.SyntheticSpec{
		Stimuli:     200,
		Neuroids:    20,
		Repetitions: 6,
		Latents:     5,
		Noise:       0.5,
	}
	var featuresDir string

	cmd := &cobra.Command{
		Use:   "publish-synthetic",
		Short: "Publish generated assemblies for every registered benchmark",
		Long: `publish-synthetic generates assemblies with a known latent structure
and publishes them where the benchmarks look for recordings. With
--features-dir it also writes matching activations, one file per assembly,
usable with "brainscore score --activations".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if featuresDir != "" {
				if err := os.MkdirAll(featuresDir, 0755); err != nil {
					return err
				}
			}

			prefix := a.Config().Assemblies.Prefix
			for i, ref := range registry.Assemblies() {
				s := spec
				s.Name, s.Region = ref.Name, ref.Region
				s.Seed = spec.Seed + int64(i)

				asm, features := assembly.Synthetic(s)
				if err := assembly.Publish(ctx, a.Storage(), prefix, asm); err != nil {
					return fmt.Errorf("failed to publish %s/%s: %w", ref.Name, ref.Region, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "published %s\n", assembly.ObjectPath(prefix, ref.Name, ref.Region))

				if featuresDir == "" {
					continue
				}
				path := filepath.Join(featuresDir, ref.Name+"."+ref.Region+".json")
				data, err := json.Marshal(features)
				if err != nil {
					return err
				}
				if err := os.WriteFile(path, data, 0644); err != nil {
					return err
				}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&spec.Stimuli, "stimuli", spec.Stimuli, "stimuli per assembly")
	f.IntVar(&spec.Neuroids, "neuroids", spec.Neuroids, "neuroids per assembly")
	f.IntVar(&spec.Repetitions, "repetitions", spec.Repetitions, "repetitions per stimulus")
	f.IntVar(&spec.Latents, "latents", spec.Latents, "latent factors driving responses")
	f.Float64Var(&spec.Noise, "noise", spec.Noise, "trial noise standard deviation")
	f.Int64Var(&spec.Seed, "seed", 0, "random seed")
	f.StringVar(&featuresDir, "features-dir", "", "directory to write matching activations to")
	return cmd
}

func newFetchCmd(opts *globalOptions) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download and validate every assembly the benchmarks need",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			refs := registry.Assemblies()
			n, err := a.Assemblies().Prefetch(ctx, refs, concurrency)
			fmt.Fprintf(cmd.OutOrStdout(), "fetched %d of %d assemblies\n", n, len(refs))
			return err
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "parallel downloads")
	return cmd
}
