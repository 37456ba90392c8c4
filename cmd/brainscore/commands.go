package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/brainscore/brainscore/internal/app"
	"github.com/brainscore/brainscore/internal/config"
	"github.com/brainscore/brainscore/internal/logging"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath   string
	dataDir      string
	cacheBackend string
	logLevel     string
	logFormat    string
	jsonOutput   bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "brainscore",
		Short: "Score models against neural recordings",
		Long: `brainscore exposes a registry of neural benchmarks. Each benchmark
compares model activations to recorded responses and normalizes the
result by a ceiling that is computed once and cached.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file (.yaml, .yml or .json)")
	pf.StringVar(&opts.dataDir, "data-dir", "", "base directory for local files")
	pf.StringVar(&opts.cacheBackend, "cache-backend", "", "result cache backend: memory, sqlite, badger, redis, object")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&opts.logFormat, "log-format", "", "log format: text or json")
	pf.BoolVar(&opts.jsonOutput, "json", false, "print results as JSON")

	root.AddCommand(
		newListCmd(opts),
		newCeilingCmd(opts),
		newScoreCmd(opts),
		newServeCmd(opts),
		newCacheCmd(opts),
		newAssembliesCmd(opts),
		newVersionCmd(),
	)
	return root
}

// loadConfig layers defaults, the config file, BRAINSCORE_* variables and
// flags, in increasing precedence.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if o.configPath != "" {
		loaded, err := config.LoadFromFile(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	config.LoadFromEnv(cfg)

	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	if o.cacheBackend != "" {
		cfg.Cache.Backend = o.cacheBackend
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	return cfg, nil
}

// openApp builds the application from flags. Logs go to stderr so stdout
// stays parseable.
func (o *globalOptions) openApp(ctx context.Context, cmd *cobra.Command) (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	return app.New(ctx, cfg, logger)
}

func (o *globalOptions) print(w io.Writer, v interface{}, text string) error {
	if o.jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

func readJSON(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "brainscore", version)
		},
	}
}
