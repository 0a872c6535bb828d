package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/kvserde/internal/config"
	"github.com/roach88/kvserde/internal/envelope"
	"github.com/roach88/kvserde/internal/registry"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	Metrics    bool // dump engine counters to stderr after the command

	// Config is resolved before any subcommand runs.
	Config *config.Config

	// Registry resolves records on decode. Defaults to registry.Default().
	Registry *registry.Registry
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the kvserde CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "kvserde",
		Short: "kvserde - type-preserving payloads for key/value stores",
		Long: `Encode values into self-describing, optionally compressed payloads,
inspect existing payloads, and read or write them in a SQLite store.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return opts.formatter(cmd).fail(ExitCommandError, ErrCodeInput,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats), nil)
			}
			return opts.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.Metrics {
				envelope.WriteMetrics(cmd.ErrOrStderr())
			}
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().BoolVar(&opts.Metrics, "metrics", false, "write engine counters to stderr in Prometheus format")
	config.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewEncodeCommand(opts))
	cmd.AddCommand(NewDecodeCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewPutCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewDelCommand(opts))
	cmd.AddCommand(NewKeysCommand(opts))

	return cmd
}

// load resolves configuration from flags, environment and the config file,
// and installs the default logger.
func (o *RootOptions) load(cmd *cobra.Command) error {
	v := config.NewViper()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	cfg, err := config.Load(v, o.ConfigFile)
	if err != nil {
		return o.formatter(cmd).fail(ExitCommandError, ErrCodeInput, "invalid configuration", err)
	}
	o.Config = cfg

	level := cfg.LogLevel
	if o.Verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return nil
}

// engine builds an envelope engine from the resolved configuration.
func (o *RootOptions) engine() (*envelope.Engine, error) {
	cfg := envelope.DefaultConfig()
	if o.Config != nil {
		cfg = o.Config.Envelope
	}
	reg := o.Registry
	if reg == nil {
		reg = registry.Default()
	}
	return envelope.New(reg, cfg)
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
