package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"ontosim/internal/blob"
	"ontosim/internal/core"
	"ontosim/internal/fixture"
	"ontosim/internal/schema"
)

type rootOptions struct {
	ontologyPath string
	fixturePaths []string
	format       string
	verbose      bool
}

var validFormats = []string{"text", "json"}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "ontosim",
		Short:         "In-memory ontology object-graph emulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			for _, f := range validFormats {
				if f == opts.format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.format, validFormats)
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ontologyPath, "ontology", "ontology.yaml", "path to the ontology YAML")
	flags.StringArrayVar(&opts.fixturePaths, "fixture", nil, "fixture YAML to load (repeatable)")
	flags.StringVar(&opts.format, "format", "text", "output format (text|json)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log store activity to stderr")

	cmd.AddCommand(newCheckCommand(opts))
	cmd.AddCommand(newSnapshotCommand(opts))
	return cmd
}

// environment is what every subcommand works against.
type environment struct {
	store    *core.Store
	ontology *schema.StaticOntology
	logger   *slog.Logger
	report   fixture.Report
}

func (o *rootOptions) logger(stderr io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
}

// open builds a store from the ontology, the environment-selected blob
// backend and the environment store config, then applies every fixture.
func (o *rootOptions) open(ctx context.Context, stderr io.Writer) (*environment, error) {
	ontology, err := schema.LoadFile(o.ontologyPath)
	if err != nil {
		return nil, err
	}
	cfg, err := core.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	blobs, err := blob.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	logger := o.logger(stderr)
	attachments := core.NewBlobAttachmentStore(blobs)
	store := core.NewStore(ontology,
		core.WithConfig(cfg),
		core.WithStoreLogger(logger),
		core.WithBlobStore(blobs),
		core.WithAttachmentStore(attachments),
	)
	env := &environment{store: store, ontology: ontology, logger: logger}
	loader := fixture.NewLoader(store, attachments)
	for _, path := range o.fixturePaths {
		rep, err := loader.LoadFile(ctx, path)
		if err != nil {
			return nil, err
		}
		env.report.Objects += rep.Objects
		env.report.Links += rep.Links
		env.report.TimeSeries += rep.TimeSeries
		env.report.Media += rep.Media
		env.report.Attachments += rep.Attachments
		logger.Debug("fixture loaded", "path", path, "objects", rep.Objects)
	}
	return env, nil
}
