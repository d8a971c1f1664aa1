// Command stepstream segments a model output stream read from stdin
// into labeled steps and prints one message per line.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/stepstream/stepstream/pkg/stepstream"
	"github.com/stepstream/stepstream/pkg/stepstream/adapters/provider"
	"github.com/stepstream/stepstream/pkg/stepstream/ports"
	"github.com/stepstream/stepstream/pkg/stepstream/streaming"
)

type options struct {
	tags       []string
	configPath string
	stream     bool
	sse        bool
	path       string
	pretty     bool
	verbose    bool
}

// fileConfig is the YAML configuration file layout.
type fileConfig struct {
	Tags      map[string]string `yaml:"tags"`
	Streaming bool              `yaml:"streaming"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "stepstream",
		Short: "Segment a model output stream into labeled steps",
		Long: "stepstream reads a model output stream from stdin, " +
			"classifies it into labeled segments by XML-style tags, " +
			"and prints one message per line.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(
		&opts.tags, "tag", "t", nil,
		"tag mapping as name=label, repeatable",
	)
	flags.StringVarP(
		&opts.configPath, "config", "c", "",
		"YAML configuration file with tag mappings",
	)
	flags.BoolVar(
		&opts.stream, "stream", false,
		"emit incremental messages inside open segments",
	)
	flags.BoolVar(
		&opts.sse, "sse", false,
		"treat stdin as SSE/JSONL provider events instead of raw text",
	)
	flags.StringVar(
		&opts.path, "path", provider.DefaultContentPath,
		"gjson path of the delta text inside provider events",
	)
	flags.BoolVar(
		&opts.pretty, "pretty", false,
		"human-readable colored output instead of JSON lines",
	)
	flags.BoolVarP(
		&opts.verbose, "verbose", "v", false,
		"enable debug logging",
	)

	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	if opts.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	tags, streamDefault, err := loadTags(opts)
	if err != nil {
		return err
	}

	parser, err := stepstream.NewParser(stepstream.Config{
		Tags:                tags,
		EnableTagsStreaming: opts.stream || streamDefault,
	})
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"tags":          parser.Registry().Len(),
		"default_label": parser.Registry().Default(),
	}).Debug("parser configured")

	var source ports.FragmentSource
	if opts.sse {
		source = provider.NewEventSource(cmd.InOrStdin(), opts.path)
	} else {
		source = provider.NewReaderSource(cmd.InOrStdin(), 0)
	}

	svc := streaming.NewService(streaming.Dependencies{
		Source: source,
		Parser: parser,
		Logger: logger,
	})

	// Canceling unblocks the pump goroutine when printing fails
	// before the message channel is drained.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	msgCh, errCh := svc.Run(ctx)
	for msg := range msgCh {
		if err := printMessage(cmd, msg, opts.pretty); err != nil {
			return err
		}
	}

	return <-errCh
}

// loadTags merges the config file mapping with --tag overrides.
func loadTags(opts *options) (map[string]string, bool, error) {
	tags := make(map[string]string)
	streaming := false

	if opts.configPath != "" {
		data, err := os.ReadFile(opts.configPath)
		if err != nil {
			return nil, false, fmt.Errorf("read config: %w", err)
		}
		var cfg fileConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, false, fmt.Errorf("parse config: %w", err)
		}
		for tag, label := range cfg.Tags {
			tags[tag] = label
		}
		streaming = cfg.Streaming
	}

	for _, pair := range opts.tags {
		tag, label, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, false, fmt.Errorf(
				"invalid tag mapping %q, want name=label", pair,
			)
		}
		tags[tag] = label
	}

	return tags, streaming, nil
}

var (
	stepColor    = color.New(color.FgCyan, color.Bold)
	partialColor = color.New(color.Faint)
)

// printMessage writes one message, as a JSON line or pretty-printed.
func printMessage(cmd *cobra.Command, msg stepstream.Message, pretty bool) error {
	out := cmd.OutOrStdout()

	if !pretty {
		data, err := msg.Encode()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "%s\n", data)

		return err
	}

	header := stepColor.Sprintf("[%s #%d]", msg.StepName, msg.Step)
	if !msg.IsComplete {
		header += partialColor.Sprint(" (partial)")
	}
	_, err := fmt.Fprintf(out, "%s %s\n", header, msg.Content)

	return err
}
