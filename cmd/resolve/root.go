package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"toolshed/internal/bootstrap"
	"toolshed/internal/config"
	"toolshed/internal/metrics"
	"toolshed/internal/pkg/logger"
	"toolshed/internal/pkg/urlnorm"
	"toolshed/internal/service/metadata"
)

type cliOptions struct {
	justification   string
	fetcher         string
	evidenceMode    string
	knowledgeFirst  bool
	trustImages     bool
	fetchTimeout    time.Duration
	generateTimeout time.Duration
	compact         bool
	logLevel        string
}

func newRootCommand() *cobra.Command {
	// The environment supplies defaults that flags may override
	cfg := config.FromEnv()
	opts := cliOptions{
		fetcher:         cfg.Resolver.Fetcher,
		evidenceMode:    cfg.Resolver.EvidenceMode,
		knowledgeFirst:  cfg.Resolver.KnowledgeFirst,
		trustImages:     cfg.Resolver.TrustGeneratedImages,
		fetchTimeout:    cfg.Resolver.FetchTimeout,
		generateTimeout: cfg.Resolver.GenerateTimeout,
		logLevel:        "warn",
	}

	root := &cobra.Command{
		Use:           "resolve <url>",
		Short:         "Resolve tool metadata for a URL and print it as JSON",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyOptions(cfg, &opts)
			return runResolve(cmd, cfg, &opts, args[0])
		},
	}

	flags := root.Flags()
	flags.StringVarP(&opts.justification, "justification", "j", "", "submitter justification used as a hint and fallback description")
	flags.StringVar(&opts.fetcher, "fetcher", opts.fetcher, "fetch strategy (http or browser)")
	flags.StringVar(&opts.evidenceMode, "evidence", opts.evidenceMode, "page evidence mode (tags or markdown)")
	flags.BoolVar(&opts.knowledgeFirst, "knowledge-first", opts.knowledgeFirst, "try the knowledge prompt before reading the page")
	flags.BoolVar(&opts.trustImages, "trust-generated-images", opts.trustImages, "accept image URLs proposed by the model")
	flags.DurationVar(&opts.fetchTimeout, "fetch-timeout", opts.fetchTimeout, "page fetch timeout")
	flags.DurationVar(&opts.generateTimeout, "generate-timeout", opts.generateTimeout, "timeout per generation call")
	flags.BoolVar(&opts.compact, "compact", false, "print compact JSON")
	flags.StringVar(&opts.logLevel, "log-level", opts.logLevel, "log level written to stderr")

	return root
}

func applyOptions(cfg *config.Config, opts *cliOptions) {
	cfg.Resolver.Fetcher = opts.fetcher
	cfg.Resolver.EvidenceMode = opts.evidenceMode
	cfg.Resolver.KnowledgeFirst = opts.knowledgeFirst
	cfg.Resolver.TrustGeneratedImages = opts.trustImages
	cfg.Resolver.FetchTimeout = opts.fetchTimeout
	cfg.Resolver.GenerateTimeout = opts.generateTimeout
	cfg.LogLevel = opts.logLevel
}

func runResolve(cmd *cobra.Command, cfg *config.Config, opts *cliOptions, rawURL string) error {
	if err := cfg.ValidateForResolve(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	pageURL, err := urlnorm.NormalizeURL(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	log := logger.NewWithFormat(cfg.LogLevel, "text", os.Stderr)
	ctx := cmd.Context()

	resolver, err := bootstrap.NewResolver(ctx, cfg, log, metrics.New())
	if err != nil {
		return fmt.Errorf("failed to create metadata resolver: %w", err)
	}
	defer resolver.Close()

	res := resolver.Resolve(ctx, pageURL, opts.justification)
	return writeResolution(cmd.OutOrStdout(), pageURL, res, opts.compact)
}

type output struct {
	URL string `json:"url"`
	metadata.Resolution
}

func writeResolution(w io.Writer, pageURL string, res metadata.Resolution, compact bool) error {
	enc := json.NewEncoder(w)
	if !compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(output{URL: pageURL, Resolution: res}); err != nil {
		return fmt.Errorf("failed to write resolution: %w", err)
	}
	return nil
}
