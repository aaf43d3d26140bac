package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

// Global flag variables, bound as the root command's own (non-persistent)
// flags in newRootCmd.
var (
	flagEndpoint      string
	flagToken         string
	flagTokenTTL      int
	flagTestName      string
	flagCategory      string
	flagGroup         string
	flagCatalogPath   string
	flagFixturesDir   string
	flagCertPath      string
	flagOldCertPath   string
	flagConfigPath    string
	flagIgnoreSkipped bool
	flagJSON          bool
	flagVerbose       bool
	flagDebug         bool
	flagQuiet         bool
)

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "wopi-validator",
		Short:         "WOPI conformance validator",
		Long:          "Exercises a WOPI-family server endpoint against a declarative catalog of conformance test cases.",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          runValidate,
	}

	cmd.Flags().StringVarP(&flagEndpoint, "wopi-endpoint", "w", "", "WOPI endpoint URL")
	cmd.Flags().StringVarP(&flagToken, "token", "t", "", "access token")
	cmd.Flags().IntVarP(&flagTokenTTL, "ttl", "l", 0, "access-token TTL in seconds")
	cmd.Flags().StringVarP(&flagTestName, "name", "n", "", "run one named test case")
	cmd.Flags().StringVarP(&flagCategory, "category", "c", "All", "test category: All, WopiCore, OfficeNativeClient, OfficeOnline")
	cmd.Flags().StringVarP(&flagGroup, "group", "g", "", "test group name")
	cmd.Flags().StringVarP(&flagCatalogPath, "catalog", "r", "", "path to catalog XML (default TestCases.xml)")
	cmd.Flags().StringVar(&flagFixturesDir, "fixtures-dir", "", "directory containing fixture documents")
	cmd.Flags().StringVar(&flagCertPath, "proof-key-cert", "", "path to the current proof-key private key PEM")
	cmd.Flags().StringVar(&flagOldCertPath, "proof-key-old-cert", "", "path to the previous proof-key private key PEM")
	cmd.Flags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.Flags().BoolVar(&flagIgnoreSkipped, "ignore-skipped", false, "exclude Skipped cases from failure gating")
	cmd.Flags().BoolVar(&flagJSON, "json", false, "emit the run summary as JSON")
	cmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "show detailed output")
	cmd.Flags().BoolVar(&flagDebug, "debug", false, "enable debug logging (HTTP requests, config resolution)")
	cmd.Flags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.MarkFlagsMutuallyExclusive("verbose", "debug", "quiet")

	cmd.AddCommand(newDiscoveryCmd())

	return cmd
}

// buildLogger creates an slog.Logger configured by the CLI flags. --debug,
// --verbose and --quiet are mutually exclusive (enforced by Cobra), so only
// one ever applies over the warn-level default.
func buildLogger() *slog.Logger {
	level := slog.LevelWarn

	switch {
	case flagDebug:
		level = slog.LevelDebug
	case flagVerbose:
		level = slog.LevelInfo
	case flagQuiet:
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
