package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tylerbutler/wopi-validator-core/internal/catalog"
	"github.com/tylerbutler/wopi-validator-core/internal/dispatcher"
	"github.com/tylerbutler/wopi-validator-core/internal/executor"
	"github.com/tylerbutler/wopi-validator-core/internal/model"
	"github.com/tylerbutler/wopi-validator-core/internal/outcome"
	"github.com/tylerbutler/wopi-validator-core/internal/proofkey"
	"github.com/tylerbutler/wopi-validator-core/internal/reporter"
	"github.com/tylerbutler/wopi-validator-core/internal/resources"
	"github.com/tylerbutler/wopi-validator-core/internal/wopiconfig"
)

// errRunFailed signals a non-zero exit for failed or skipped cases without
// printing a redundant "Error: ..." line — the report itself already
// explains what failed.
var errRunFailed = errors.New("")

// runValidate is the root command's RunE: it resolves configuration, loads
// the catalog and fixtures, runs every selected test case, and reports the
// outcome.
func runValidate(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()

	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}

	resMgr := resources.NewManager()
	if err := resMgr.LoadDir(cfg.FixturesDir, cat.Resources); err != nil {
		return err
	}

	execCfg, err := buildExecutorConfig(cfg)
	if err != nil {
		return err
	}

	runner := executor.NewRequestRunner(executor.NewHTTPClient(cfg.TokenTTL), resMgr, execCfg, logger)
	caseExec := executor.NewCaseExecutor(runner, resMgr, cat.CaseByName, logger)

	selected := dispatcher.Select(cat.Cases, dispatcher.Filter{
		TestName:     flagTestName,
		TestCategory: dispatcher.CategoryFilter(flagCategory),
		TestGroup:    flagGroup,
	})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	results := make([]model.CaseResult, 0, len(selected))
	for _, tc := range selected {
		results = append(results, caseExec.Run(ctx, tc, true))
	}

	summary := outcome.Aggregate(results)

	if flagJSON {
		if err := reporter.PrintJSON(cmd.OutOrStdout(), summary); err != nil {
			return err
		}
	} else {
		reporter.Print(cmd.OutOrStdout(), summary, flagVerbose)
	}

	if summary.ExitNonZero(cfg.IgnoreSkipped) {
		return errRunFailed
	}

	return nil
}

// resolveConfig assembles wopiconfig.Resolved from the CLI flags, the
// environment, and the optional TOML config file, in that precedence.
func resolveConfig() (wopiconfig.Resolved, error) {
	file, err := wopiconfig.LoadFile(flagConfigPath)
	if err != nil {
		return wopiconfig.Resolved{}, err
	}

	env, err := wopiconfig.ReadEnv()
	if err != nil {
		return wopiconfig.Resolved{}, err
	}

	cli := wopiconfig.CLIOverrides{
		Endpoint:      flagEndpoint,
		Token:         flagToken,
		TokenTTLSet:   flagTokenTTL != 0,
		TokenTTL:      flagTokenTTL,
		CatalogPath:   flagCatalogPath,
		FixturesDir:   flagFixturesDir,
		CertPath:      flagCertPath,
		OldCertPath:   flagOldCertPath,
		IgnoreSkipped: flagIgnoreSkipped,
	}

	return wopiconfig.Resolve(cli, env, file), nil
}

// buildExecutorConfig loads the proof-key signers named by cfg and wires
// them, the endpoint, and the token into an executor.Config.
func buildExecutorConfig(cfg wopiconfig.Resolved) (executor.Config, error) {
	execCfg := executor.Config{
		Endpoint:              cfg.Endpoint,
		AccessToken:           cfg.Token,
		AccessTokenTTL:        cfg.TokenTTL,
		CoreUserAgent:         wopiconfig.DefaultCoreUserAgent,
		OfficeNativeUserAgent: wopiconfig.DefaultOfficeNativeUserAgent,
	}

	if cfg.CertPath != "" {
		key, err := proofkey.LoadPrivateKeyPEM(cfg.CertPath)
		if err != nil {
			return executor.Config{}, err
		}

		execCfg.ProofKey = proofkey.NewSigner(key)
	}

	if cfg.OldCertPath != "" {
		key, err := proofkey.LoadPrivateKeyPEM(cfg.OldCertPath)
		if err != nil {
			return executor.Config{}, fmt.Errorf("loading previous proof-key cert: %w", err)
		}

		execCfg.ProofKeyOld = proofkey.NewSigner(key)
	}

	return execCfg, nil
}
