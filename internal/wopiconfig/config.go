// Package wopiconfig resolves the validator's run configuration from four
// layers of precedence — CLI flag, environment variable, TOML config file,
// built-in default — the same shape the teacher's internal/config package
// uses for its drive settings.
package wopiconfig

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

// Default values — "layer 0" of the precedence chain.
const (
	DefaultCatalogPath   = "TestCases.xml"
	DefaultTokenTTL      = 3600
	DefaultFixturesDir   = "fixtures"
	DefaultCoreUserAgent = "WopiValidator/1.0"
	// DefaultOfficeNativeUserAgent matches the user-agent string Office's
	// native desktop clients send, per spec.md §4.5 step 3.
	DefaultOfficeNativeUserAgent = "Microsoft Office/16.0 WopiValidator"
)

// FileConfig is the optional TOML config file's schema (BurntSushi/toml, the
// teacher's own config library).
type FileConfig struct {
	Endpoint      string `toml:"endpoint"`
	Token         string `toml:"token"`
	TokenTTL      int    `toml:"token_ttl_seconds"`
	CatalogPath   string `toml:"catalog_path"`
	FixturesDir   string `toml:"fixtures_dir"`
	CertPath      string `toml:"proof_key_cert"`
	OldCertPath   string `toml:"proof_key_old_cert"`
	IgnoreSkipped bool   `toml:"ignore_skipped"`
}

// LoadFile reads an optional TOML config file. A missing file is not an
// error — it simply yields a zero-value FileConfig, matching "else no
// config file" from SPEC_FULL.md §6.
func LoadFile(path string) (FileConfig, error) {
	var fc FileConfig

	if path == "" {
		return fc, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fc, nil
	}

	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fc, fmt.Errorf("wopiconfig: parsing %s: %w", path, err)
	}

	return fc, nil
}

// EnvOverrides mirrors FileConfig, sourced from environment variables via
// kelseyhightower/envconfig (grounded in dc4eu-vc's use of the same library
// for server configuration).
type EnvOverrides struct {
	Endpoint      string `envconfig:"ENDPOINT"`
	Token         string `envconfig:"TOKEN"`
	TokenTTL      int    `envconfig:"TOKEN_TTL"`
	CatalogPath   string `envconfig:"CATALOG"`
	FixturesDir   string `envconfig:"FIXTURES_DIR"`
	CertPath      string `envconfig:"CERT_PATH"`
	OldCertPath   string `envconfig:"OLD_CERT_PATH"`
	IgnoreSkipped bool   `envconfig:"IGNORE_SKIPPED"`
}

// ReadEnv reads WOPI_* environment variables.
func ReadEnv() (EnvOverrides, error) {
	var e EnvOverrides
	if err := envconfig.Process("wopi", &e); err != nil {
		return e, fmt.Errorf("wopiconfig: reading environment: %w", err)
	}

	return e, nil
}

// CLIOverrides holds only the flags the user explicitly set — empty strings
// and false mean "not set." TokenTTLSet marks whether TokenTTL was given, so
// Resolve can tell an explicit TokenTTL apart from "inherit from a lower
// layer."
type CLIOverrides struct {
	Endpoint      string
	Token         string
	TokenTTLSet   bool
	TokenTTL      int
	CatalogPath   string
	FixturesDir   string
	CertPath      string
	OldCertPath   string
	IgnoreSkipped bool
}

// Resolved is the final, effective configuration for a run.
type Resolved struct {
	Endpoint      string
	Token         string
	TokenTTL      time.Duration
	CatalogPath   string
	FixturesDir   string
	CertPath      string
	OldCertPath   string
	IgnoreSkipped bool
}

// Resolve applies the four-layer precedence: cli > env > file > default.
func Resolve(cli CLIOverrides, env EnvOverrides, file FileConfig) Resolved {
	r := Resolved{
		Endpoint:    firstNonEmpty(cli.Endpoint, env.Endpoint, file.Endpoint),
		Token:       firstNonEmpty(cli.Token, env.Token, file.Token),
		CatalogPath: firstNonEmpty(cli.CatalogPath, env.CatalogPath, file.CatalogPath, DefaultCatalogPath),
		FixturesDir: firstNonEmpty(cli.FixturesDir, env.FixturesDir, file.FixturesDir, DefaultFixturesDir),
		CertPath:    firstNonEmpty(cli.CertPath, env.CertPath, file.CertPath),
		OldCertPath: firstNonEmpty(cli.OldCertPath, env.OldCertPath, file.OldCertPath),
	}

	ttl := DefaultTokenTTL
	if file.TokenTTL != 0 {
		ttl = file.TokenTTL
	}

	if env.TokenTTL != 0 {
		ttl = env.TokenTTL
	}

	if cli.TokenTTLSet {
		ttl = cli.TokenTTL
	}

	r.TokenTTL = time.Duration(ttl) * time.Second

	r.IgnoreSkipped = file.IgnoreSkipped || env.IgnoreSkipped || cli.IgnoreSkipped

	return r
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
