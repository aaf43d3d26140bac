package main

import (
	"crypto/rsa"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tylerbutler/wopi-validator-core/internal/discovery"
	"github.com/tylerbutler/wopi-validator-core/internal/proofkey"
)

var flagDiscoveryOut string

// newDiscoveryCmd builds the "discovery" command group.
func newDiscoveryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discovery",
		Short: "Proof-key discovery document utilities",
	}

	cmd.AddCommand(newDiscoveryExportCmd())

	return cmd
}

// newDiscoveryExportCmd builds "discovery export": renders a <wopi-discovery>
// document from the configured proof-key cert(s), the offline counterpart to
// a real WOPI server's discovery endpoint (spec.md §6).
func newDiscoveryExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the proof-key discovery XML document",
		RunE:  runDiscoveryExport,
	}

	cmd.Flags().StringVar(&flagCertPath, "proof-key-cert", "", "path to the current proof-key private key PEM")
	cmd.Flags().StringVar(&flagOldCertPath, "proof-key-old-cert", "", "path to the previous proof-key private key PEM")
	cmd.Flags().StringVarP(&flagDiscoveryOut, "out", "o", "", "output file path (default stdout)")

	return cmd
}

func runDiscoveryExport(cmd *cobra.Command, _ []string) error {
	if flagCertPath == "" {
		return fmt.Errorf("discovery export: --proof-key-cert is required")
	}

	currentKey, err := proofkey.LoadPrivateKeyPEM(flagCertPath)
	if err != nil {
		return err
	}

	currentPub := proofkey.NewSigner(currentKey).PublicKey()

	var oldPub *rsa.PublicKey

	if flagOldCertPath != "" {
		oldKey, err := proofkey.LoadPrivateKeyPEM(flagOldCertPath)
		if err != nil {
			return err
		}

		oldPub = proofkey.NewSigner(oldKey).PublicKey()
	}

	doc, err := discovery.Build(currentPub, oldPub)
	if err != nil {
		return err
	}

	if flagDiscoveryOut == "" {
		_, err = cmd.OutOrStdout().Write(doc)
		return err
	}

	return os.WriteFile(flagDiscoveryOut, doc, 0o644) //nolint:gosec // discovery XML is not sensitive
}
