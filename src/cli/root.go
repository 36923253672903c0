// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/H0llyW00dzZ/tls-cert-bundler/src/config"
	"github.com/H0llyW00dzZ/tls-cert-bundler/src/internal/archive"
	"github.com/H0llyW00dzZ/tls-cert-bundler/src/internal/helper/posix"
	x509certs "github.com/H0llyW00dzZ/tls-cert-bundler/src/internal/x509/certs"
	x509chain "github.com/H0llyW00dzZ/tls-cert-bundler/src/internal/x509/chain"
	"github.com/H0llyW00dzZ/tls-cert-bundler/src/internal/x509/report"
	"github.com/H0llyW00dzZ/tls-cert-bundler/src/logger"
	"github.com/spf13/cobra"
)

// OperationPerformed indicates whether any bundling or validation operation
// ran during Execute. OperationPerformedSuccessfully indicates it also
// finished without error. The main package reads both for final log lines.
var (
	OperationPerformed             bool
	OperationPerformedSuccessfully bool
)

var (
	configFile string

	// bundle flags
	inputFile   string
	keyFile     string
	extendFile  string
	outputFile  string
	includeRoot bool
	showTree    bool
	showTable   bool
	jsonOutput  bool

	// validate flags
	archiveFile string
	warnDays    int
)

// Execute runs the root command with the given context, version, and logger.
// It returns the first error encountered so the caller decides the exit code.
func Execute(ctx context.Context, version string, log logger.Logger) error {
	OperationPerformed = false
	OperationPerformedSuccessfully = false

	var cfg *config.Config

	exeName := posix.GetExecutableName()
	rootCmd := &cobra.Command{
		Use:           exeName,
		Short:         "TLS certificate bundler",
		Long:          "Build, complete, and package TLS certificate chains into portable archives, and validate archives produced elsewhere.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configFile)
			return err
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (JSON or YAML; default: $TLS_CERT_BUNDLER_CONFIG_FILE)")

	bundleCmd := &cobra.Command{
		Use:     "bundle",
		Short:   "Resolve a certificate chain and pack it into an archive",
		Example: fmt.Sprintf("  %s bundle -f cert.pem -k cert.key -o site.tar", exeName),
		RunE: func(cmd *cobra.Command, args []string) error {
			OperationPerformed = true
			if err := execBundle(cmd.Context(), cfg, version, log); err != nil {
				return err
			}
			OperationPerformedSuccessfully = true
			return nil
		},
	}
	bundleCmd.Flags().StringVarP(&inputFile, "file", "f", "", "input leaf certificate (PEM, DER, or base64) [required]")
	bundleCmd.Flags().StringVarP(&keyFile, "key", "k", "", "private key to include in the archive")
	bundleCmd.Flags().StringVarP(&extendFile, "extend", "e", "", "extra certificate bundle merged into the chain")
	bundleCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output archive (default: input basename + .tar)")
	bundleCmd.Flags().BoolVarP(&includeRoot, "include-root", "s", false, "complete the chain with a trust store root")
	bundleCmd.Flags().BoolVarP(&showTree, "tree", "t", false, "print the chain as an ASCII tree")
	bundleCmd.Flags().BoolVar(&showTable, "table", false, "print the chain as a markdown table")
	bundleCmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "print the chain as JSON")
	_ = bundleCmd.MarkFlagRequired("file")

	validateCmd := &cobra.Command{
		Use:     "validate",
		Short:   "Unpack an archive and report on its contents",
		Example: fmt.Sprintf("  %s validate -f site.tar", exeName),
		RunE: func(cmd *cobra.Command, args []string) error {
			OperationPerformed = true
			if err := execValidate(cfg, log); err != nil {
				return err
			}
			OperationPerformedSuccessfully = true
			return nil
		},
	}
	validateCmd.Flags().StringVarP(&archiveFile, "file", "f", "", "archive file to validate [required]")
	validateCmd.Flags().IntVar(&warnDays, "warn-days", 0, "expiry warning window in days (default: from config)")
	validateCmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "print the report as JSON")
	_ = validateCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(bundleCmd, validateCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// execBundle reads the leaf certificate, resolves its issuer chain, applies
// any manual bundle and trust-store completion, and packs the result.
func execBundle(ctx context.Context, cfg *config.Config, version string, log logger.Logger) error {
	certData, err := os.ReadFile(inputFile)
	if err != nil {
		return fmt.Errorf("reading input file: %w", err)
	}

	decoder := x509certs.New()
	cert, err := decoder.Decode(certData)
	if err != nil {
		return fmt.Errorf("decoding certificate: %w", err)
	}

	chain := x509chain.New(cert, version)
	applyConfig(chain, cfg)

	if err = chain.ResolveAutomatic(ctx); err != nil {
		// Partial chains stay usable; report and continue.
		log.Printf("Chain resolution incomplete: %v", err)
	}

	if extendFile != "" {
		bundleData, readErr := os.ReadFile(extendFile)
		if readErr != nil {
			return fmt.Errorf("reading extend bundle: %w", readErr)
		}
		result, extErr := chain.ExtendManual(bundleData)
		if extErr != nil {
			return fmt.Errorf("extending chain: %w", extErr)
		}
		log.Printf("Merged %d certificate(s) from %s (%d duplicate(s), %d unparseable block(s))",
			len(result.Added), extendFile, result.Duplicates, result.ParseFailures)
	}

	if includeRoot {
		if err = chain.CompleteWithRoot(cfg.Resolver.TrustStore); err != nil {
			return fmt.Errorf("completing chain with root: %w", err)
		}
	}

	for _, note := range chain.Diagnostics {
		log.Printf("Note: %s", note)
	}

	switch {
	case showTree:
		fmt.Println(chain.RenderASCIITree())
	case showTable:
		fmt.Println(chain.RenderTable())
	case jsonOutput:
		data, jsonErr := chain.ToVisualizationJSON()
		if jsonErr != nil {
			return fmt.Errorf("encoding chain JSON: %w", jsonErr)
		}
		fmt.Println(string(data))
	}

	return writeArchive(chain, log)
}

// writeArchive packs the chain's roles into one archive next to the input.
func writeArchive(chain *x509chain.Chain, log logger.Logger) error {
	base := strings.TrimSuffix(filepath.Base(inputFile), filepath.Ext(inputFile))

	leaf := chain.Leaf.Certificate()
	entries := []archive.Entry{
		{Name: base + ".crt", Content: chain.EncodePEM(leaf)},
	}

	if keyFile != "" {
		keyData, err := os.ReadFile(keyFile)
		if err != nil {
			return fmt.Errorf("reading private key: %w", err)
		}
		key, err := x509certs.DecodePrivateKey(keyData)
		if err != nil {
			return fmt.Errorf("decoding private key: %w", err)
		}
		if match := x509certs.KeyMatchesCertificate(key, leaf); match != nil && !*match {
			return fmt.Errorf("private key %s does not match certificate %s", keyFile, inputFile)
		}
		entries = append(entries, archive.Entry{Name: base + ".prv", Content: keyData})
	}

	if caBundle := chain.CABundlePEM(); len(caBundle) > 0 {
		entries = append(entries, archive.Entry{Name: base + ".ca", Content: caBundle})
	}

	data, err := archive.New().Pack(entries)
	if err != nil {
		return fmt.Errorf("packing archive: %w", err)
	}

	target := outputFile
	if target == "" {
		target = base + ".tar"
	}
	if err = os.WriteFile(target, data, 0644); err != nil {
		return fmt.Errorf("writing archive: %w", err)
	}

	log.Printf("Wrote %d entry(ies) to %s", len(entries), target)
	return nil
}

// execValidate unpacks the archive and prints the validation report.
func execValidate(cfg *config.Config, log logger.Logger) error {
	data, err := os.ReadFile(archiveFile)
	if err != nil {
		return fmt.Errorf("reading archive: %w", err)
	}

	entries := archive.New().Unpack(data)
	if len(entries) == 0 {
		return fmt.Errorf("archive %s contains no entries", archiveFile)
	}

	opts := report.DefaultOptions()
	opts.WarnDays = cfg.Defaults.WarnDays
	if warnDays > 0 {
		opts.WarnDays = warnDays
	}
	opts.Policy.LooseDNFallback = cfg.LooseDNFallback()
	opts.Policy.MaxDepth = cfg.Resolver.MaxDepth

	rep := report.FromArchive(entries, opts)

	if jsonOutput {
		out, jsonErr := json.MarshalIndent(rep, "", "  ")
		if jsonErr != nil {
			return fmt.Errorf("encoding report: %w", jsonErr)
		}
		fmt.Println(string(out))
		return nil
	}

	log.Printf("Certificate: %s", presence(rep.HasCertificate))
	log.Printf("Private key: %s", presence(rep.HasPrivateKey))
	log.Printf("CA bundle:   %s", presence(rep.HasCABundle))
	log.Printf("Key match:   %s", triState(rep.KeyMatch))
	log.Printf("Chain:       %s", triState(rep.ChainComplete))
	log.Printf("Validity:    %s", rep.Validity)
	for _, finding := range rep.Findings {
		log.Printf("  - %s", finding)
	}
	return nil
}

// applyConfig copies the resolver settings from the loaded config onto the chain.
func applyConfig(chain *x509chain.Chain, cfg *config.Config) {
	chain.Policy.MaxDepth = cfg.Resolver.MaxDepth
	chain.Policy.ProxyTemplate = cfg.Resolver.ProxyTemplate
	chain.Policy.LooseDNFallback = cfg.LooseDNFallback()
	chain.HTTPConfig.Timeout = time.Duration(cfg.Defaults.Timeout) * time.Second
}

func presence(ok bool) string {
	if ok {
		return "present"
	}
	return "missing"
}

func triState(v *bool) string {
	switch {
	case v == nil:
		return "undecidable"
	case *v:
		return "ok"
	default:
		return "failed"
	}
}
