package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/secdash/internal/security"
)

var (
	certDir       string
	certOutputDir string
	certValidDays int
	certHosts     []string
)

var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "Certificates for the HTTPS listener",
	Long: `Create a private CA and the certificates the server needs for HTTPS,
plus client certificates when server.tls.client_ca_file enables mutual TLS.`,
}

var certCACmd = &cobra.Command{
	Use:   "ca",
	Short: "Create a certificate authority",
	Long: `Create ca.crt and ca.key in --ca-dir.

Example:
  secdashctl cert ca --ca-dir /etc/secdash/pki`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		PrintVerbose("Generating CA in %s", certDir)
		if err := security.GenerateCA(certDir, certValidDays); err != nil {
			return fmt.Errorf("generate CA: %w", err)
		}
		printPair(certDir, "ca")
		return nil
	},
}

var certServerCmd = &cobra.Command{
	Use:   "server <name>",
	Short: "Issue a server certificate",
	Long: `Issue <name>.crt and <name>.key for server.tls. localhost and the
loopback addresses are always included.

Example:
  secdashctl cert server secdash --ca-dir /etc/secdash/pki --host dash.example.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := outputDir()
		if err := security.GenerateServerCert(certDir, args[0], out, certValidDays, certHosts); err != nil {
			return fmt.Errorf("generate server certificate: %w", err)
		}
		printPair(out, args[0])
		return nil
	},
}

var certClientCmd = &cobra.Command{
	Use:   "client <name>",
	Short: "Issue a client certificate for mutual TLS",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := outputDir()
		if err := security.GenerateClientCert(certDir, args[0], out, certValidDays); err != nil {
			return fmt.Errorf("generate client certificate: %w", err)
		}
		printPair(out, args[0])
		return nil
	},
}

func outputDir() string {
	if certOutputDir == "" {
		return certDir
	}
	return certOutputDir
}

func printPair(dir, name string) {
	fmt.Printf("Certificate: %s\n", filepath.Join(dir, name+".crt"))
	fmt.Printf("Private key: %s\n", filepath.Join(dir, name+".key"))
}

func init() {
	rootCmd.AddCommand(certCmd)
	certCmd.AddCommand(certCACmd, certServerCmd, certClientCmd)

	certCmd.PersistentFlags().StringVar(&certDir, "ca-dir", "./pki", "directory holding ca.crt and ca.key")
	certCmd.PersistentFlags().StringVarP(&certOutputDir, "output-dir", "o", "", "where issued files go (default --ca-dir)")
	certCmd.PersistentFlags().IntVarP(&certValidDays, "valid-days", "d", 0,
		fmt.Sprintf("certificate validity in days (0 = %d for a CA, %d otherwise)", security.DefaultCAValidDays, security.DefaultCertValidDays))
	certServerCmd.Flags().StringSliceVar(&certHosts, "host", nil, "extra DNS name or IP for the certificate")
}
