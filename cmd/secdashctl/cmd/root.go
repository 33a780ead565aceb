// Package cmd contains the CLI commands for secdash.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Used for flags
	verbose bool
	output  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "secdashctl",
	Short: "secdashctl - secdash administration tool",
	Long: `secdashctl manages a secdash database directly: users, one-off
imports of tool exports and a watched inbox directory.

Supported exports:
  - Tenable, CrowdStrike Falcon, Secureworks and AWS Security Hub CSVs
  - NETGEAR scorecard PDFs, issue lists and factor reports
  - Perimeter protection and XDR monthly metrics
  - Phishing reports, threat advisories and open items

Examples:
  # Check which importer a file would use
  secdashctl classify Tenable_Vulnerabilities_20241224.csv

  # Import files into the local database
  secdashctl import exports/*.csv

  # Import everything dropped into a directory
  secdashctl watch /srv/secdash/inbox`,
	// Run when no subcommand is specified
	Run: func(cmd *cobra.Command, args []string) {
		// Show help by default
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json)")
	rootCmd.PersistentFlags().StringVar(&dbDriver, "db-driver", "sqlite", "database driver (sqlite or postgres)")
	rootCmd.PersistentFlags().StringVar(&dbDSN, "db", defaultDBPath, "SQLite database file or PostgreSQL URL")
}

// GetOutput returns the output format.
func GetOutput() string {
	return output
}

// PrintError prints an error message and exits if fatal is true.
func PrintError(msg string, fatal bool) {
	fmt.Fprintln(os.Stderr, "Error:", msg)
	if fatal {
		os.Exit(1)
	}
}

// PrintVerbose prints a message only if verbose mode is enabled.
func PrintVerbose(format string, args ...any) {
	if verbose {
		fmt.Printf(format+"\n", args...)
	}
}
