package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/secdash/pkg/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit, and build time of secdashctl.`,
	Run: func(cmd *cobra.Command, args []string) {
		if GetOutput() == "json" {
			data, _ := json.MarshalIndent(config.Info(), "", "  ")
			fmt.Println(string(data))
		} else {
			fmt.Println(config.Info())
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
