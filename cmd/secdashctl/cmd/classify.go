package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/secdash/internal/ingest"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <filename>...",
	Short: "Show which importer a filename maps to",
	Long: `Classify filenames against the import registry without reading or
importing anything. With no arguments, list the registry.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return printRules()
		}

		results := make([]ingest.Classification, len(args))
		invalid := 0
		for i, name := range args {
			results[i] = ingest.Classify(name)
			if !results[i].Valid {
				invalid++
			}
		}

		if GetOutput() == "json" {
			data, _ := json.MarshalIndent(results, "", "  ")
			fmt.Println(string(data))
		} else {
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FILE\tSOURCE\tTYPE\tPERIOD\tERROR")
			for i, c := range results {
				period := ""
				if c.Period != nil {
					period = c.Period.ReportLabel() + " " + c.Period.QuarterLabel()
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", args[i], c.Source, c.FileType, period, firstLine(c.Error))
			}
			tw.Flush()
		}

		if invalid > 0 {
			return fmt.Errorf("%d of %d filenames not recognized", invalid, len(args))
		}
		return nil
	},
}

func printRules() error {
	rules := ingest.Rules()
	if GetOutput() == "json" {
		type rule struct {
			Source      ingest.Source `json:"source"`
			Description string        `json:"description"`
			Example     string        `json:"example"`
		}
		out := make([]rule, len(rules))
		for i, r := range rules {
			out[i] = rule{r.Source, r.Description, r.Example}
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tEXAMPLE\tDESCRIPTION")
	for _, r := range rules {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Source, r.Example, r.Description)
	}
	return tw.Flush()
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}
