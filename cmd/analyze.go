// cmd/analyze.go
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/crashlens/api/schemas"
	"github.com/xkilldash9x/crashlens/internal/observability"
)

var analyzeOutputJSON bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <report.json>",
	Short: "Run one analysis from an error report file",
	Long: `Reads an ErrorReport JSON document from the given file (or "-" for
stdin), runs the full analysis pipeline once and prints the result.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger()
		defer observability.Sync()

		var (
			raw []byte
			err error
		)
		if args[0] == "-" {
			raw, err = io.ReadAll(os.Stdin)
		} else {
			raw, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to read report: %w", err)
		}

		var report schemas.ErrorReport
		if err := json.Unmarshal(raw, &report); err != nil {
			return fmt.Errorf("failed to parse report JSON: %w", err)
		}

		orch, err := buildOrchestrator(appConfig, logger)
		if err != nil {
			return err
		}

		result, err := orch.Analyze(cmd.Context(), report)
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}

		if analyzeOutputJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Request:  %s\n\n", result.RequestID)
		fmt.Fprintln(out, result.Analysis)
		if len(result.Suggestions) > 0 {
			fmt.Fprintln(out, "\nSuggestions:")
			for i, s := range result.Suggestions {
				fmt.Fprintf(out, "  %d. %s\n", i+1, s)
			}
		}
		if len(result.Degradations) > 0 {
			fmt.Fprintln(out, "\nMissing context:")
			for _, d := range result.Degradations {
				fmt.Fprintf(out, "  - %s\n", d)
			}
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeOutputJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(analyzeCmd)
}
