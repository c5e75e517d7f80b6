package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pharmaflow/pharmaflow/internal/pharma"
	"github.com/pharmaflow/pharmaflow/internal/pharmaapi"
	"github.com/pharmaflow/pharmaflow/internal/ui"
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "List uploaded documents",
	Args:    cobra.NoArgs,
	RunE:    runDocuments,
}

var documentsShowCmd = &cobra.Command{
	Use:   "show [document-id]",
	Short: "Print the finance, sustainability and chemistry analysis of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsShow,
}

func init() {
	documentsCmd.Flags().Bool("json", false, "output as JSON")
	documentsShowCmd.Flags().Bool("json", false, "output the raw analysis as JSON")
	documentsCmd.AddCommand(documentsShowCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocuments(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	_, logger, client, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	docs, err := client.ListDocuments(context.Background())
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, docs)
	}
	if len(docs) == 0 {
		fmt.Fprintln(out, "No documents uploaded yet.")
		return nil
	}
	for _, d := range docs {
		fmt.Fprintf(out, "%s  %s\n", d.DocumentID, d.Filename)
	}
	return nil
}

func runDocumentsShow(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	_, logger, client, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	a, err := client.GetAnalysis(context.Background(), args[0])
	if err != nil {
		if pharmaapi.IsNotFound(err) {
			return fmt.Errorf("document %q not found", args[0])
		}
		return fmt.Errorf("fetching analysis: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), a)
	}
	printAnalysis(cmd.OutOrStdout(), a)
	return nil
}

// printAnalysis writes the same selection of facts the analysis tab shows.
func printAnalysis(w io.Writer, a *pharmaapi.Analysis) {
	view := pharma.AnalysisView(a)

	fin := view.Finance
	section(w, "Finance")
	field(w, "Total cost", fin.TotalCost)
	pairs(w, "Cost breakdown", fin.Breakdown)
	bullets(w, "Payment milestones", fin.Milestones)
	field(w, "Summary", fin.Summary)
	bullets(w, "ROI considerations", fin.ROI)

	sus := view.Sustainability
	section(w, "Sustainability")
	pairs(w, "Waste recovery", sus.WasteRecovery)
	pairs(w, "Emissions", sus.Emissions)
	field(w, "Summary", sus.Summary)
	bullets(w, "Compliance", sus.Compliance)

	chem := view.Chemistry
	section(w, "Chemistry/Process")
	bullets(w, "Active ingredients", chem.ActiveIngredients)
	pairs(w, "Process parameters", chem.ProcessParameters)
	pairs(w, "Quality specifications", chem.QualitySpecs)
	field(w, "Summary", chem.Summary)
	bullets(w, "Critical steps", chem.CriticalSteps)
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n%s\n", title, strings.Repeat("=", len(title)))
}

func field(w io.Writer, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(w, "%s: %s\n", label, value)
}

func pairs(w io.Writer, label string, kvs []ui.KV) {
	if len(kvs) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", label)
	for _, kv := range kvs {
		fmt.Fprintf(w, "  %s: %s\n", ui.Label(kv.Key), kv.Value)
	}
}

func bullets(w io.Writer, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", label)
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}
