package main

import (
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/methnet/internal/dataset"
	"github.com/pdiddy/methnet/internal/methnet"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Download the citation dataset for a PubMed query",
	Long: `Data searches PubMed, translates hits to PubMed Central ids, and fetches
each paper's full text and outgoing citations. Keyword mention counts are
stored per paper. The table is written to <data-dir>/pubmed_data__<id>.csv;
an existing table with the same id is loaded instead of downloaded.`,
	RunE: runData,
}

func init() {
	addQueryFlags(dataCmd)
	dataCmd.Flags().Bool("json", false, "print the dataset as JSON")

	rootCmd.AddCommand(dataCmd)
}

func runData(cmd *cobra.Command, args []string) error {
	opts, err := baseOptions(cmd)
	if err != nil {
		return err
	}
	ds, err := methnet.GetData(cmd.Context(), opts)
	if err != nil {
		return err
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		return dataset.FormatJSON(ds, os.Stdout)
	}
	dataset.FormatTable(ds, os.Stdout)
	return nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
