package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/TeninChristopher/SAM/internal/adapter/csvrows"
	"github.com/TeninChristopher/SAM/internal/adapter/marketapi"
	"github.com/TeninChristopher/SAM/internal/service"
	"github.com/TeninChristopher/SAM/internal/session"
	"github.com/spf13/cobra"
)

var (
	importFile  string
	importOwner string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Upload a CSV of harvested crops into a farmer's inventory",
	Long: `Reads name, quantity and reap_date columns and upserts each row in order.
A row for an existing (crop, reap date) lot replaces its quantity.
Rejected rows are reported with their CSV line number; the rest still land.`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "CSV file to import")
	importCmd.Flags().StringVar(&importOwner, "owner", "", "Farmer ID owning the products")
	_ = importCmd.MarkFlagRequired("file")
	_ = importCmd.MarkFlagRequired("owner")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	f, err := os.Open(importFile)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", importFile, err)
	}
	defer f.Close()

	rows, err := csvrows.Read(f)
	if err != nil {
		return fmt.Errorf("could not read %s: %w", importFile, err)
	}
	log.Infof("Importing %d rows for farmer %s", len(rows), importOwner)

	client, err := marketClient()
	if err != nil {
		return err
	}
	ledger := service.NewInventoryLedger(marketapi.NewProductRepository(client), log)
	sess := session.Session{Role: session.RoleFarmer, FarmerID: importOwner}

	result, err := ledger.BulkUpload(ctx, sess, rows)
	if err != nil {
		return fmt.Errorf("bulk upload stopped after %d accepted rows: %w", result.Accepted, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "accepted: %d\nrejected: %d\n", result.Accepted, len(result.Rejected))
	if len(result.Rejected) > 0 {
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "LINE\tREASON")
		for _, rej := range result.Rejected {
			fmt.Fprintf(w, "%d\t%s\n", rej.Line, rej.Reason)
		}
		return w.Flush()
	}
	return nil
}
