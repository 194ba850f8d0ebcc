package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/TeninChristopher/SAM/internal/adapter/marketapi"
	"github.com/TeninChristopher/SAM/internal/service"
	"github.com/spf13/cobra"
)

var marketFilter struct {
	search   string
	crop     string
	sort     string
	minPrice float64
	maxPrice float64
}

var marketCmd = &cobra.Command{
	Use:   "market",
	Short: "List purchasable market listings",
	RunE:  runMarket,
}

func init() {
	marketCmd.Flags().StringVar(&marketFilter.search, "search", "", "Substring of the product name")
	marketCmd.Flags().StringVar(&marketFilter.crop, "crop", "", "Exact crop name, or All")
	marketCmd.Flags().StringVar(&marketFilter.sort, "sort", "newest", "newest, price_asc or price_desc")
	marketCmd.Flags().Float64Var(&marketFilter.minPrice, "min-price", 0, "Lowest unit price")
	marketCmd.Flags().Float64Var(&marketFilter.maxPrice, "max-price", 0, "Highest unit price (0 means no ceiling)")
}

func runMarket(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	client, err := marketClient()
	if err != nil {
		return err
	}
	ledger := service.NewInventoryLedger(marketapi.NewProductRepository(client), log)
	catalog := service.NewListingCatalog(
		marketapi.NewListingRepository(client),
		ledger,
		marketapi.NewCropPriceFeed(client),
		nil,
		log,
		nil,
		service.CatalogConfig{
			FallbackBasePrice: cfg.Catalog.FallbackBasePrice,
			PriceCacheTTL:     cfg.Catalog.PriceCacheTTL,
			MaxPrice:          cfg.Catalog.MaxPrice,
		},
	)
	if err := catalog.Refresh(ctx); err != nil {
		return fmt.Errorf("could not load the market: %w", err)
	}

	listings := catalog.List(service.ListingFilter{
		Search:   marketFilter.search,
		CropType: marketFilter.crop,
		MinPrice: marketFilter.minPrice,
		MaxPrice: marketFilter.maxPrice,
		Sort:     service.ParseSortOrder(marketFilter.sort),
	})

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRODUCT\tKG/UNIT\tSTOCK\tDISCOUNT\tUNIT PRICE\tADDED")
	for _, l := range listings {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\t%.0f%%\t%.2f\t%s\n",
			l.ID, l.ProductName, l.WeightPerUnit, l.StockUnits, l.DiscountPercent, l.UnitPrice, l.DateAdded.Format("2006-01-02"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	log.Debugf("Listed %d listings", len(listings))
	return nil
}
