package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/TeninChristopher/SAM/internal/adapter/marketapi"
	redisadapter "github.com/TeninChristopher/SAM/internal/adapter/redis"
	"github.com/TeninChristopher/SAM/internal/repository"
	"github.com/TeninChristopher/SAM/internal/service"
	"github.com/spf13/cobra"
)

var pricesRefresh bool

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Show the per-kg crop base prices used for listing quotes",
	Long: `Prints the crop price feed as the storefront sees it, through the Redis cache.
With --refresh the cached copy is dropped first so the feed is read again.`,
	RunE: runPrices,
}

func init() {
	pricesCmd.Flags().BoolVar(&pricesRefresh, "refresh", false, "Drop the cached prices before reading")
}

func runPrices(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	client, err := marketClient()
	if err != nil {
		return err
	}

	var cache repository.CropPriceCache
	redisClient, err := redisadapter.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Warnf("Redis unavailable, reading the feed without cache: %v", err)
	} else {
		defer redisClient.Close()
		cache = redisadapter.NewCropPriceCacheRepository(redisClient)
		if pricesRefresh {
			if err := cache.Delete(ctx); err != nil {
				return fmt.Errorf("could not drop cached prices: %w", err)
			}
			log.Info("Cached crop prices dropped")
		}
	}

	catalog := service.NewListingCatalog(
		marketapi.NewListingRepository(client),
		service.NewInventoryLedger(marketapi.NewProductRepository(client), log),
		marketapi.NewCropPriceFeed(client),
		cache,
		log,
		nil,
		service.CatalogConfig{
			FallbackBasePrice: cfg.Catalog.FallbackBasePrice,
			PriceCacheTTL:     cfg.Catalog.PriceCacheTTL,
		},
	)
	prices, err := catalog.CropPrices(ctx)
	if err != nil {
		return err
	}
	sort.SliceStable(prices, func(i, j int) bool {
		a, b := strings.ToLower(prices[i].Crop), strings.ToLower(prices[j].Crop)
		if a != b {
			return a < b
		}
		return prices[i].Year > prices[j].Year
	})

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CROP\tYEAR\tBASE PRICE/KG")
	for _, p := range prices {
		fmt.Fprintf(w, "%s\t%d\t%s\n", p.Crop, p.Year, p.BasePrice.StringFixed(2))
	}
	return w.Flush()
}
