// Command riskreport prints the category budgets and the at-risk numbers of a
// round.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"lotto/config"
	"lotto/database"
	"lotto/logger"
	"lotto/models"
	"lotto/risk"
	"lotto/services"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to YAML config")
	roundID := flag.Uint("round", 0, "round id")
	category := flag.String("category", "", "bet category (default: all)")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Init(logger.Config{Level: "warn", Format: "console", Output: os.Stderr})

	if *roundID == 0 {
		fmt.Fprintln(os.Stderr, "riskreport: -round is required")
		os.Exit(2)
	}
	cats := models.Categories
	if *category != "" {
		cat, ok := models.ParseCategory(*category)
		if !ok {
			fmt.Fprintf(os.Stderr, "riskreport: unknown category %q\n", *category)
			os.Exit(2)
		}
		cats = []models.BetCategory{cat}
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		logger.Error(ctx).Err(err).Msg("failed to open database")
		os.Exit(1)
	}
	svc := services.New(db, cfg)

	budgets, err := svc.Risk.Budgets(ctx)
	if err != nil {
		logger.Error(ctx).Err(err).Msg("failed to compute budgets")
		os.Exit(1)
	}
	renderBudgets(os.Stdout, budgets)

	var entries []risk.Summary
	for _, cat := range cats {
		list, err := svc.Risk.ListAtRisk(ctx, uint(*roundID), cat)
		if err != nil {
			logger.Error(ctx).Err(err).Str("category", string(cat)).Msg("failed to list at-risk numbers")
			os.Exit(1)
		}
		entries = append(entries, list...)
	}
	fmt.Fprintf(os.Stdout, "\nround %d: %d numbers at risk\n", *roundID, len(entries))
	renderAtRisk(os.Stdout, entries)
}
