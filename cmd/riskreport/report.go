package main

import (
	"fmt"
	"io"

	"lotto/helpers"
	"lotto/risk"
	"lotto/services"

	"github.com/olekukonko/tablewriter"
)

func renderBudgets(w io.Writer, budgets []services.CategoryBudget) {
	table := tablewriter.NewWriter(w)
	table.Header("Category", "Alloc%", "Base", "Pot", "MaxLimit")
	for _, b := range budgets {
		table.Append(
			string(b.Category),
			b.AllocationPercent.String(),
			b.BaseRate.String(),
			b.TypePot.StringFixed(2),
			b.MaxLimit.StringFixed(2),
		)
	}
	table.Render()
}

func renderAtRisk(w io.Writer, entries []risk.Summary) {
	table := tablewriter.NewWriter(w)
	table.Header("Category", "Number", "Total", "Bets", "Limit", "Usage%", "Status", "Override")
	for _, e := range entries {
		override := ""
		switch {
		case e.ManualClosed:
			override = "closed"
		case e.ManualLimit.Valid:
			override = "limit " + e.ManualLimit.Decimal.StringFixed(2)
		}
		table.Append(
			string(e.Category),
			e.Number,
			e.TotalAmount.StringFixed(2),
			fmt.Sprintf("%d", e.BetCount),
			e.Limit.StringFixed(2),
			helpers.Percent(e.UsagePercent),
			e.Status,
			override,
		)
	}
	table.Render()
}
