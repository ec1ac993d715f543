package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/docflow/internal/roi"
	"github.com/nhle/docflow/internal/ui/roiview"
)

func roiCmd() *cobra.Command {
	var in roi.Input

	cmd := &cobra.Command{
		Use:   "roi",
		Short: "Estimate monthly savings from automated invoice handling",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := roi.Calculate(in)
			if err != nil {
				return err
			}
			fmt.Println(roiview.RenderResult(res))
			return nil
		},
	}

	cmd.Flags().Float64Var(&in.Invoices, "invoices", 500, "invoices per month")
	cmd.Flags().Float64Var(&in.MinutesPerDoc, "minutes", 6, "manual minutes per invoice")
	cmd.Flags().Float64Var(&in.HourlyRate, "rate", 40, "hourly labour cost (€)")
	cmd.Flags().Float64Var(&in.PackageCost, "package", 299, "monthly package cost (€)")
	return cmd
}
