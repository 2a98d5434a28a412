package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"github.com/staylong/rental-backend/internal/services"
)

func QuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Compute the server-side price of a stay",
		RunE: func(cmd *cobra.Command, args []string) error {
			rate, _ := cmd.Flags().GetFloat64("rate")
			days, _ := cmd.Flags().GetInt("days")
			cleaningRate, _ := cmd.Flags().GetFloat64("cleaning-rate")
			cleaningPeriod, _ := cmd.Flags().GetInt("cleaning-period")

			var cleaning *services.CleaningSchedule
			if cleaningRate > 0 {
				cleaning = &services.CleaningSchedule{RatePerPeriod: cleaningRate, PeriodLengthDays: cleaningPeriod}
			}

			quote, err := services.ComputePrice(rate, days, cleaning)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(quote)
		},
	}

	cmd.Flags().Float64("rate", 0, "Monthly rate of the room")
	cmd.Flags().Int("days", 0, "Length of the stay in days")
	cmd.Flags().Float64("cleaning-rate", 0, "Cleaning price per period (0 disables cleaning)")
	cmd.Flags().Int("cleaning-period", 7, "Cleaning period length in days")
	_ = cmd.MarkFlagRequired("rate")
	_ = cmd.MarkFlagRequired("days")

	return cmd
}
