package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/staylong/rental-backend/internal/database"
	"github.com/staylong/rental-backend/internal/services"
)

func SweepExpiredCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep-expired",
		Short: "Cancel pending bookings whose payment hold has lapsed",
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")

			logger := logrus.New()
			logger.SetFormatter(&logrus.JSONFormatter{})
			if verbose {
				logger.SetLevel(logrus.DebugLevel)
			}

			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			repo := database.NewBookingRepository(db, 5*time.Second)
			sweeper := services.NewBookingExpirationService(repo, nil, services.DefaultExpirationConfig(), logger)

			cancelled, err := sweeper.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancelled %d expired booking(s).\n", cancelled)
			return nil
		},
	}

	cmd.Flags().Bool("verbose", false, "Log each cancelled booking")

	return cmd
}
