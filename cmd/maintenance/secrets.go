package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/staylong/rental-backend/internal/utils"
)

func SecretsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "secrets",
		Short: "Generate signing secrets for admin and payment tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			adminSecret, paymentSecret, err := utils.GenerateSigningSecrets()
			if err != nil {
				return fmt.Errorf("failed to generate secrets: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Add these to your .env file. Never commit them.")
			fmt.Fprintf(out, "JWT_SECRET=%s\n", adminSecret)
			fmt.Fprintf(out, "PAYMENT_WEBHOOK_SECRET=%s\n", paymentSecret)
			return nil
		},
	}
}
