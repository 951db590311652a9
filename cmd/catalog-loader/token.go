package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/shelfwise/internal/identity"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for local development",
	Long: `Token signs an identity token with the configured HMAC secret. It only works
when auth.provider is hmac; production tokens come from the identity provider.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		email, _ := cmd.Flags().GetString("email")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		if cfg.Auth.Provider != "hmac" {
			return errors.New("token minting requires auth.provider: hmac")
		}
		v, err := identity.NewHMACVerifier(cfg.Auth.HMACSecret, cfg.Auth.Issuer, cfg.Auth.Audience)
		if err != nil {
			return fmt.Errorf("hmac verifier: %w", err)
		}
		tok, err := v.Sign(email, ttl)
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("email", "", "email claim")
	tokenCmd.Flags().Duration("ttl", time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(tokenCmd)
}
