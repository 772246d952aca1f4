package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Overland-East-Bay/tour-authoring-api/internal/platform/auth/jwtverifier"
)

// Dev-only token minting. The API must run with AUTH_MODE=hmac and the same JWT_SECRET.
func newDevJWTCmd() *cobra.Command {
	var (
		secret string
		issuer string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "devjwt <subject>",
		Short: "Mint an HS256 bearer token for local development",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("JWT_SECRET")
			}
			if secret == "" {
				return errors.New("--secret or JWT_SECRET is required")
			}
			if issuer == "" {
				issuer = os.Getenv("JWT_ISSUER")
			}
			tok, err := jwtverifier.Mint(secret, issuer, args[0], time.Now(), ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "HMAC secret (defaults to $JWT_SECRET)")
	cmd.Flags().StringVar(&issuer, "issuer", "", "iss claim (defaults to $JWT_ISSUER)")
	cmd.Flags().DurationVar(&ttl, "ttl", 30*time.Minute, "token lifetime")
	return cmd
}
