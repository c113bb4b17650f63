package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwttoken "mrzgate/internal/jwt_token"
)

// NewTokenCmd creates the token command.
func NewTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API access token for a scanning client",
		Long: `Token signs a bearer token for /extract-mrz with JWT_SIGNING_KEY.

Example:
  JWT_SIGNING_KEY=... mrzgate token --subject kiosk-17 --ttl 720h`,
		Args: cobra.NoArgs,
		RunE: runToken,
	}
	cmd.Flags().String("subject", "", "Client or device the token is issued to")
	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func runToken(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	if a.cfg.Server.JWTSigningKey == "" {
		return errors.New("JWT_SIGNING_KEY (or server.jwt_signing_key) is not configured")
	}
	subject, _ := cmd.Flags().GetString("subject")
	ttl, _ := cmd.Flags().GetDuration("ttl")

	svc := jwttoken.NewJWTService(a.cfg.Server.JWTSigningKey, a.cfg.Server.JWTIssuer, tokenAudience)
	token, err := svc.GenerateAccessToken(subject, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
