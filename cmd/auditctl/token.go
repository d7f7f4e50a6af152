package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Rodrigo270695/portalAD-sub001/internal/auth"
)

func newTokenCmd() *cobra.Command {
	var (
		userID string
		email  string
		scopes []string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with PORTAL_JWT_SECRET",
		Example: `  auditctl token --user 42 --scope activity:read --ttl 1h
  auditctl token --user ops --scope admin`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := issueToken(userID, email, scopes, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id carried in the token (required)")
	cmd.Flags().StringVar(&email, "email", "", "email carried in the token")
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "scope to grant, repeatable (default activity:write)\n"+scopeHelp())
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func issueToken(userID, email string, scopes []string, ttl time.Duration) (string, error) {
	if err := auth.ValidateJWTSecret(); err != nil {
		return "", err
	}
	if len(scopes) == 0 {
		scopes = auth.DefaultScopes()
	}
	if err := auth.ValidateScopes(scopes); err != nil {
		return "", err
	}
	if ttl <= 0 {
		return "", fmt.Errorf("ttl must be positive")
	}
	return auth.GenerateJWT(userID, email, scopes, ttl)
}

func scopeHelp() string {
	var b strings.Builder
	for _, s := range auth.AllScopes() {
		fmt.Fprintf(&b, "  %-15s %s\n", s, s.Description())
	}
	return strings.TrimRight(b.String(), "\n")
}
