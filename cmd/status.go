package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show backend address, connectivity, and login state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Printf("Backend:  %s (%s)\n", a.baseURL, a.cfg.Env)

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			if err := a.client.Health(ctx); err != nil {
				fmt.Printf("Health:   unreachable (%v)\n", err)
			} else {
				fmt.Println("Health:   ok")
			}

			tok := a.store.Token()
			if tok == "" {
				fmt.Println("Account:  not logged in")
				return nil
			}

			fmt.Printf("Role:     %s\n", a.store.Role())
			printTokenClaims(tok)
			return nil
		},
	}
}

// printTokenClaims decodes the stored JWT without verifying it; the client
// has no signing key and only wants the display fields. Expiry shown here is
// informational: an expired token is only detected for real when the backend
// rejects a request.
func printTokenClaims(token string) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return
	}
	if sub, ok := claims["sub"].(string); ok {
		fmt.Printf("Account:  %s\n", sub)
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		state := "valid"
		if time.Now().After(exp.Time) {
			state = "expired"
		}
		fmt.Printf("Token:    %s until %s\n", state, exp.Time.Local().Format(time.RFC1123))
	}
}
