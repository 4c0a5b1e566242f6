package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/collegebot-ai/collegebot/internal/auth"
)

func newLoginCmd() *cobra.Command {
	var (
		username string
		password string
		asAdmin  bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the bearer credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if username == "" {
				username, err = promptLine("Username: ")
				if err != nil {
					return err
				}
			}
			if password == "" {
				password, err = promptPassword("Password: ")
				if err != nil {
					return err
				}
			}
			if username == "" || password == "" {
				return fmt.Errorf("username and password are required")
			}

			creds, err := a.client.Login(cmd.Context(), username, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			// The backend decides the role; --admin only sets the
			// expectation so a mismatch is visible immediately.
			if asAdmin && creds.Role != string(auth.RoleAdmin) {
				return fmt.Errorf("account %q has role %q, not admin", username, creds.Role)
			}

			if err := auth.Login(a.store, creds.AccessToken, auth.Role(creds.Role)); err != nil {
				return fmt.Errorf("store credentials: %w", err)
			}

			fmt.Printf("Signed in as %s (%s).\n", username, creds.Role)
			if creds.Role == string(auth.RoleStudent) {
				fmt.Println("Run 'collegebot' to start chatting.")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted if omitted)")
	cmd.Flags().BoolVar(&asAdmin, "admin", false, "expect an admin account")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored credential",
		Long: "Discard the stored credential. Chat history is kept so prior\n" +
			"conversations are available after the next login.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if a.store.Token() == "" {
				fmt.Println("Not logged in.")
				return nil
			}
			if err := auth.Logout(a.store); err != nil {
				return err
			}
			fmt.Println("Signed out.")
			return nil
		},
	}
}

func newRegisterCmd() *cobra.Command {
	var (
		username string
		password string
		role     string
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if role != string(auth.RoleStudent) && role != string(auth.RoleAdmin) {
				return fmt.Errorf("--role must be %q or %q", auth.RoleStudent, auth.RoleAdmin)
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if username == "" {
				username, err = promptLine("Username: ")
				if err != nil {
					return err
				}
			}
			if password == "" {
				password, err = promptPassword("Password: ")
				if err != nil {
					return err
				}
			}
			// Rejected before any request is issued.
			if username == "" || password == "" {
				return fmt.Errorf("username and password are required")
			}

			if err := a.client.Register(cmd.Context(), username, password, role); err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}

			fmt.Println("Registration successful!")
			if role == string(auth.RoleAdmin) {
				fmt.Println("Sign in with 'collegebot login --admin'.")
			} else {
				fmt.Println("Sign in with 'collegebot login'.")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted if omitted)")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleStudent), "account role (student or admin)")
	return cmd
}

func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	data, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
