package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/collegebot-ai/collegebot/internal/auth"
	"github.com/collegebot-ai/collegebot/internal/chat"
	"github.com/collegebot-ai/collegebot/internal/tui"
)

// runChat starts the interactive chat TUI.
func runChat() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireAccess(auth.RoleStudent); err != nil {
		return err
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("stdout is not a terminal; use 'collegebot ask <question>' instead")
	}

	ctrl := chat.NewController(a.store, a.client, a.log)
	return tui.Run(ctrl, a.client, tui.Config{
		Version: appVersion,
		BaseURL: a.baseURL,
		Role:    a.store.Role(),
	})
}

// newAskCmd is the one-shot, non-interactive chat path.
func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.requireAccess(auth.RoleStudent); err != nil {
				return err
			}

			ctrl := chat.NewController(a.store, a.client, a.log)
			outcome, err := ctrl.Send(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if outcome.Reply != nil {
				fmt.Println(outcome.Reply.Content)
				for i, src := range outcome.Reply.Sources {
					fmt.Printf("  [%d] %s\n", i+1, src)
				}
			}
			if outcome.AuthExpired {
				// Let the notice sit on screen before bouncing the user
				// back to the login flow, mirroring the interactive client.
				time.Sleep(chat.RedirectDelay)
				return fmt.Errorf("run 'collegebot login' to sign in again")
			}
			return nil
		},
	}
}
