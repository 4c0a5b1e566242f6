package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/collegebot-ai/collegebot/internal/auth"
	"github.com/collegebot-ai/collegebot/internal/logging"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage the document corpus (admin role required)",
	}
	cmd.AddCommand(newAdminStatsCmd())
	cmd.AddCommand(newAdminDocsCmd())
	cmd.AddCommand(newAdminUploadCmd())
	cmd.AddCommand(newAdminRmCmd())
	cmd.AddCommand(newAdminLogsCmd())
	return cmd
}

// adminApp wires the app and enforces the admin gate in one step.
func adminApp() (*app, error) {
	a, err := newApp()
	if err != nil {
		return nil, err
	}
	if err := a.requireAccess(auth.RoleAdmin); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func newAdminStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show corpus and usage counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := adminApp()
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.client.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Total documents:  %d\n", stats.TotalDocuments)
			fmt.Printf("Active students:  %d\n", stats.ActiveStudents)
			fmt.Printf("Queries today:    %d\n", stats.QueriesToday)
			return nil
		},
	}
}

func newAdminDocsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "docs",
		Short: "List uploaded documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := adminApp()
			if err != nil {
				return err
			}
			defer a.Close()

			docs, err := a.client.Documents(cmd.Context())
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				fmt.Println("No documents uploaded yet.")
				return nil
			}
			for _, d := range docs {
				fmt.Printf("%-40s  %-20s  %s\n", d.Name, d.Department, d.Semester)
			}
			return nil
		},
	}
}

func newAdminUploadCmd() *cobra.Command {
	var (
		department string
		semester   string
	)
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a document into the corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Rejected before any request is issued.
			if department == "" || semester == "" {
				return fmt.Errorf("--department and --semester are required")
			}

			a, err := adminApp()
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.client.Upload(cmd.Context(), args[0], department, semester)
			if err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}
			fmt.Println(res.Message)
			if res.Summary != "" {
				fmt.Println("\nSummary:")
				fmt.Println(res.Summary)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&department, "department", "d", "", "department the document belongs to")
	cmd.Flags().StringVarP(&semester, "semester", "s", "", "semester the document belongs to")
	return cmd
}

func newAdminRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <filename>",
		Short: "Delete a document from the corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := adminApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.client.DeleteDocument(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s.\n", args[0])
			return nil
		},
	}
}

func newAdminLogsCmd() *cobra.Command {
	var (
		level string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent client activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := adminApp()
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := logging.ReadEntries(a.cfg.DefaultLogPath(), strings.ToUpper(level), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No log entries.")
				return nil
			}
			for _, e := range entries {
				fmt.Printf("%-26s %-5s %s\n", e.Timestamp, e.Level, e.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&level, "level", "", "filter by level (info, warn, error)")
	cmd.Flags().IntVar(&limit, "limit", 50, "max entries to show")
	return cmd
}
