package client

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Session mirrors the server's session status.
type Session struct {
	ID              string   `json:"id"`
	State           string   `json:"state"`
	Ready           bool     `json:"ready"`
	Locator         string   `json:"locator,omitempty"`
	VideoID         string   `json:"video_id,omitempty"`
	Title           string   `json:"title,omitempty"`
	Thumbnail       string   `json:"thumbnail,omitempty"`
	Language        string   `json:"language,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
	Passages        int      `json:"passages"`
	IngestedAt      *string  `json:"ingested_at,omitempty"`
	LastError       string   `json:"last_error,omitempty"`
	HistoryLen      int      `json:"history_len"`
}

// SessionCmd creates the session command group.
func SessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage chat sessions",
		Long:  "Create, inspect, reset and delete chat sessions. The last created or selected session is remembered.",
	}

	cmd.AddCommand(sessionCreateCmd())
	cmd.AddCommand(sessionStatusCmd())
	cmd.AddCommand(sessionUseCmd())
	cmd.AddCommand(sessionResetCmd())
	cmd.AddCommand(sessionDeleteCmd())

	return cmd
}

func sessionCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a new session and select it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClient(cmd)
			if err != nil {
				return err
			}

			session, err := api.CreateSession(cmd.Context())
			if err != nil {
				return err
			}

			if err := UpdateGlobalConfig(func(c *GlobalConfig) { c.SessionID = session.ID }); err != nil {
				return err
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			return printSession(cmd.OutOrStdout(), session, outputJSON)
		},
	}
}

func sessionStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Show the selected session",
		Aliases: []string{"show"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, id, err := sessionClient(cmd)
			if err != nil {
				return err
			}

			session, err := api.GetSession(cmd.Context(), id)
			if err != nil {
				return err
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			return printSession(cmd.OutOrStdout(), session, outputJSON)
		},
	}
}

func sessionUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <session_id>",
		Short: "Select an existing session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := UpdateGlobalConfig(func(c *GlobalConfig) { c.SessionID = args[0] }); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Using session %s\n", args[0])
			return nil
		},
	}
}

func sessionResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Drop the session's video, index and history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, id, err := sessionClient(cmd)
			if err != nil {
				return err
			}

			if _, err := api.ResetSession(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session %s reset\n", id)
			return nil
		},
	}
}

func sessionDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete",
		Short:   "Delete the session",
		Aliases: []string{"rm"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, id, err := sessionClient(cmd)
			if err != nil {
				return err
			}

			if err := api.DeleteSession(cmd.Context(), id); err != nil {
				return err
			}

			err = UpdateGlobalConfig(func(c *GlobalConfig) {
				if c.SessionID == id {
					c.SessionID = ""
				}
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Session %s deleted\n", id)
			return nil
		},
	}
}

// sessionClient returns an API client and the session the command targets.
func sessionClient(cmd *cobra.Command) (*APIClient, string, error) {
	flagSession, _ := cmd.Flags().GetString("session")
	id, err := ResolveSessionID(flagSession)
	if err != nil {
		return nil, "", err
	}
	api, err := NewAPIClient(cmd)
	if err != nil {
		return nil, "", err
	}
	return api, id, nil
}

func printSession(w io.Writer, s *Session, outputJSON bool) error {
	if outputJSON {
		output, _ := json.MarshalIndent(s, "", "  ")
		fmt.Fprintln(w, string(output))
		return nil
	}

	fmt.Fprintf(w, "Session: %s\n", s.ID)
	fmt.Fprintf(w, "State: %s\n", s.State)
	if s.Title != "" {
		fmt.Fprintf(w, "Title: %s\n", s.Title)
	}
	if s.Locator != "" {
		fmt.Fprintf(w, "Source: %s\n", s.Locator)
	}
	if s.Thumbnail != "" {
		fmt.Fprintf(w, "Thumbnail: %s\n", s.Thumbnail)
	}
	if s.Language != "" {
		fmt.Fprintf(w, "Language: %s\n", s.Language)
	}
	if s.DurationSeconds != nil {
		fmt.Fprintf(w, "Duration: %s\n", formatDuration(*s.DurationSeconds))
	}
	if s.Ready {
		fmt.Fprintf(w, "Passages: %d\n", s.Passages)
	}
	if s.IngestedAt != nil {
		fmt.Fprintf(w, "Ingested: %s\n", *s.IngestedAt)
	}
	if s.LastError != "" {
		fmt.Fprintf(w, "Last error: %s\n", s.LastError)
	}
	return nil
}

func formatDuration(seconds float64) string {
	total := int(seconds + 0.5)
	h, m, s := total/3600, total%3600/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
