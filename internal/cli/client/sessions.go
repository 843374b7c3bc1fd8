package client

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

// SessionListResponse represents the session listing API response.
type SessionListResponse struct {
	ActiveSessions []string `json:"active_sessions"`
	TotalSessions  int      `json:"total_sessions"`
}

// CreateSessionResponse represents the session creation API response.
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

// HistoryResponse represents the session history API response.
type HistoryResponse struct {
	SessionID string `json:"session_id"`
	History   []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"history"`
}

// SessionsCmd creates the sessions command group.
func SessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage conversation sessions",
	}

	cmd.AddCommand(sessionsListCmd())
	cmd.AddCommand(sessionsNewCmd())
	cmd.AddCommand(sessionsHistoryCmd())
	cmd.AddCommand(sessionsClearCmd())
	cmd.AddCommand(sessionsDeleteCmd())

	return cmd
}

func sessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			data, err := NewAPIClientWithCmd(cmd).Get("/sessions/")
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}

			var resp SessionListResponse
			if err := json.Unmarshal(data, &resp); err != nil {
				return fmt.Errorf("failed to parse session list: %w", err)
			}

			if outputJSON {
				output, _ := json.MarshalIndent(resp, "", "  ")
				fmt.Println(string(output))
				return nil
			}

			if resp.TotalSessions == 0 {
				fmt.Println("No active sessions.")
				return nil
			}
			for _, id := range resp.ActiveSessions {
				fmt.Println(id)
			}
			return nil
		},
	}
}

func sessionsNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Create a new session",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := NewAPIClientWithCmd(cmd).Post("/sessions/", nil)
			if err != nil {
				return fmt.Errorf("failed to create session: %w", err)
			}

			var resp CreateSessionResponse
			if err := json.Unmarshal(data, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			fmt.Println(resp.SessionID)
			return nil
		},
	}
}

func sessionsHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <session-id>",
		Short: "Show a session's conversation history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			data, err := NewAPIClientWithCmd(cmd).Get("/sessions/" + url.PathEscape(args[0]) + "/history")
			if err != nil {
				return fmt.Errorf("failed to fetch history: %w", err)
			}

			var resp HistoryResponse
			if err := json.Unmarshal(data, &resp); err != nil {
				return fmt.Errorf("failed to parse history: %w", err)
			}

			if outputJSON {
				output, _ := json.MarshalIndent(resp, "", "  ")
				fmt.Println(string(output))
				return nil
			}

			if len(resp.History) == 0 {
				fmt.Println("No messages yet.")
				return nil
			}
			for _, turn := range resp.History {
				fmt.Printf("[%s] %s\n", turn.Role, turn.Content)
			}
			return nil
		},
	}
}

func sessionsClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <session-id>",
		Short: "Clear a session's history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := NewAPIClientWithCmd(cmd).Post("/sessions/"+url.PathEscape(args[0])+"/clear", nil); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}
			fmt.Printf("Session %s cleared.\n", args[0])
			return nil
		},
	}
}

func sessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := NewAPIClientWithCmd(cmd).Delete("/sessions/" + url.PathEscape(args[0])); err != nil {
				return fmt.Errorf("failed to delete session: %w", err)
			}
			fmt.Printf("Session %s deleted.\n", args[0])
			return nil
		},
	}
}
