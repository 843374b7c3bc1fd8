package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// StatusCmd creates the status command.
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check server health and index state",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := NewAPIClientWithCmd(cmd).Get("/health")
			if err != nil {
				return fmt.Errorf("server unreachable: %w", err)
			}

			var resp struct {
				Status string `json:"status"`
				Index  string `json:"index"`
			}
			if err := json.Unmarshal(data, &resp); err != nil {
				return fmt.Errorf("failed to parse health response: %w", err)
			}

			fmt.Printf("Server: %s\nIndex:  %s\n", resp.Status, resp.Index)
			return nil
		},
	}
}
