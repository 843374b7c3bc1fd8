package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ChatRequest represents the chat API request.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse represents the chat API response.
type ChatResponse struct {
	Response  string   `json:"response"`
	SessionID string   `json:"session_id"`
	Sources   []string `json:"sources"`
}

// ChatCmd creates the chat command.
func ChatCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Ask the assistant a question",
		Long:  "Sends a message to the assistant and prints the grounded reply.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runChat(NewAPIClientWithCmd(cmd), args[0], sessionID, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session ID to continue a conversation")

	return cmd
}

func runChat(api *APIClient, message, sessionID string, outputJSON bool) error {
	req := ChatRequest{
		Message:   message,
		SessionID: sessionID,
	}

	data, err := api.Post("/chat", req)
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(data, &chatResp); err != nil {
		return fmt.Errorf("failed to parse chat response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(chatResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(chatResp.Response)
	if len(chatResp.Sources) > 0 {
		fmt.Printf("\nSources: %s\n", strings.Join(chatResp.Sources, ", "))
	}
	fmt.Printf("Session: %s\n", chatResp.SessionID)

	return nil
}
