package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kxddry/hr-rag/internal/tui"
)

func newChatCmd(s *session) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the HR assistant in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			docs, err := s.app.svc.Documents(cmd.Context())
			if err != nil {
				return err
			}
			summary := fmt.Sprintf("%d documents registered", len(docs))
			m := tui.New(cmd.Context(), s.app.svc, userID, uuid.NewString(), summary)
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "cli", "User id used for conversation memory")
	return cmd
}
