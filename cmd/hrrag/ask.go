package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kxddry/hr-rag/internal/domain"
	"github.com/kxddry/hr-rag/internal/service"
)

type askOptions struct {
	stream         bool
	userID         string
	conversationID string
	k              int
}

func newAskCmd(s *session) *cobra.Command {
	var opts askOptions
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := service.Request{
				Question:       strings.Join(args, " "),
				UserID:         opts.userID,
				ConversationID: opts.conversationID,
				K:              opts.k,
			}
			out := cmd.OutOrStdout()
			if !opts.stream {
				ans, err := s.app.svc.Answer(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, ans.Response)
				printReferences(out, ans.References)
				return nil
			}
			return printStream(out, s.app.svc.Stream(cmd.Context(), req))
		},
	}
	cmd.Flags().BoolVar(&opts.stream, "stream", false, "Print the answer as it is generated")
	cmd.Flags().StringVar(&opts.userID, "user", "", "User id used for conversation memory")
	cmd.Flags().StringVar(&opts.conversationID, "conversation", "", "Conversation id used for conversation memory")
	cmd.Flags().IntVar(&opts.k, "k", 0, "Hits to retrieve per document (default from config)")
	return cmd
}

func printStream(out io.Writer, events <-chan service.Event) error {
	for e := range events {
		switch e := e.(type) {
		case service.DeltaEvent:
			fmt.Fprint(out, e.Text)
		case service.FinalEvent:
			fmt.Fprintln(out)
			printReferences(out, e.References)
		case service.CancelledEvent:
			fmt.Fprintln(out)
			return service.ErrCancelled
		}
	}
	return nil
}

func printReferences(out io.Writer, refs []domain.Reference) {
	for _, r := range refs {
		fmt.Fprintf(out, "\nSource: %s, %s\n%s\n", r.FileName, r.Section, r.FileURL)
	}
}
