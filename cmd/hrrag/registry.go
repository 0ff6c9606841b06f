package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newRegistryCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect and edit the document registry",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List registered documents",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				entries, err := s.app.svc.Documents(cmd.Context())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "DOCUMENT ID\tNAME\tUPLOADED\tINDEX")
				for _, e := range entries {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.DocumentID, e.DisplayName, e.CreatedAt().Format("2006-01-02 15:04"), e.IndexKey)
				}
				return w.Flush()
			},
		},
		&cobra.Command{
			Use:   "remove <document-id>",
			Short: "Delete a document index and its registry entry",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return s.app.svc.Remove(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:   "clear-cache",
			Short: "Drop the cached registry listing",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				s.app.registry.Invalidate()
				return nil
			},
		},
	)
	return cmd
}
