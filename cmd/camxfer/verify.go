package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func verifyCommand(opts *options) *cobra.Command {
	var collectionID string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check destination images against their ledgers",
		Long: `Check deployment coordinates and compare the species and location embedded
in every destination image with its ledger. Nothing is modified.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := open(cmd, opts)
			if err != nil {
				return err
			}
			defer s.close()

			findings, err := s.service.Verify(cmd.Context(), collectionID)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, f := range findings {
				fmt.Fprintln(w, f.String())
			}
			fmt.Fprintf(w, "%d findings\n", len(findings))
			return nil
		},
	}

	cmd.Flags().StringVar(&collectionID, "collection", "", "Collection id (default all collections)")
	return cmd
}
