package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func repairCommand(opts *options) *cobra.Command {
	var collectionID, rulesFile string

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Apply ledger repair rules to destination collections",
		Long: `Apply an ordered list of repair rules to the ledger of every upload folder
of one collection, or of every collection bucket. Without a rule file the
historical species repairs are applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rs, err := rules(rulesFile)
			if err != nil {
				return err
			}

			s, err := open(cmd, opts)
			if err != nil {
				return err
			}
			defer s.close()

			for _, r := range rs {
				s.logger().Debug("repair rule", "rule", r.String())
			}

			rep, err := s.service.Repair(cmd.Context(), collectionID, rs)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "collections: %d\n", rep.Collections)
			fmt.Fprintf(w, "uploads:     %d\n", rep.Uploads)
			fmt.Fprintf(w, "modified:    %d\n", rep.Modified)
			for _, f := range rep.Failed {
				fmt.Fprintf(w, "failed:      %s\n", f)
			}
			if len(rep.Failed) > 0 {
				return fmt.Errorf("%d repairs failed", len(rep.Failed))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&collectionID, "collection", "", "Collection id (default all collections)")
	cmd.Flags().StringVar(&rulesFile, "rules", "", "TOML rule file")
	return cmd
}
