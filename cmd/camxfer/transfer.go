package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/camxfer/internal/collection"
	"github.com/JaimeStill/camxfer/internal/manifest"
	"github.com/JaimeStill/camxfer/internal/repair"
)

func transferCommand(opts *options) *cobra.Command {
	var archives, correct bool

	cmd := &cobra.Command{
		Use:   "transfer <manifest.json> [collection-id]",
		Short: "Transfer a collection described by a source manifest",
		Long: `Transfer every upload of a source manifest into a destination collection.
Without a collection id a new collection is created. Images already recorded
or already on the destination are not uploaded again.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manifest.Load(args[0])
			if err != nil {
				return err
			}

			var destID string
			if len(args) == 2 {
				destID = args[1]
			}

			s, err := open(cmd, opts)
			if err != nil {
				return err
			}
			defer s.close()

			if cmd.Flags().Changed("archives") {
				s.cfg.Transfer.Archives = archives
			}
			if cmd.Flags().Changed("correct-species") {
				s.cfg.Transfer.CorrectSpecies = correct
			}
			if s.cfg.Transfer.RulesFile != "" {
				rs, err := repair.LoadRules(s.cfg.Transfer.RulesFile)
				if err != nil {
					return err
				}
				s.service.WithRules(rs)
			}

			rep, err := s.service.Transfer(cmd.Context(), m, destID)
			if err != nil {
				return err
			}

			printReport(cmd.OutOrStdout(), rep)
			if len(rep.Failed) > 0 {
				return fmt.Errorf("%d of %d uploads failed", len(rep.Failed), rep.Uploads)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&archives, "archives", false, "Run the archive fallback after each upload")
	cmd.Flags().BoolVar(&correct, "correct-species", false, "Correct species of already recorded assets")
	return cmd
}

func recoverCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "recover <manifest.json> <collection-id>",
		Short: "Recover ledger records from upload archives",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manifest.Load(args[0])
			if err != nil {
				return err
			}

			s, err := open(cmd, opts)
			if err != nil {
				return err
			}
			defer s.close()

			rep, err := s.service.Recover(cmd.Context(), m, args[1])
			if err != nil {
				return err
			}

			printReport(cmd.OutOrStdout(), rep)
			if len(rep.Failed) > 0 {
				return fmt.Errorf("%d of %d uploads failed", len(rep.Failed), rep.Uploads)
			}
			return nil
		},
	}
}

func printReport(w io.Writer, rep collection.Report) {
	fmt.Fprintf(w, "collection %s (source %s) in %s\n", rep.CollectionID, rep.SourceID, rep.Bucket)
	fmt.Fprintf(w, "  run:              %s\n", rep.RunID)
	fmt.Fprintf(w, "  uploads:          %d (%d ledgers stored)\n", rep.Uploads, rep.Stored)
	fmt.Fprintf(w, "  assets:           %d\n", rep.Counts.Total)
	fmt.Fprintf(w, "  transferred:      %d\n", rep.Counts.Transferred)
	fmt.Fprintf(w, "  on destination:   %d\n", rep.Counts.OnDestination)
	fmt.Fprintf(w, "  already recorded: %d\n", rep.Counts.AlreadyRecorded)
	fmt.Fprintf(w, "  failed:           %d\n", rep.Counts.Failed)
	if rep.Recovery.Archives > 0 {
		fmt.Fprintf(w, "  archives:         %d (%d failed, %d recorded, %d uploaded, %d without metadata)\n",
			rep.Recovery.Archives, rep.Recovery.Failed, rep.Recovery.Recorded, rep.Recovery.Uploaded, rep.Recovery.Missing)
	}
	for _, u := range rep.Failed {
		fmt.Fprintf(w, "  upload failed:    %s\n", u)
	}
}
