package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JaimeStill/camxfer/internal/journal"
)

func runsCommand(opts *options) *cobra.Command {
	var (
		outcomes bool
		state    string
		filter   journal.Filter
		within   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List journaled transfer runs or show one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd, opts)
			if err != nil {
				return err
			}
			defer s.close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			if len(args) == 0 {
				if within > 0 {
					filter.Since = time.Now().Add(-within)
				}
				runs, err := s.infra.Journal.Runs(cmd.Context(), filter)
				if err != nil {
					return err
				}
				return enc.Encode(runs)
			}

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run id: %w", err)
			}

			view := struct {
				Run      journal.Run     `json:"run"`
				Outcomes []journal.Entry `json:"outcomes,omitempty"`
			}{}

			if view.Run, err = s.infra.Journal.Run(cmd.Context(), id); err != nil {
				return err
			}
			if outcomes || state != "" {
				if view.Outcomes, err = s.infra.Journal.Outcomes(cmd.Context(), id, state); err != nil {
					return err
				}
			}
			return enc.Encode(view)
		},
	}

	cmd.Flags().StringVar(&filter.Collection, "collection", "", "Only runs of this collection")
	cmd.Flags().DurationVar(&within, "within", 0, "Only runs started within this duration")
	cmd.Flags().IntVar(&filter.Limit, "limit", 20, "Maximum number of runs listed")
	cmd.Flags().BoolVar(&outcomes, "outcomes", false, "Include per-asset outcomes")
	cmd.Flags().StringVar(&state, "state", "", "Only outcomes in this state (e.g. transfer_failed)")
	return cmd
}
