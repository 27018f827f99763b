package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/etnz/debdedup/sharing"
	"github.com/etnz/debdedup/store"
)

func newUpdateSharingCmd(log *logrus.Logger) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "update-sharing",
		Short: "Recompute the pairwise sharing aggregation from the current content index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(dbPath)
			if err != nil {
				return err
			}
			engine := &sharing.Engine{Store: st, Log: log}
			return engine.Rebuild()
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "debdedup.sqlite", "path to the sqlite database")
	return cmd
}
