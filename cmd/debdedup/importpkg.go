package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/etnz/debdedup/importer"
)

func newImportpkgCmd(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "importpkg",
		Short: "Run the importer alone: read a .deb from stdin, write the import record stream to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return importer.Import(os.Stdin, os.Stdout, logrus.NewEntry(log))
		},
	}
}
