// Command debdedup indexes .deb package contents for duplication, per
// spec.md §2: autoimport scans sources and applies new packages,
// importpkg runs the importer alone against stdin/stdout, and
// update-sharing recomputes the pairwise sharing aggregation.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	log := logrus.New()

	root := &cobra.Command{
		Use:   "debdedup",
		Short: "Index Debian package contents for cross-package duplication",
	}

	root.AddCommand(newAutoimportCmd(log))
	root.AddCommand(newImportpkgCmd(log))
	root.AddCommand(newUpdateSharingCmd(log))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
