package main

import (
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/etnz/debdedup/ingest"
	"github.com/etnz/debdedup/store"
	"github.com/etnz/debdedup/versioncompare"
)

func newAutoimportCmd(log *logrus.Logger) *cobra.Command {
	var (
		dbPath     string
		scratchDir string
		workers    int
		onlyNew    bool
		prune      bool
	)

	cmd := &cobra.Command{
		Use:   "autoimport [--new] [--prune] <source>...",
		Short: "Resolve candidates across sources and apply new packages to the store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(dbPath)
			if err != nil {
				return err
			}

			sources := make([]ingest.PackageSource, 0, len(args))
			for _, arg := range args {
				sources = append(sources, resolveSource(arg))
			}

			coord := &ingest.Coordinator{
				Store:      st,
				Comparer:   versioncompare.Lexicographic{},
				ScratchDir: scratchDir,
				Workers:    workers,
				New:        onlyNew,
				Prune:      prune,
				Log:        log,
			}
			return coord.Run(cmd.Context(), sources)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "debdedup.sqlite", "path to the sqlite database")
	cmd.Flags().StringVar(&scratchDir, "scratch", "", "directory for per-package import artifacts (default: OS temp dir)")
	cmd.Flags().IntVar(&workers, "workers", 0, "max concurrent imports (default: number of CPUs)")
	cmd.Flags().BoolVar(&onlyNew, "new", false, "skip packages already stored at an equal-or-newer version")
	cmd.Flags().BoolVar(&prune, "prune", false, "remove stored packages absent from the resolved source set")

	return cmd
}

// resolveSource treats an http(s):// argument as a mirror base URL and
// anything else as a local directory of .deb files.
func resolveSource(arg string) ingest.PackageSource {
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return ingest.HTTPMirrorSource{BaseURL: arg}
	}
	return ingest.DirectorySource{Dir: arg}
}
