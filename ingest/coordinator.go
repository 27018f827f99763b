package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/etnz/debdedup/importer"
	"github.com/etnz/debdedup/store"
	"github.com/etnz/debdedup/versioncompare"
)

// Coordinator runs the importer across every resolved candidate with
// bounded parallelism, then applies each completed import to the store
// one package at a time, per spec.md §4.4.
type Coordinator struct {
	Store    *store.Store
	Comparer versioncompare.Comparer

	// ScratchDir holds the newline-delimited-JSON artifact each worker
	// writes its import record stream to. The worker reads the artifact
	// back, deletes it, and hands the decoded records to the single applier
	// goroutine; the applier never sees the artifact itself. Defaults to
	// os.TempDir() if empty.
	ScratchDir string

	// Workers bounds concurrent import goroutines. Defaults to
	// runtime.NumCPU() if zero or negative.
	Workers int

	// New, when true, skips candidates whose name is already stored at an
	// equal-or-newer version (spec.md §4.4's --new flag).
	New bool

	// Prune, when true, removes every stored package absent from the
	// resolved candidate set after all imports are applied.
	Prune bool

	Client *http.Client
	Log    *logrus.Logger
}

func (c *Coordinator) logger() *logrus.Logger {
	if c.Log != nil {
		return c.Log
	}
	return logrus.New()
}

func (c *Coordinator) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

func (c *Coordinator) scratchDir() string {
	if c.ScratchDir != "" {
		return c.ScratchDir
	}
	return os.TempDir()
}

func (c *Coordinator) client() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return http.DefaultClient
}

// Run resolves every candidate across sources, imports and applies each
// one (skipping up-to-date packages when New is set), and finally prunes
// packages absent from the resolved set when Prune is set.
func (c *Coordinator) Run(ctx context.Context, sources []PackageSource) error {
	log := c.logger()

	winners, err := ResolveSources(sources, c.Comparer)
	if err != nil {
		return fmt.Errorf("ingest: resolving sources: %w", err)
	}

	var toImport []Candidate
	for _, cand := range winners {
		if c.New {
			stored, found, err := c.Store.LookupVersion(cand.Name)
			if err != nil {
				return fmt.Errorf("ingest: looking up %s: %w", cand.Name, err)
			}
			if found && c.Comparer.Compare(cand.Version, stored) <= 0 {
				log.WithField("package", cand.Name).Debug("already up to date, skipping")
				continue
			}
		}
		toImport = append(toImport, cand)
	}

	sem := semaphore.NewWeighted(int64(c.workers()))
	group, gctx := errgroup.WithContext(ctx)

	type completed struct {
		pkg   store.PackageRecord
		files []store.FileRecord
		ok    bool
	}
	results := make(chan completed, len(toImport))

	for _, cand := range toImport {
		cand := cand
		if err := sem.Acquire(gctx, 1); err != nil {
			return fmt.Errorf("ingest: acquiring worker slot: %w", err)
		}
		group.Go(func() error {
			defer sem.Release(1)
			pkg, files, err := c.importOne(gctx, cand)
			if err != nil {
				log.WithError(err).WithField("package", cand.Name).Warn("import failed, skipping package")
				results <- completed{}
				return nil
			}
			results <- completed{pkg: pkg, files: files, ok: true}
			return nil
		})
	}

	applyErr := make(chan error, 1)
	go func() {
		for i := 0; i < len(toImport); i++ {
			res := <-results
			if !res.ok {
				continue
			}
			if err := c.Store.ApplyPackage(res.pkg, res.files); err != nil {
				log.WithError(err).WithField("package", res.pkg.Name).Warn("apply failed, skipping package")
				continue
			}
			log.WithField("package", res.pkg.Name).WithField("version", res.pkg.Version).Info("applied package")
		}
		applyErr <- nil
	}()

	if err := group.Wait(); err != nil {
		return err
	}
	close(results)
	if err := <-applyErr; err != nil {
		return err
	}

	if c.Prune {
		keep := make(map[string]bool, len(winners))
		for name := range winners {
			keep[name] = true
		}
		removed, err := c.Store.PrunePackages(keep)
		if err != nil {
			return fmt.Errorf("ingest: pruning: %w", err)
		}
		for _, name := range removed {
			log.WithField("package", name).Info("pruned package")
		}
	}

	return nil
}

// importOne fetches one candidate's bytes, runs the importer against a
// scratch artifact file, and decodes that artifact back into the plain
// store.PackageRecord/store.FileRecord shapes ApplyPackage expects.
func (c *Coordinator) importOne(ctx context.Context, cand Candidate) (store.PackageRecord, []store.FileRecord, error) {
	body, err := fetchCandidate(ctx, cand, c.client())
	if err != nil {
		return store.PackageRecord{}, nil, err
	}
	defer body.Close()

	artifactPath := filepath.Join(c.scratchDir(), uuid.NewString()+".jsonl")
	artifact, err := os.Create(artifactPath)
	if err != nil {
		return store.PackageRecord{}, nil, fmt.Errorf("creating scratch artifact: %w", err)
	}
	defer os.Remove(artifactPath)
	defer artifact.Close()

	log := c.logger().WithField("package", cand.Name)
	if err := importer.Import(body, artifact, log); err != nil {
		return store.PackageRecord{}, nil, fmt.Errorf("running importer: %w", err)
	}

	if _, err := artifact.Seek(0, io.SeekStart); err != nil {
		return store.PackageRecord{}, nil, fmt.Errorf("rewinding scratch artifact: %w", err)
	}
	return decodeArtifact(artifact)
}

// decodeArtifact consumes one importer record stream end to end, turning
// it into the plain-data shapes the store package accepts.
func decodeArtifact(r io.Reader) (store.PackageRecord, []store.FileRecord, error) {
	reader := importer.NewReader(r)
	var pkg store.PackageRecord
	var files []store.FileRecord
	haveHeader := false

	for {
		rec, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return store.PackageRecord{}, nil, err
		}
		switch rec.Kind {
		case importer.KindHeader:
			pkg = store.PackageRecord{
				Name:         rec.Header.Package,
				Version:      rec.Header.Version,
				Architecture: rec.Header.Architecture,
				SourceName:   rec.Header.Source,
				Depends:      rec.Header.Depends,
			}
			haveHeader = true
		case importer.KindFile:
			files = append(files, store.FileRecord{
				Name:   rec.File.Name,
				Size:   rec.File.Size,
				Hashes: rec.File.Hashes,
			})
		case importer.KindCommit:
			// stream complete
		}
	}

	if !haveHeader {
		return store.PackageRecord{}, nil, fmt.Errorf("ingest: import artifact had no header record")
	}
	return pkg, files, nil
}

// fetchCandidate opens cand.Filename, dispatching to HTTP or the local
// filesystem based on its scheme. Candidate.Filename already fully
// qualifies the fetch location, so one helper covers both PackageSource
// implementations.
func fetchCandidate(ctx context.Context, cand Candidate, client *http.Client) (io.ReadCloser, error) {
	if strings.HasPrefix(cand.Filename, "http://") || strings.HasPrefix(cand.Filename, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, cand.Filename, nil)
		if err != nil {
			return nil, fmt.Errorf("building request for %s: %w", cand.Filename, err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", cand.Filename, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetching %s: status %d", cand.Filename, resp.StatusCode)
		}
		return resp.Body, nil
	}

	f, err := os.Open(cand.Filename)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", cand.Filename, err)
	}
	return f, nil
}
