package ingest

import "github.com/etnz/debdedup/versioncompare"

// ResolveSources flattens every source's candidates into one
// winner-per-package-name map, keeping whichever candidate compares
// highest under cmp. It touches no store and performs no I/O beyond
// Scan, so it can be tested independently of the coordinator and the
// store, mirroring autoimport.py's in-memory pkgs dict.
func ResolveSources(sources []PackageSource, cmp versioncompare.Comparer) (map[string]Candidate, error) {
	winners := make(map[string]Candidate)
	for _, src := range sources {
		candidates, err := src.Scan()
		if err != nil {
			return nil, err
		}
		for _, c := range candidates {
			current, ok := winners[c.Name]
			if !ok || cmp.Compare(c.Version, current.Version) > 0 {
				winners[c.Name] = c
			}
		}
	}
	return winners, nil
}
