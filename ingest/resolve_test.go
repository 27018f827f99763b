package ingest

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/etnz/debdedup/versioncompare"
)

type fakeSource struct {
	candidates []Candidate
	err        error
}

func (f fakeSource) Scan() ([]Candidate, error) { return f.candidates, f.err }

func TestResolveSourcesPicksHighestVersionAcrossSources(t *testing.T) {
	sources := []PackageSource{
		fakeSource{candidates: []Candidate{
			{Name: "hello", Version: "1.0", Filename: "/a/hello_1.0_amd64.deb"},
			{Name: "other", Version: "2.0", Filename: "/a/other_2.0_amd64.deb"},
		}},
		fakeSource{candidates: []Candidate{
			{Name: "hello", Version: "2.0", Filename: "/b/hello_2.0_amd64.deb"},
		}},
	}

	winners, err := ResolveSources(sources, versioncompare.Lexicographic{})
	require.NoError(t, err)
	require.Len(t, winners, 2)
	require.Equal(t, "/b/hello_2.0_amd64.deb", winners["hello"].Filename)
	require.Equal(t, "/a/other_2.0_amd64.deb", winners["other"].Filename)
}

func TestResolveSourcesPropagatesScanError(t *testing.T) {
	boom := fakeSource{err: require.AnError}
	_, err := ResolveSources([]PackageSource{boom}, versioncompare.Lexicographic{})
	require.ErrorIs(t, err, require.AnError)
}

func TestDirectorySourceParsesNameVersionArch(t *testing.T) {
	dir := t.TempDir()
	writeEmptyFile(t, dir+"/hello_1.0_amd64.deb")
	writeEmptyFile(t, dir+"/not-a-deb.txt")
	writeEmptyFile(t, dir+"/malformed.deb")

	src := DirectorySource{Dir: dir}
	candidates, err := src.Scan()
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "hello", candidates[0].Name)
	require.Equal(t, "1.0", candidates[0].Version)
}

func writeEmptyFile(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}
