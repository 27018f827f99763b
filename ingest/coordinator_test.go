package ingest

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/etnz/debdedup/store"
	"github.com/etnz/debdedup/versioncompare"
)

func buildTarGz(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	for name, content := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Size: int64(len(content)), Mode: 0644}))
		_, err := tw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())

	var gzBuf bytes.Buffer
	gw := gzip.NewWriter(&gzBuf)
	_, err := gw.Write(tarBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	return gzBuf.Bytes()
}

func writeArMember(buf *bytes.Buffer, name string, content []byte) {
	header := make([]byte, 60)
	copy(header, []byte(padRight(name, 16)))
	copy(header[16:], padRight("0", 12))
	copy(header[28:], padRight("0", 6))
	copy(header[34:], padRight("0", 6))
	copy(header[40:], padRight("100644", 8))
	copy(header[48:], padRight(itoa(len(content)), 10))
	copy(header[58:], "`\n")
	buf.Write(header)
	buf.Write(content)
	if len(content)%2 != 0 {
		buf.WriteByte('\n')
	}
}

func padRight(s string, n int) string {
	for len(s) < n {
		s += " "
	}
	return s
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func buildDeb(t *testing.T, control string, dataEntries map[string][]byte) []byte {
	t.Helper()
	controlGz := buildTarGz(t, map[string][]byte{"./control": []byte(control)})
	dataGz := buildTarGz(t, dataEntries)

	var buf bytes.Buffer
	buf.WriteString("!<arch>\n")
	writeArMember(&buf, "control.tar.gz", controlGz)
	writeArMember(&buf, "data.tar.gz", dataGz)
	return buf.Bytes()
}

func TestCoordinatorRunImportsAndApplies(t *testing.T) {
	dir := t.TempDir()
	debBytes := buildDeb(t,
		"Package: hello\nVersion: 1.0\nArchitecture: amd64\nDepends: libc6\n\n",
		map[string][]byte{"./a.txt": []byte("hi\n")})
	debPath := filepath.Join(dir, "hello_1.0_amd64.deb")
	require.NoError(t, os.WriteFile(debPath, debBytes, 0644))

	st, err := store.Open(":memory:")
	require.NoError(t, err)

	coord := &Coordinator{
		Store:      st,
		Comparer:   versioncompare.Lexicographic{},
		ScratchDir: t.TempDir(),
		Workers:    2,
	}

	require.NoError(t, coord.Run(context.Background(), []PackageSource{DirectorySource{Dir: dir}}))

	version, found, err := st.LookupVersion("hello")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "1.0", version)

	var content store.Content
	require.NoError(t, st.DB().Where("filename = ?", "./a.txt").First(&content).Error)
}

func TestCoordinatorNewSkipsUpToDatePackages(t *testing.T) {
	dir := t.TempDir()
	debBytes := buildDeb(t,
		"Package: hello\nVersion: 1.0\nArchitecture: amd64\n\n",
		map[string][]byte{"./a.txt": []byte("hi\n")})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello_1.0_amd64.deb"), debBytes, 0644))

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyPackage(store.PackageRecord{Name: "hello", Version: "1.0", Architecture: "amd64", SourceName: "hello"}, nil))

	coord := &Coordinator{
		Store:      st,
		Comparer:   versioncompare.Lexicographic{},
		ScratchDir: t.TempDir(),
		New:        true,
	}
	require.NoError(t, coord.Run(context.Background(), []PackageSource{DirectorySource{Dir: dir}}))

	var count int64
	require.NoError(t, st.DB().Model(&store.Content{}).Count(&count).Error)
	require.EqualValues(t, 0, count, "up-to-date package should not have been re-imported")
}

func TestCoordinatorPruneRemovesAbsentPackages(t *testing.T) {
	dir := t.TempDir()
	debBytes := buildDeb(t,
		"Package: keep\nVersion: 1.0\nArchitecture: amd64\n\n",
		map[string][]byte{"./a.txt": []byte("hi\n")})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep_1.0_amd64.deb"), debBytes, 0644))

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyPackage(store.PackageRecord{Name: "stale", Version: "1.0", Architecture: "amd64", SourceName: "stale"}, nil))

	coord := &Coordinator{
		Store:      st,
		Comparer:   versioncompare.Lexicographic{},
		ScratchDir: t.TempDir(),
		Prune:      true,
	}
	require.NoError(t, coord.Run(context.Background(), []PackageSource{DirectorySource{Dir: dir}}))

	_, found, err := st.LookupVersion("stale")
	require.NoError(t, err)
	require.False(t, found)

	_, found, err = st.LookupVersion("keep")
	require.NoError(t, err)
	require.True(t, found)
}
