package sharing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/etnz/debdedup/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	return st
}

func TestRebuildSymmetricSharing(t *testing.T) {
	st := openTestStore(t)

	require.NoError(t, st.ApplyPackage(store.PackageRecord{Name: "p", Version: "1", Architecture: "amd64", SourceName: "p"},
		[]store.FileRecord{{Name: "a.txt", Size: 10, Hashes: map[string]string{"sha512": "H"}}}))
	require.NoError(t, st.ApplyPackage(store.PackageRecord{Name: "q", Version: "1", Architecture: "amd64", SourceName: "q"},
		[]store.FileRecord{{Name: "b.txt", Size: 10, Hashes: map[string]string{"sha512": "H"}}}))

	engine := &Engine{Store: st}
	require.NoError(t, engine.Rebuild())

	var pID, qID uint
	require.NoError(t, st.DB().Model(&store.Package{}).Where("name = ?", "p").Pluck("id", &pID).Error)
	require.NoError(t, st.DB().Model(&store.Package{}).Where("name = ?", "q").Pluck("id", &qID).Error)

	var pq, qp store.Sharing
	require.NoError(t, st.DB().Where("pkg1_id = ? AND pkg2_id = ?", pID, qID).First(&pq).Error)
	require.NoError(t, st.DB().Where("pkg1_id = ? AND pkg2_id = ?", qID, pID).First(&qp).Error)

	require.EqualValues(t, 1, pq.Files)
	require.EqualValues(t, 10, pq.Bytes)
	require.Equal(t, pq.Files, qp.Files)
	require.Equal(t, pq.Bytes, qp.Bytes)
}

func TestRebuildIntraPackageCorrection(t *testing.T) {
	st := openTestStore(t)

	require.NoError(t, st.ApplyPackage(store.PackageRecord{Name: "p", Version: "1", Architecture: "amd64", SourceName: "p"},
		[]store.FileRecord{
			{Name: "a.txt", Size: 10, Hashes: map[string]string{"sha512": "H"}},
			{Name: "b.txt", Size: 20, Hashes: map[string]string{"sha512": "H"}},
			{Name: "c.txt", Size: 30, Hashes: map[string]string{"sha512": "H"}},
		}))

	engine := &Engine{Store: st}
	require.NoError(t, engine.Rebuild())

	var pID uint
	require.NoError(t, st.DB().Model(&store.Package{}).Where("name = ?", "p").Pluck("id", &pID).Error)

	var pp store.Sharing
	require.NoError(t, st.DB().Where("pkg1_id = ? AND pkg2_id = ?", pID, pID).First(&pp).Error)
	require.EqualValues(t, 2, pp.Files, "k=3 identical files -> k-1 savable copies")
	require.EqualValues(t, 50, pp.Bytes, "sum(10,20,30) - min(10) = 50")
}

func TestRebuildFlagsNonGzipDotGzFile(t *testing.T) {
	st := openTestStore(t)

	require.NoError(t, st.ApplyPackage(store.PackageRecord{Name: "p", Version: "1", Architecture: "amd64", SourceName: "p"},
		[]store.FileRecord{{Name: "notgzip.gz", Size: 3, Hashes: map[string]string{"sha512": "H"}}}))
	require.NoError(t, st.ApplyPackage(store.PackageRecord{Name: "q", Version: "1", Architecture: "amd64", SourceName: "q"},
		[]store.FileRecord{{Name: "other.gz", Size: 3, Hashes: map[string]string{"sha512": "H"}}}))

	engine := &Engine{Store: st}
	require.NoError(t, engine.Rebuild())

	var issues []store.Issue
	require.NoError(t, st.DB().Find(&issues).Error)
	require.Len(t, issues, 2)
	require.Equal(t, "file named something.gz is not a valid gzip file", issues[0].Text)
}
