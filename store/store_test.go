package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(":memory:")
	require.NoError(t, err)
	return st
}

func TestApplyPackageInsertsContentAndHashes(t *testing.T) {
	st := openTestStore(t)

	err := st.ApplyPackage(PackageRecord{
		Name: "hello", Version: "1.0", Architecture: "amd64", SourceName: "hello",
		Depends: []string{"libc6"},
	}, []FileRecord{
		{Name: "./a.txt", Size: 6, Hashes: map[string]string{"sha512": "abc123"}},
	})
	require.NoError(t, err)

	version, found, err := st.LookupVersion("hello")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "1.0", version)

	var content Content
	require.NoError(t, st.DB().Where("filename = ?", "./a.txt").First(&content).Error)
	require.EqualValues(t, 6, content.Size)

	var count int64
	require.NoError(t, st.DB().Model(&Hash{}).Where("content_id = ?", content.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestApplyPackageSupersedesOlderVersion(t *testing.T) {
	st := openTestStore(t)

	require.NoError(t, st.ApplyPackage(PackageRecord{Name: "hello", Version: "1.0", Architecture: "amd64", SourceName: "hello"},
		[]FileRecord{{Name: "./a.txt", Size: 6, Hashes: map[string]string{"sha512": "aaa"}}}))

	require.NoError(t, st.ApplyPackage(PackageRecord{Name: "hello", Version: "2.0", Architecture: "amd64", SourceName: "hello"},
		[]FileRecord{{Name: "./b.txt", Size: 7, Hashes: map[string]string{"sha512": "bbb"}}}))

	var packages []Package
	require.NoError(t, st.DB().Where("name = ?", "hello").Find(&packages).Error)
	require.Len(t, packages, 1)
	require.Equal(t, "2.0", packages[0].Version)

	var content Content
	err := st.DB().Where("filename = ?", "./a.txt").First(&content).Error
	require.Error(t, err, "content from the superseded version must be gone")
}

func TestPrunePackagesRemovesAbsentNames(t *testing.T) {
	st := openTestStore(t)

	require.NoError(t, st.ApplyPackage(PackageRecord{Name: "keep", Version: "1.0", Architecture: "amd64", SourceName: "keep"}, nil))
	require.NoError(t, st.ApplyPackage(PackageRecord{Name: "drop", Version: "1.0", Architecture: "amd64", SourceName: "drop"}, nil))

	removed, err := st.PrunePackages(map[string]bool{"keep": true})
	require.NoError(t, err)
	require.Equal(t, []string{"drop"}, removed)

	_, found, err := st.LookupVersion("drop")
	require.NoError(t, err)
	require.False(t, found)

	_, found, err = st.LookupVersion("keep")
	require.NoError(t, err)
	require.True(t, found)
}
