// Package sharing implements the cross-product sharing-aggregation engine
// described in spec.md §4.5: it scans the content index for every hash
// value seen more than once and, for each such group, updates a pairwise
// sharing table with duplicate-file counts and byte-savings totals.
package sharing

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/etnz/debdedup/store"
)

// Engine rebuilds Sharing, Duplicate, and Issue from Content/Hash.
type Engine struct {
	Store *store.Store
	Log   *logrus.Logger
}

func (e *Engine) logger() *logrus.Logger {
	if e.Log != nil {
		return e.Log
	}
	return logrus.New()
}

// hashRow is one (package, content, filename, size, function) tuple
// sharing a single hash value, loaded via the join in Rebuild.
type hashRow struct {
	PkgID      uint
	ContentID  uint
	Filename   string
	Size       int64
	FunctionID uint
}

// fileEntry is one file's contribution to a (package, function) bucket.
type fileEntry struct {
	Size     int64
	Filename string
}

// Rebuild truncates Sharing, Duplicate, and Issue, then recomputes them
// from scratch by scanning every hash value shared by two or more Content
// rows.
func (e *Engine) Rebuild() error {
	log := e.logger()
	db := e.Store.DB()

	if err := db.Exec("DELETE FROM sharings").Error; err != nil {
		return fmt.Errorf("sharing: truncating sharing: %w", err)
	}
	if err := db.Exec("DELETE FROM duplicates").Error; err != nil {
		return fmt.Errorf("sharing: truncating duplicate: %w", err)
	}
	if err := db.Exec("DELETE FROM issues").Error; err != nil {
		return fmt.Errorf("sharing: truncating issue: %w", err)
	}

	var hexValues []string
	if err := db.Model(&store.Hash{}).
		Select("hex").
		Group("hex").
		Having("count(*) > 1").
		Pluck("hex", &hexValues).Error; err != nil {
		return fmt.Errorf("sharing: selecting duplicated hashes: %w", err)
	}

	for _, hex := range hexValues {
		var rows []hashRow
		if err := db.Table("hashes").
			Select("contents.package_id as pkg_id, contents.id as content_id, contents.filename as filename, contents.size as size, hashes.function_id as function_id").
			Joins("JOIN contents ON hashes.content_id = contents.id").
			Where("hashes.hex = ?", hex).
			Scan(&rows).Error; err != nil {
			return fmt.Errorf("sharing: loading rows for hash %s: %w", hex, err)
		}

		log.WithField("hash", hex).WithField("entries", len(rows)).Debug("processing hash group")

		if err := markDuplicates(db, rows); err != nil {
			return err
		}

		pkgdict := buildPkgDict(rows)
		if err := updateSharing(db, pkgdict); err != nil {
			return err
		}
	}

	return deriveIssues(db)
}

// markDuplicates inserts one idempotent Duplicate row per distinct
// content_id in rows.
func markDuplicates(db *gorm.DB, rows []hashRow) error {
	seen := make(map[uint]bool, len(rows))
	var dups []store.Duplicate
	for _, r := range rows {
		if seen[r.ContentID] {
			continue
		}
		seen[r.ContentID] = true
		dups = append(dups, store.Duplicate{ContentID: r.ContentID})
	}
	if len(dups) == 0 {
		return nil
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&dups).Error; err != nil {
		return fmt.Errorf("sharing: marking duplicates: %w", err)
	}
	return nil
}

// buildPkgDict groups rows into pkgdict[pkg][fn] = [(size, filename)...],
// mirroring update_sharing.py's compute_pkgdict.
func buildPkgDict(rows []hashRow) map[uint]map[uint][]fileEntry {
	out := make(map[uint]map[uint][]fileEntry)
	for _, r := range rows {
		funcs, ok := out[r.PkgID]
		if !ok {
			funcs = make(map[uint][]fileEntry)
			out[r.PkgID] = funcs
		}
		funcs[r.FunctionID] = append(funcs[r.FunctionID], fileEntry{Size: r.Size, Filename: r.Filename})
	}
	return out
}

// updateSharing walks every ordered (pkg1, pkg2) pair in pkgdict and
// upserts the Sharing deltas, applying the intra-package correction when
// pkg1 == pkg2 (spec.md §4.5, property 7).
func updateSharing(db *gorm.DB, pkgdict map[uint]map[uint][]fileEntry) error {
	for pkg1, funcs1 := range pkgdict {
		for fn1, files := range funcs1 {
			n := int64(len(files))
			var size int64
			min := files[0].Size
			for _, f := range files {
				size += f.Size
				if f.Size < min {
					min = f.Size
				}
			}

			for pkg2, funcs2 := range pkgdict {
				numFiles, totalSize := n, size
				if pkg1 == pkg2 {
					numFiles = n - 1
					totalSize = size - min
					if numFiles == 0 {
						continue
					}
				}
				for fn2 := range funcs2 {
					if err := upsertSharing(db, pkg1, pkg2, fn1, fn2, numFiles, totalSize); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// upsertSharing applies UPDATE ... WHERE key, falling back to INSERT if no
// row was affected, per spec.md §4.5's upsert semantics.
func upsertSharing(db *gorm.DB, pkg1, pkg2, fn1, fn2 uint, files, bytes int64) error {
	res := db.Model(&store.Sharing{}).
		Where("pkg1_id = ? AND pkg2_id = ? AND fn1_id = ? AND fn2_id = ?", pkg1, pkg2, fn1, fn2).
		Updates(map[string]interface{}{
			"files": gorm.Expr("files + ?", files),
			"bytes": gorm.Expr("bytes + ?", bytes),
		})
	if res.Error != nil {
		return fmt.Errorf("sharing: updating sharing row: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	row := store.Sharing{Pkg1ID: pkg1, Pkg2ID: pkg2, Fn1ID: fn1, Fn2ID: fn2, Files: files, Bytes: bytes}
	if err := db.Create(&row).Error; err != nil {
		return fmt.Errorf("sharing: inserting sharing row: %w", err)
	}
	return nil
}

// deriveIssues inserts the two heuristic quality notes from spec.md §4.5.
func deriveIssues(db *gorm.DB) error {
	var gzipFn, imageFn store.HashFunction
	if err := db.Where("name = ?", "gzip_sha512").First(&gzipFn).Error; err != nil {
		return fmt.Errorf("sharing: looking up gzip_sha512 function: %w", err)
	}
	if err := db.Where("name = ?", "image_sha512").First(&imageFn).Error; err != nil {
		return fmt.Errorf("sharing: looking up image_sha512 function: %w", err)
	}

	var noGzip []store.Content
	if err := db.Where("filename LIKE ?", "%.gz").
		Where("id NOT IN (SELECT content_id FROM hashes WHERE function_id = ?)", gzipFn.ID).
		Find(&noGzip).Error; err != nil {
		return fmt.Errorf("sharing: finding non-gzip .gz files: %w", err)
	}
	for _, c := range noGzip {
		issue := store.Issue{ContentID: c.ID, Text: "file named something.gz is not a valid gzip file"}
		if err := db.Create(&issue).Error; err != nil {
			return fmt.Errorf("sharing: inserting issue: %w", err)
		}
	}

	var imagesNotPNG []store.Content
	// SQLite's LIKE is case-insensitive for ASCII by default, matching
	// spec.md §4.5's "lowercase filename does not end in .png" check.
	if err := db.Where("id IN (SELECT content_id FROM hashes WHERE function_id = ?)", imageFn.ID).
		Where("filename NOT LIKE ?", "%.png").
		Find(&imagesNotPNG).Error; err != nil {
		return fmt.Errorf("sharing: finding non-png images: %w", err)
	}
	for _, c := range imagesNotPNG {
		issue := store.Issue{ContentID: c.ID, Text: "png image not named something.png"}
		if err := db.Create(&issue).Error; err != nil {
			return fmt.Errorf("sharing: inserting issue: %w", err)
		}
	}
	return nil
}
