package store

import "time"

// Package mirrors spec.md §3's Package entity: the single currently-known
// version of one named package. It is replaced by delete-then-insert, never
// an in-place update (spec.md §9) — all child rows ride on ON DELETE
// CASCADE.
type Package struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"uniqueIndex;size:255;not null"`
	Version      string `gorm:"not null"`
	Architecture string `gorm:"not null"`
	SourceName   string `gorm:"not null"`
	CreatedAt    time.Time

	Dependencies []Dependency `gorm:"constraint:OnDelete:CASCADE;"`
	Contents     []Content    `gorm:"constraint:OnDelete:CASCADE;"`
}

// Dependency records one direct, single-alternative Depends: relation.
// Alternatives with more than one choice are discarded by the importer
// before they ever reach the store.
type Dependency struct {
	ID           uint   `gorm:"primaryKey"`
	PackageID    uint   `gorm:"index;not null"`
	RequiredName string `gorm:"not null"`
}

// HashFunction is one of the fixed three hash strategies the hash stack
// produces: sha512, gzip_sha512, image_sha512. Insertion order is
// irrelevant (spec.md §3).
type HashFunction struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;not null"`
}

// Content is one regular file extracted from a package's data archive.
type Content struct {
	ID        uint   `gorm:"primaryKey"`
	PackageID uint   `gorm:"index;not null"`
	Filename  string `gorm:"not null"`
	Size      int64  `gorm:"not null"`

	Hashes    []Hash     `gorm:"constraint:OnDelete:CASCADE;"`
	Duplicate *Duplicate `gorm:"constraint:OnDelete:CASCADE;"`
	Issues    []Issue    `gorm:"constraint:OnDelete:CASCADE;"`
}

// Hash is one (content, function) digest: 0..n rows per Content, since a
// blacklisted or suppressed function contributes no row.
type Hash struct {
	ContentID  uint   `gorm:"primaryKey;autoIncrement:false"`
	FunctionID uint   `gorm:"primaryKey;autoIncrement:false"`
	Hex        string `gorm:"index;not null"`
}

// Duplicate marks a Content whose Hash.Hex is shared with at least one
// other Content. Insertion is idempotent (spec.md §4.5).
type Duplicate struct {
	ContentID uint `gorm:"primaryKey;autoIncrement:false"`
}

// Sharing is a cumulative pairwise counter: how many files (and bytes) pkg1
// and pkg2 share when hashed with fn1 and fn2 respectively. Both (A,B) and
// (B,A) rows exist; (A,A) counts intra-package duplicates.
type Sharing struct {
	Pkg1ID uint  `gorm:"primaryKey;autoIncrement:false"`
	Pkg2ID uint  `gorm:"primaryKey;autoIncrement:false"`
	Fn1ID  uint  `gorm:"primaryKey;autoIncrement:false"`
	Fn2ID  uint  `gorm:"primaryKey;autoIncrement:false"`
	Files  int64 `gorm:"not null"`
	Bytes  int64 `gorm:"not null"`

	Pkg1 Package `gorm:"foreignKey:Pkg1ID;references:ID;constraint:OnDelete:CASCADE;"`
	Pkg2 Package `gorm:"foreignKey:Pkg2ID;references:ID;constraint:OnDelete:CASCADE;"`
}

// Issue is a heuristic quality note about a Content (spec.md §4.5).
type Issue struct {
	ID        uint   `gorm:"primaryKey"`
	ContentID uint   `gorm:"index;not null"`
	Text      string `gorm:"not null"`
}
