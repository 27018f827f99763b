// Package store implements the relational store described in spec.md §6's
// conceptual schema: Package, Dependency, HashFunction, Content, Hash,
// Duplicate, Sharing, and Issue, behind GORM and the sqlite driver.
package store

import (
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FixedHashFunctions is the small, fixed set of hash strategies the hash
// stack ever produces, per spec.md §3.
var FixedHashFunctions = []string{"sha512", "gzip_sha512", "image_sha512"}

// Store wraps an open relational store handle.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if necessary) a sqlite database at path, enables
// foreign-key enforcement, and runs migrations.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", path, err)
	}
	if err := db.Exec("PRAGMA foreign_keys = ON;").Error; err != nil {
		return nil, fmt.Errorf("store: enabling foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	if err := s.db.AutoMigrate(
		&Package{}, &Dependency{}, &HashFunction{},
		&Content{}, &Hash{}, &Duplicate{}, &Sharing{}, &Issue{},
	); err != nil {
		return fmt.Errorf("store: migrating schema: %w", err)
	}
	for _, name := range FixedHashFunctions {
		fn := HashFunction{Name: name}
		if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&fn).Error; err != nil {
			return fmt.Errorf("store: seeding hash function %s: %w", name, err)
		}
	}
	return nil
}

// DB exposes the underlying *gorm.DB. The sharing engine needs raw grouped
// queries that don't fit the record-at-a-time ORM API; everything else
// should prefer the methods below.
func (s *Store) DB() *gorm.DB { return s.db }

// LookupVersion returns the stored version for a package name, if any.
func (s *Store) LookupVersion(name string) (version string, found bool, err error) {
	var pkg Package
	err = s.db.Where("name = ?", name).First(&pkg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: looking up %s: %w", name, err)
	}
	return pkg.Version, true, nil
}

// PackageRecord is the plain-data shape ApplyPackage accepts. It is
// deliberately decoupled from the importer's serialised record types so
// this package has no import-time dependency on importer.
type PackageRecord struct {
	Name         string
	Version      string
	Architecture string
	SourceName   string
	Depends      []string
}

// FileRecord is the plain-data shape of one Content plus its hashes.
type FileRecord struct {
	Name   string
	Size   int64
	Hashes map[string]string
}

// ApplyPackage replaces the stored Package row for pkg.Name (if any) with
// pkg and its files, inside one transaction: delete-then-insert, never an
// update-in-place, per spec.md §9.
func (s *Store) ApplyPackage(pkg PackageRecord, files []FileRecord) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing Package
		err := tx.Where("name = ?", pkg.Name).First(&existing).Error
		switch {
		case err == nil:
			// Dependency and Content (and, transitively, Hash/Duplicate/Issue)
			// rows ride along via the ON DELETE CASCADE constraints declared
			// on Package's associations in models.go.
			if err := tx.Delete(&existing).Error; err != nil {
				return fmt.Errorf("store: deleting existing package %s: %w", pkg.Name, err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// nothing stored yet for this name
		default:
			return fmt.Errorf("store: looking up %s: %w", pkg.Name, err)
		}

		functions, err := loadFunctionIDs(tx)
		if err != nil {
			return err
		}

		row := Package{
			Name:         pkg.Name,
			Version:      pkg.Version,
			Architecture: pkg.Architecture,
			SourceName:   pkg.SourceName,
		}
		for _, dep := range pkg.Depends {
			row.Dependencies = append(row.Dependencies, Dependency{RequiredName: dep})
		}
		for _, f := range files {
			content := Content{Filename: f.Name, Size: f.Size}
			for fn, hex := range f.Hashes {
				fnID, ok := functions[fn]
				if !ok {
					return fmt.Errorf("store: unknown hash function %q", fn)
				}
				content.Hashes = append(content.Hashes, Hash{FunctionID: fnID, Hex: hex})
			}
			row.Contents = append(row.Contents, content)
		}

		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("store: inserting package %s: %w", pkg.Name, err)
		}
		return nil
	})
}

func loadFunctionIDs(tx *gorm.DB) (map[string]uint, error) {
	var rows []HashFunction
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: loading hash functions: %w", err)
	}
	out := make(map[string]uint, len(rows))
	for _, r := range rows {
		out[r.Name] = r.ID
	}
	return out, nil
}

// PrunePackages deletes every Package whose name is not in keep, returning
// the names removed.
func (s *Store) PrunePackages(keep map[string]bool) ([]string, error) {
	var all []Package
	if err := s.db.Find(&all).Error; err != nil {
		return nil, fmt.Errorf("store: listing packages: %w", err)
	}

	var removed []string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, p := range all {
			if keep[p.Name] {
				continue
			}
			if err := tx.Delete(&p).Error; err != nil {
				return fmt.Errorf("store: pruning %s: %w", p.Name, err)
			}
			removed = append(removed, p.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}
