// Package importer drives one .deb byte stream through the archive and
// hash-stack layers and emits the serialised import record stream
// described in spec.md §4.3 and §6: one header document, zero or more
// file documents, one commit marker.
package importer

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/etnz/debdedup/archive"
	"github.com/etnz/debdedup/deb"
	"github.com/etnz/debdedup/hash"
)

// Sentinel errors for the importer, per spec.md §7's format kind.
var (
	ErrMissingControl         = errors.New("importer: control file missing")
	ErrDuplicateControl       = errors.New("importer: duplicate control.tar.gz member")
	ErrNoData                 = errors.New("importer: no data.tar.{gz,bz2,xz} member found")
	ErrUnsupportedCompression = errors.New("importer: unsupported data member compression")
)

// Import reads one .deb archive from r and writes its serialised import
// record stream to w. log receives warnings for skipped non-UTF8
// filenames.
func Import(r io.Reader, w io.Writer, log *logrus.Entry) error {
	ar := archive.NewArReader(r)
	if err := ar.ReadMagic(); err != nil {
		return fmt.Errorf("importer: %w", err)
	}

	out := NewWriter(w)
	haveControl := false

	for {
		name, err := ar.ReadEntry()
		if errors.Is(err, io.EOF) {
			return ErrNoData
		}
		if err != nil {
			return fmt.Errorf("importer: %w", err)
		}

		switch name {
		case string(deb.PkgControlTarGz):
			if haveControl {
				return ErrDuplicateControl
			}
			header, err := readControl(ar)
			if err != nil {
				return err
			}
			if err := out.WriteHeader(header); err != nil {
				return fmt.Errorf("importer: writing header record: %w", err)
			}
			haveControl = true

		case string(deb.PkgDataTarGz), "data.tar.bz2", "data.tar.xz":
			if !haveControl {
				return ErrMissingControl
			}
			tr, err := openDataTar(ar, name)
			if err != nil {
				return err
			}
			if err := streamFiles(tr, out, log); err != nil {
				return err
			}
			return out.WriteCommit()

		default:
			continue
		}
	}
}

// readControl unwraps the control.tar.gz member and parses its control
// entry into a HeaderRecord.
func readControl(ar *archive.ArReader) (HeaderRecord, error) {
	gz := archive.NewGzipDecompressor()
	stream := archive.NewDecompressedStream(ar, gz)
	tr := tar.NewReader(stream)

	for {
		th, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return HeaderRecord{}, fmt.Errorf("importer: no ./control entry: %w", ErrMissingControl)
		}
		if err != nil {
			return HeaderRecord{}, fmt.Errorf("importer: reading control.tar.gz: %w", err)
		}
		if th.Name != "./"+string(deb.FileControl) {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return HeaderRecord{}, fmt.Errorf("importer: reading control file: %w", err)
		}
		return parseControl(data)
	}
}

// openDataTar wraps the current ar entry (named name) with the right
// decompressor and returns a tar reader over its contents.
func openDataTar(ar *archive.ArReader, name string) (*tar.Reader, error) {
	switch name {
	case string(deb.PkgDataTarGz):
		gz := archive.NewGzipDecompressor()
		return tar.NewReader(archive.NewDecompressedStream(ar, gz)), nil
	case "data.tar.bz2":
		bz, err := archive.NewBzip2Decompressor(ar)
		if err != nil {
			return nil, fmt.Errorf("importer: %w: %v", ErrUnsupportedCompression, err)
		}
		return tar.NewReader(bz), nil
	case "data.tar.xz":
		xzr, err := archive.NewXzDecompressor(ar)
		if err != nil {
			return nil, fmt.Errorf("importer: %w: %v", ErrUnsupportedCompression, err)
		}
		return tar.NewReader(xzr), nil
	default:
		return nil, fmt.Errorf("importer: %q: %w", name, ErrUnsupportedCompression)
	}
}

// streamFiles iterates every regular-file entry of tr, hashes it through
// the standard per-file hash stack, and emits a file record.
func streamFiles(tr *tar.Reader, out *Writer, log *logrus.Entry) error {
	buf := make([]byte, hash.BlockSize)
	for {
		th, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("importer: reading data tar: %w", err)
		}
		if th.Typeflag != tar.TypeReg {
			continue
		}
		if !utf8.ValidString(th.Name) {
			if log != nil {
				log.WithField("filename", th.Name).Warn("skipping file with non-utf8 name")
			}
			continue
		}

		hashers := hash.NewFileHashers()
		for {
			n, rerr := tr.Read(buf)
			if n > 0 {
				hashers.Update(buf[:n])
			}
			if errors.Is(rerr, io.EOF) {
				break
			}
			if rerr != nil {
				return fmt.Errorf("importer: reading file %q: %w", th.Name, rerr)
			}
		}

		if err := out.WriteFile(FileRecord{
			Name:   th.Name,
			Size:   th.Size,
			Hashes: hashers.Finalize(),
		}); err != nil {
			return fmt.Errorf("importer: writing file record: %w", err)
		}
	}
}
