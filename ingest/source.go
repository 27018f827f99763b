// Package ingest implements the coordinator described in spec.md §4.4: a
// bounded worker pool that runs the importer in parallel across a set of
// package sources and applies completed imports to the store one package
// at a time.
package ingest

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/etnz/debdedup/archive"
)

// Candidate is one (name, version) pairing resolved from a package source.
// Filename is either a local filesystem path or an absolute URL, fully
// qualifying where to fetch the package's bytes.
type Candidate struct {
	Name     string
	Version  string
	Filename string
}

// PackageSource yields every .deb candidate it currently knows about.
// Acquiring .deb bytes from a mirror or directory is named in spec.md §1 as
// an external collaborator; these two implementations are minimal,
// sufficient stand-ins to exercise the pipeline end-to-end.
type PackageSource interface {
	Scan() ([]Candidate, error)
}

// DirectorySource lists every file matching name_version_arch.deb in Dir.
type DirectorySource struct {
	Dir string
}

func (d DirectorySource) Scan() ([]Candidate, error) {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return nil, fmt.Errorf("ingest: scanning %s: %w", d.Dir, err)
	}

	var out []Candidate
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".deb") {
			continue
		}
		base := strings.TrimSuffix(e.Name(), ".deb")
		parts := strings.Split(base, "_")
		if len(parts) != 3 {
			continue
		}
		version, err := url.QueryUnescape(parts[1])
		if err != nil {
			continue
		}
		out = append(out, Candidate{
			Name:     parts[0],
			Version:  version,
			Filename: filepath.Join(d.Dir, e.Name()),
		})
	}
	return out, nil
}

// HTTPMirrorSource reads U/dists/sid/main/binary-amd64/Packages.gz, gunzips
// it, parses it as a sequence of Debian control paragraphs, and resolves
// each paragraph's Filename field relative to U.
type HTTPMirrorSource struct {
	BaseURL string
	Client  *http.Client
}

func (h HTTPMirrorSource) client() *http.Client {
	if h.Client != nil {
		return h.Client
	}
	return http.DefaultClient
}

func (h HTTPMirrorSource) Scan() ([]Candidate, error) {
	base := strings.TrimRight(h.BaseURL, "/")
	indexURL := base + "/dists/sid/main/binary-amd64/Packages.gz"

	resp, err := h.client().Get(indexURL)
	if err != nil {
		return nil, fmt.Errorf("ingest: fetching %s: %w", indexURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ingest: fetching %s: status %d", indexURL, resp.StatusCode)
	}

	raw, err := readAll(resp)
	if err != nil {
		return nil, fmt.Errorf("ingest: reading %s: %w", indexURL, err)
	}

	decompressed, err := gunzipAll(raw)
	if err != nil {
		return nil, fmt.Errorf("ingest: gunzipping %s: %w", indexURL, err)
	}

	var out []Candidate
	for _, stanza := range strings.Split(string(decompressed), "\n\n") {
		if strings.TrimSpace(stanza) == "" {
			continue
		}
		fields := parseStanza(stanza)
		name, version, filename := fields["package"], fields["version"], fields["filename"]
		if name == "" || version == "" || filename == "" {
			continue
		}
		out = append(out, Candidate{
			Name:     name,
			Version:  version,
			Filename: base + "/" + filename,
		})
	}
	return out, nil
}

// gunzipAll decompresses a complete gzip member using the hand-rolled
// decompressor from the archive package, the same component that unwraps
// control.tar.gz and data.tar.gz elsewhere in this module.
func gunzipAll(data []byte) ([]byte, error) {
	gz := archive.NewGzipDecompressor()
	out, err := gz.Decompress(data)
	if err != nil {
		return nil, err
	}
	tail, err := gz.Flush()
	if err != nil {
		return nil, err
	}
	return append(out, tail...), nil
}

func readAll(resp *http.Response) ([]byte, error) {
	buf := make([]byte, 0, 64*1024)
	chunk := make([]byte, 64*1024)
	for {
		n, err := resp.Body.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			if err.Error() == "EOF" {
				return buf, nil
			}
			return buf, err
		}
	}
}

// parseStanza parses one Debian control paragraph into a lowercase-keyed
// field map, folding whitespace-continuation lines.
func parseStanza(s string) map[string]string {
	fields := make(map[string]string)
	var key string
	var value strings.Builder

	flush := func() {
		if key != "" {
			fields[strings.ToLower(key)] = strings.TrimSpace(value.String())
		}
	}

	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			value.WriteString("\n" + line)
			continue
		}
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		flush()
		key = strings.TrimSpace(line[:idx])
		value.Reset()
		value.WriteString(strings.TrimSpace(line[idx+1:]))
	}
	flush()
	return fields
}
