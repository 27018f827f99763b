package importer

import (
	"fmt"
	"strings"

	"github.com/etnz/debdedup/deb"
)

// parseControl parses a Debian control paragraph (colon-separated fields,
// continuation lines starting with whitespace) and extracts the identity
// and dependency fields the importer needs. Adapted from the teacher's
// control-file parser: same flush-on-new-key, fold-continuation-lines
// approach, narrowed to the handful of fields spec.md §4.3 names.
func parseControl(data []byte) (HeaderRecord, error) {
	fields := make(map[string]string)
	var key string
	var value strings.Builder

	flush := func() {
		if key != "" {
			fields[key] = strings.TrimSpace(value.String())
		}
	}

	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			value.WriteString("\n" + line)
			continue
		}
		if strings.TrimSpace(line) == "" {
			break // paragraph ends at the first blank line
		}
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		flush()
		key = strings.ToLower(strings.TrimSpace(line[:idx]))
		value.Reset()
		value.WriteString(strings.TrimSpace(line[idx+1:]))
	}
	flush()

	pkg, ok := fields[fieldKey(deb.FieldPackage)]
	if !ok {
		return HeaderRecord{}, fmt.Errorf("importer: control paragraph missing %s field", deb.FieldPackage)
	}
	version, ok := fields[fieldKey(deb.FieldVersion)]
	if !ok {
		return HeaderRecord{}, fmt.Errorf("importer: control paragraph missing %s field", deb.FieldVersion)
	}

	source := pkg
	if raw, ok := fields[fieldKey(deb.FieldSource)]; ok {
		if tok := strings.Fields(raw); len(tok) > 0 {
			source = tok[0]
		}
	}

	var depends []string
	if raw, ok := fields[fieldKey(deb.FieldDepends)]; ok {
		depends = parseDepends(raw)
	}

	return HeaderRecord{
		Package:      pkg,
		Source:       source,
		Version:      version,
		Architecture: fields[fieldKey(deb.FieldArchitecture)],
		Depends:      depends,
	}, nil
}

// fieldKey lowercases a deb.ControlField for lookup in the case-folded
// fields map built by the scan above.
func fieldKey(f deb.ControlField) string {
	return strings.ToLower(string(f))
}

// parseDepends keeps only single-alternative Depends entries, discarding
// any "a | b" alternation wholesale and stripping version constraints,
// exactly as importpkg.py's "len(dep) == 1" filter does.
func parseDepends(raw string) []string {
	var out []string
	for _, alt := range strings.Split(raw, ",") {
		alt = strings.TrimSpace(alt)
		if alt == "" {
			continue
		}
		choices := strings.Split(alt, "|")
		if len(choices) != 1 {
			continue
		}
		name := strings.Fields(strings.TrimSpace(choices[0]))
		if len(name) == 0 {
			continue
		}
		out = append(out, name[0])
	}
	return out
}
