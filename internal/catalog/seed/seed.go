// Package seed loads the requirements catalog from a pg_dump plain-text
// backup. The upstream catalog ships as a cluster dump; only the
// standards_library and requirements_library COPY sections are consumed,
// everything else is skipped.
package seed

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"attest/internal/catalog/models"
	id "attest/pkg/domain"
)

const (
	tableStandards    = "standards_library"
	tableRequirements = "requirements_library"

	// Descriptions in the dump run to several KB on one line.
	maxLineSize = 1 << 20
)

// Seed is the parsed catalog content.
type Seed struct {
	Standards    []models.Standard
	Requirements []models.Requirement
	// Skipped counts data rows dropped for missing or malformed required
	// fields. Callers log it; a partial catalog is still usable.
	Skipped int
}

// Load reads and parses a dump file from disk.
func Load(path string) (*Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog seed: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse consumes pg_dump text-format COPY sections. Data rows are
// tab-separated with backslash escapes; \N marks NULL and a lone \.
// terminates a section. Column order is taken from each COPY header, not
// assumed.
func Parse(r io.Reader) (*Seed, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	seed := &Seed{}
	var (
		table   string
		columns map[string]int
	)

	for scanner.Scan() {
		line := scanner.Text()

		if table == "" {
			name, cols, ok := parseCopyHeader(line)
			if !ok {
				continue
			}
			table = name
			columns = cols
			continue
		}

		if line == `\.` {
			table = ""
			columns = nil
			continue
		}

		switch table {
		case tableStandards:
			if std, ok := parseStandard(line, columns); ok {
				seed.Standards = append(seed.Standards, std)
			} else {
				seed.Skipped++
			}
		case tableRequirements:
			if req, ok := parseRequirement(line, columns); ok {
				seed.Requirements = append(seed.Requirements, req)
			} else {
				seed.Skipped++
			}
		default:
			// Unrelated table; consume rows until the terminator.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read catalog seed: %w", err)
	}
	if table != "" {
		return nil, fmt.Errorf("catalog seed truncated inside COPY %s", table)
	}

	return seed, nil
}

// parseCopyHeader matches `COPY public.table (col, col, ...) FROM stdin;`
// and returns the table name (schema stripped) with a column index map.
func parseCopyHeader(line string) (string, map[string]int, bool) {
	if !strings.HasPrefix(line, "COPY ") || !strings.HasSuffix(line, "FROM stdin;") {
		return "", nil, false
	}

	open := strings.IndexByte(line, '(')
	closing := strings.LastIndexByte(line, ')')
	if open < 0 || closing < open {
		return "", nil, false
	}

	name := strings.TrimSpace(line[len("COPY "):open])
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}

	columns := make(map[string]int)
	for i, col := range strings.Split(line[open+1:closing], ",") {
		columns[strings.TrimSpace(col)] = i
	}
	return name, columns, true
}

func parseStandard(line string, columns map[string]int) (models.Standard, bool) {
	parts := strings.Split(line, "\t")

	rawID, ok := field(parts, columns, "id")
	if !ok {
		return models.Standard{}, false
	}
	stdID, err := id.ParseStandardID(rawID)
	if err != nil {
		return models.Standard{}, false
	}

	name, ok := field(parts, columns, "name")
	if !ok || name == "" {
		return models.Standard{}, false
	}

	version, _ := field(parts, columns, "version")
	description, _ := field(parts, columns, "description")

	code, hasCode := field(parts, columns, "code")
	if !hasCode || code == "" {
		code = slug(name, version)
	}

	std := models.Standard{
		ID:          stdID,
		Code:        code,
		Name:        name,
		Version:     version,
		Description: description,
	}
	if raw, ok := field(parts, columns, "created_at"); ok {
		std.CreatedAt = parseTimestamp(raw)
	}
	return std, true
}

func parseRequirement(line string, columns map[string]int) (models.Requirement, bool) {
	parts := strings.Split(line, "\t")

	rawID, ok := field(parts, columns, "id")
	if !ok {
		return models.Requirement{}, false
	}
	reqID, err := id.ParseRequirementID(rawID)
	if err != nil {
		return models.Requirement{}, false
	}

	rawStdID, ok := field(parts, columns, "standard_id")
	if !ok {
		return models.Requirement{}, false
	}
	stdID, err := id.ParseStandardID(rawStdID)
	if err != nil {
		return models.Requirement{}, false
	}

	title, ok := field(parts, columns, "title")
	if !ok || title == "" {
		return models.Requirement{}, false
	}

	code, _ := field(parts, columns, "control_id")
	description, _ := field(parts, columns, "description")

	// The dump calls it priority; unknown values degrade to medium rather
	// than dropping the control.
	criticality := id.CriticalityMedium
	if raw, ok := field(parts, columns, "priority"); ok {
		if parsed, err := id.ParseCriticality(strings.ToLower(raw)); err == nil {
			criticality = parsed
		}
	}

	req := models.Requirement{
		ID:          reqID,
		StandardID:  stdID,
		Code:        code,
		Title:       title,
		Description: description,
		Criticality: criticality,
	}
	if raw, ok := field(parts, columns, "created_at"); ok {
		req.CreatedAt = parseTimestamp(raw)
	}
	return req, true
}

// field returns the unescaped value of a named column. The second return is
// false when the column is absent from the header or the value is NULL.
func field(parts []string, columns map[string]int, name string) (string, bool) {
	idx, ok := columns[name]
	if !ok || idx >= len(parts) {
		return "", false
	}
	raw := parts[idx]
	if raw == `\N` {
		return "", false
	}
	return unescape(raw), true
}

// unescape reverses COPY text-format escapes within a field value.
func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05.999999",
	time.RFC3339Nano,
}

func parseTimestamp(raw string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// slug derives a stable standard code from its name and version when the
// dump carries none, e.g. ("ISO 27001", "2022") -> "iso-27001-2022".
func slug(name, version string) string {
	joined := name
	if version != "" {
		joined += " " + version
	}
	var b strings.Builder
	b.Grow(len(joined))
	lastDash := true
	for _, r := range strings.ToLower(joined) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
