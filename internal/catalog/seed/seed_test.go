package seed

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "attest/pkg/domain"
)

const (
	iso27001ID = "55742f4e-769b-4efe-912c-1371de5e1cd6"
	cisIG2ID   = "8508cfb0-3457-4226-b39a-851be52ef7ea"
)

// dump mirrors the pg_dump text format the upstream catalog ships in:
// unrelated sections, NULL markers, escaped characters inside fields.
const dump = `--
-- PostgreSQL database cluster dump
--

COPY public.unrelated_table (id, noise) FROM stdin;
1	ignored
\.

COPY public.standards_library (id, name, version, description, created_at) FROM stdin;
` + iso27001ID + `	ISO 27001	2022	Information security management	2025-07-19 22:37:30.123456+00
` + cisIG2ID + `	CIS Controls IG2	8.0	\N	2025-07-19 22:37:30.123456+00
not-a-uuid	Broken Standard	1.0	\N	2025-07-19 22:37:30.123456+00
\.

COPY public.requirements_library (id, standard_id, control_id, title, description, category, priority, parent_requirement_id, created_at) FROM stdin;
0b0e6f3a-1f9f-43d2-9f27-0a4a5f2f2df1	` + iso27001ID + `	A.5.1	Policies for information security	Review policies\nat planned intervals.	Organizational	high	\N	2025-07-19 22:37:30.123456+00
7d9d2c5f-95cf-4f23-9a0b-97a0f3f6f111	` + iso27001ID + `	A.8.2	Privileged access rights	Tab\there and backslash \\ inside.	Technical	\N	\N	2025-07-19 22:37:30.123456+00
b4a84f0f-61a3-4f4a-8f8e-aa2e7a5f2222	` + cisIG2ID + `	4.1	Secure configuration process	\N	Technical	unknown-priority	\N	2025-07-19 22:37:30.123456+00
malformed-row-missing-fields
\.
`

func TestParse(t *testing.T) {
	seed, err := Parse(strings.NewReader(dump))
	require.NoError(t, err)

	t.Run("parses standards and skips malformed rows", func(t *testing.T) {
		require.Len(t, seed.Standards, 2)

		iso := seed.Standards[0]
		assert.Equal(t, iso27001ID, iso.ID.String())
		assert.Equal(t, "ISO 27001", iso.Name)
		assert.Equal(t, "2022", iso.Version)
		assert.Equal(t, "Information security management", iso.Description)
		assert.Equal(t, "iso-27001-2022", iso.Code)
		assert.Equal(t, 2025, iso.CreatedAt.Year())

		cis := seed.Standards[1]
		assert.Equal(t, "cis-controls-ig2-8-0", cis.Code)
		assert.Empty(t, cis.Description)
	})

	t.Run("parses requirements with escapes and NULLs", func(t *testing.T) {
		require.Len(t, seed.Requirements, 3)

		first := seed.Requirements[0]
		assert.Equal(t, "A.5.1", first.Code)
		assert.Equal(t, "Policies for information security", first.Title)
		assert.Equal(t, "Review policies\nat planned intervals.", first.Description)
		assert.Equal(t, id.CriticalityHigh, first.Criticality)
		assert.Equal(t, iso27001ID, first.StandardID.String())

		second := seed.Requirements[1]
		assert.Equal(t, "Tab\there and backslash \\ inside.", second.Description)
		assert.Equal(t, id.CriticalityMedium, second.Criticality, "NULL priority defaults to medium")
	})

	t.Run("unknown priority degrades to medium", func(t *testing.T) {
		third := seed.Requirements[2]
		assert.Equal(t, id.CriticalityMedium, third.Criticality)
	})

	t.Run("counts skipped rows", func(t *testing.T) {
		// One broken standard UUID plus one malformed requirement row.
		assert.Equal(t, 2, seed.Skipped)
	})
}

func TestParse_TruncatedSection(t *testing.T) {
	truncated := `COPY public.standards_library (id, name, version) FROM stdin;
` + iso27001ID + `	ISO 27001	2022
`
	_, err := Parse(strings.NewReader(truncated))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated")
}

func TestParse_EmptyInput(t *testing.T) {
	seed, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, seed.Standards)
	assert.Empty(t, seed.Requirements)
}

func TestParse_ColumnOrderFromHeader(t *testing.T) {
	// Same data, shuffled column order: the header decides the mapping.
	reordered := `COPY public.standards_library (version, id, name) FROM stdin;
2022	` + iso27001ID + `	ISO 27001
\.
`
	seed, err := Parse(strings.NewReader(reordered))
	require.NoError(t, err)
	require.Len(t, seed.Standards, 1)
	assert.Equal(t, "ISO 27001", seed.Standards[0].Name)
	assert.Equal(t, "2022", seed.Standards[0].Version)
}

func TestSlug(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    string
	}{
		{"ISO 27001", "2022", "iso-27001-2022"},
		{"CIS Controls (IG1)", "", "cis-controls-ig1"},
		{"SOC 2 Type II", "v1", "soc-2-type-ii-v1"},
		{"  spaced  ", "", "spaced"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, slug(tt.name, tt.version))
	}
}
