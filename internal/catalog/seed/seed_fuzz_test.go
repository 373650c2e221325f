package seed

import (
	"strings"
	"testing"
)

// FuzzParse feeds arbitrary text through the dump parser. It must never
// panic and never fabricate entries with nil identifiers.
func FuzzParse(f *testing.F) {
	f.Add(dump)
	f.Add("")
	f.Add(`COPY public.standards_library (id, name) FROM stdin;` + "\n" + `\.`)
	f.Add("COPY broken (((( FROM stdin;")
	f.Add("\tonly\ttabs\t")
	f.Add(`\.`)
	f.Add(`COPY public.requirements_library (id) FROM stdin;` + "\nx\n" + `\.`)

	f.Fuzz(func(t *testing.T, input string) {
		seed, err := Parse(strings.NewReader(input))
		if err != nil {
			return
		}
		for _, std := range seed.Standards {
			if std.ID.IsNil() {
				t.Errorf("parsed standard with nil ID from input %q", input)
			}
			if std.Name == "" {
				t.Errorf("parsed standard with empty name from input %q", input)
			}
		}
		for _, req := range seed.Requirements {
			if req.ID.IsNil() || req.StandardID.IsNil() {
				t.Errorf("parsed requirement with nil IDs from input %q", input)
			}
			if !req.Criticality.IsValid() {
				t.Errorf("parsed requirement with invalid criticality from input %q", input)
			}
		}
	})
}
