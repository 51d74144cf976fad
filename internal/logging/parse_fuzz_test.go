package logging

import "testing"

func FuzzParseLevelAndFormat(f *testing.F) {
	for _, seed := range []string{"info", "warn", "WARNING", " error ", "debug", "", "json", "Text", "???"} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, raw string) {
		if level, ok := ParseLevel(raw); ok {
			again, ok := ParseLevel(string(level))
			if !ok || again != level {
				t.Fatalf("level %q does not round-trip", level)
			}
		}
		if format, ok := ParseFormat(raw); ok && format != FormatText && format != FormatJSON {
			t.Fatalf("unexpected format %q", format)
		}
	})
}
