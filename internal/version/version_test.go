package version

import "testing"

func TestGetPrefersLdflags(t *testing.T) {
	previousVersion, previousBuilt, previousCommit := Version, Built, GitCommit
	Version = "1.2.3"
	Built = "2026-01-11T12:34:56Z"
	GitCommit = "abc123"
	t.Cleanup(func() {
		Version, Built, GitCommit = previousVersion, previousBuilt, previousCommit
	})

	info := Get()
	if info.Version != "1.2.3" {
		t.Fatalf("expected version 1.2.3, got %q", info.Version)
	}
	if info.Built != "2026-01-11T12:34:56Z" {
		t.Fatalf("expected built timestamp to be preserved, got %q", info.Built)
	}
	if info.GitCommit != "abc123" {
		t.Fatalf("expected git commit to be preserved, got %q", info.GitCommit)
	}
}

func TestInfoString(t *testing.T) {
	cases := []struct {
		info Info
		want string
	}{
		{Info{Version: "dev"}, "filesentry dev"},
		{Info{Version: "0.4.0", GitCommit: "0123456789abcdef"}, "filesentry 0.4.0 (commit 0123456789ab)"},
		{Info{Version: "0.4.0", GitCommit: "abc", Built: "2026-10-01"}, "filesentry 0.4.0 (commit abc, built 2026-10-01)"},
	}
	for _, tc := range cases {
		if got := tc.info.String(); got != tc.want {
			t.Fatalf("String() = %q, want %q", got, tc.want)
		}
	}
}
