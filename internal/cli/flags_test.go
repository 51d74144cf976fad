package cli

import (
	"flag"
	"io"
	"testing"
)

func TestHelpFlag(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	flags := AddHelpVersionFlags(fs, "", "")

	if err := fs.Parse([]string{"-h"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !flags.Help {
		t.Fatalf("expected help flag set")
	}
}

func TestVersionFlag(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	flags := AddHelpVersionFlags(fs, "", "")

	if err := fs.Parse([]string{"--version"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !flags.Version {
		t.Fatalf("expected version flag set")
	}
}

func TestParseInterspersed(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	verbose := fs.Bool("verbose", false, "")
	name := fs.String("name", "", "")

	positional, err := ParseInterspersed(fs, []string{"a", "--verbose", "b", "--name", "x", "c"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !*verbose || *name != "x" {
		t.Fatalf("expected flags after positionals to be parsed")
	}
	if len(positional) != 3 || positional[0] != "a" || positional[1] != "b" || positional[2] != "c" {
		t.Fatalf("unexpected positionals %v", positional)
	}
}

func TestParseInterspersedStopsAtDoubleDash(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	verbose := fs.Bool("verbose", false, "")

	positional, err := ParseInterspersed(fs, []string{"a", "--", "--verbose"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if *verbose {
		t.Fatalf("expected --verbose after -- to stay positional")
	}
	if len(positional) != 2 || positional[1] != "--verbose" {
		t.Fatalf("unexpected positionals %v", positional)
	}
}

func TestSetFlagsReportsExplicitFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Int("count", 3, "")
	fs.Bool("quiet", false, "")
	if err := fs.Parse([]string{"--count", "3"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	set := SetFlags(fs)
	if !set["count"] || set["quiet"] {
		t.Fatalf("unexpected set flags %v", set)
	}
}
