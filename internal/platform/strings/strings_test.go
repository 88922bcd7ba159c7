package strings

import (
	"slices"
	"testing"

	kit "feedvault/internal/platform/testkit"
)

func TestIfEmpty(t *testing.T) {
	def := []string{"GET"}
	if got := IfEmpty(nil, def); !slices.Equal(got, def) {
		t.Fatalf("IfEmpty(nil) = %v", got)
	}
	if got := IfEmpty([]string{"POST"}, def); !slices.Equal(got, []string{"POST"}) {
		t.Fatalf("IfEmpty(POST) = %v", got)
	}
}

func TestMustString(t *testing.T) {
	if MustString("archive", "module name") != "archive" {
		t.Fatal("value not returned")
	}
	kit.MustPanic(t, func() { MustString(" \t", "module name") })
}

func TestMustPrefix(t *testing.T) {
	for in, want := range map[string]string{
		"archive":   "/archive",
		"/archive/": "/archive",
		"  /meta  ": "/meta",
		"//a/b//":   "/a/b",
	} {
		if got := MustPrefix(in); got != want {
			t.Errorf("MustPrefix(%q) = %q, want %q", in, got, want)
		}
	}
	kit.MustPanic(t, func() { MustPrefix(" / ") })
	kit.MustPanic(t, func() { MustPrefix("") })
}

func TestSplitCSV(t *testing.T) {
	if got := SplitCSV(" jack, ,dorsey ,"); !slices.Equal(got, []string{"jack", "dorsey"}) {
		t.Fatalf("SplitCSV = %q", got)
	}
	if SplitCSV(" , ") != nil {
		t.Fatal("blank input should be nil")
	}
}
