package path

import "testing"

func TestCleanTrim(t *testing.T) {
	cases := map[string]string{
		"azure://store//a/b/": "a/b",
		"/a/b":                "a/b",
		"a/b/":                "a/b",
		"":                    "",
	}
	for in, want := range cases {
		if got := Clean(in); got != want {
			t.Errorf("Clean(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJoinTrimIdentity(t *testing.T) {
	if got, want := Trim(Join("/", "a/b")), Trim("a/b"); got != want {
		t.Errorf("Join/Trim identity broke: got %q want %q", got, want)
	}
}

func TestParentBase(t *testing.T) {
	if got := Parent("a/b/c"); got != "a/b" {
		t.Errorf("Parent = %q", got)
	}
	if got := Parent("a"); got != "" {
		t.Errorf("Parent of top-level segment = %q, want empty", got)
	}
	if got := Base("a/b/c"); got != "c" {
		t.Errorf("Base = %q", got)
	}
}

func TestRelativeTo(t *testing.T) {
	if got := RelativeTo("a/b/c", "a/b"); got != "c" {
		t.Errorf("RelativeTo = %q", got)
	}
	if got := RelativeTo("a/b", "a/b"); got != "" {
		t.Errorf("RelativeTo self = %q, want empty", got)
	}
	if got := RelativeTo("x/y", "a/b"); got != "x/y" {
		t.Errorf("RelativeTo non-prefix = %q, want unchanged", got)
	}
}

func TestGloblessPrefix(t *testing.T) {
	cases := map[string]string{
		"a/b/*.txt":   "a/b",
		"a/*/c":       "a",
		"a/b/c":       "a/b/c",
		"*/a":         "",
		"a/b?/c":      "a",
	}
	for in, want := range cases {
		if got := GloblessPrefix(in); got != want {
			t.Errorf("GloblessPrefix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMatch(t *testing.T) {
	if !Match("a/*/c", "a/b/c") {
		t.Error("expected * to match single segment")
	}
	if Match("a/*/c", "a/b/d/c") {
		t.Error("expected * not to cross /")
	}
	if !Match("a/file?.txt", "a/file1.txt") {
		t.Error("expected ? to match single char")
	}
	if Match("a/file?.txt", "a/file12.txt") {
		t.Error("expected ? not to match two chars")
	}
	if Match("a/*", "b/x") {
		t.Error("expected pattern to be anchored")
	}
}
