package storage

import "testing"

func TestDestDirSplitsOnFinalSlash(t *testing.T) {
	cases := map[string]string{
		"downloads/doc123/report.pdf": "downloads/doc123",
		"report.pdf":                  ".",
		"a/b/c/d.txt":                 "a/b/c",
		"/root.txt":                   "",
	}
	for in, want := range cases {
		if got := destDir(in); got != want {
			t.Errorf("destDir(%q) = %q, want %q", in, got, want)
		}
	}
}
