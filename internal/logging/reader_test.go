package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func writeLogFile(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "collegebot.log")
	if err := os.WriteFile(path, []byte(lines), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadEntriesNewestFirst(t *testing.T) {
	path := writeLogFile(t, `{"timestamp":"t1","level":"INFO","message":"first"}
{"timestamp":"t2","level":"WARN","message":"second"}
{"timestamp":"t3","level":"INFO","message":"third"}
`)

	entries, err := ReadEntries(path, "", 0)
	if err != nil {
		t.Fatalf("ReadEntries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	if entries[0].Message != "third" || entries[2].Message != "first" {
		t.Errorf("order = %q, %q, %q", entries[0].Message, entries[1].Message, entries[2].Message)
	}
}

func TestReadEntriesLevelFilterAndLimit(t *testing.T) {
	path := writeLogFile(t, `{"level":"INFO","message":"a"}
{"level":"WARN","message":"b"}
{"level":"WARN","message":"c"}
{"level":"ERROR","message":"d"}
`)

	entries, err := ReadEntries(path, "WARN", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Message != "c" {
		t.Errorf("entries = %+v, want newest WARN only", entries)
	}
}

func TestReadEntriesSkipsGarbage(t *testing.T) {
	path := writeLogFile(t, `not json at all
{"level":"INFO","message":"good"}
{broken
`)

	entries, err := ReadEntries(path, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Message != "good" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestReadEntriesMissingFile(t *testing.T) {
	entries, err := ReadEntries(filepath.Join(t.TempDir(), "nope.log"), "", 0)
	if err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %d, want 0", len(entries))
	}
}
