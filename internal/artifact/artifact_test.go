package artifact

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestWriteAndRead(t *testing.T) {
	root := t.TempDir()

	if Exists(root) {
		t.Fatal("Exists true for empty directory")
	}

	meta := Metadata{
		Repository:    "zod",
		Model:         "gpt-4.1",
		ContextTokens: 19800,
		GeneratedAt:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := Write(root, meta, "Upgrade all imports to the v1 API."); err != nil {
		t.Fatal(err)
	}

	if !Exists(root) {
		t.Fatal("Exists false after Write")
	}

	data, err := os.ReadFile(Path(root))
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "Upgrade all imports to the v1 API.") {
		t.Error("plan body missing")
	}
	if !strings.Contains(content, "## Execution instructions") {
		t.Error("execution instructions missing")
	}
	if !strings.Contains(content, "v1-migration") {
		t.Error("migration branch missing from instructions")
	}

	got, err := ReadMetadata(root)
	if err != nil {
		t.Fatal(err)
	}
	if got.Repository != "zod" || got.Model != "gpt-4.1" || got.ContextTokens != 19800 {
		t.Errorf("metadata = %+v", got)
	}
}

func TestWrite_NeverRewrites(t *testing.T) {
	root := t.TempDir()

	if err := Write(root, Metadata{Repository: "first"}, "original plan"); err != nil {
		t.Fatal(err)
	}
	before, _ := os.ReadFile(Path(root))

	// A second write must leave the file byte-identical.
	if err := Write(root, Metadata{Repository: "second"}, "different plan"); err != nil {
		t.Fatal(err)
	}
	after, _ := os.ReadFile(Path(root))

	if string(before) != string(after) {
		t.Error("existing artifact was rewritten")
	}
}

func TestReadMetadata_Malformed(t *testing.T) {
	root := t.TempDir()
	os.WriteFile(Path(root), []byte("no frontmatter here"), 0644)

	if _, err := ReadMetadata(root); err == nil {
		t.Error("expected error for artifact without frontmatter")
	}
}
