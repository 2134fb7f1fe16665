package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Filename is the fixed name of the migration plan file at the repository
// root. Its existence is the sole on-disk idempotency signal: present
// means "strategy already generated for this repository".
const Filename = "MIGRATION_PLAN.md"

// Metadata is the YAML frontmatter recorded with the plan.
type Metadata struct {
	Repository    string    `yaml:"repository"`
	Model         string    `yaml:"model"`
	ContextTokens int       `yaml:"context_tokens"`
	GeneratedAt   time.Time `yaml:"generated_at"`
}

// executionInstructions is appended verbatim to every artifact so the
// file is self-contained for the executor and for manual runs.
const executionInstructions = `## Execution instructions

Apply the migration plan above to this repository:

1. Work through the plan section by section.
2. Keep changes on the ` + "`v1-migration`" + ` branch.
3. Commit logically grouped changes with descriptive messages.
4. Run the project's test suite after each major step.
5. Do not ask for clarification; make reasonable decisions and note them
   in commit messages.
`

// Path returns the artifact location for a repository root.
func Path(root string) string {
	return filepath.Join(root, Filename)
}

// Exists reports whether the repository already has a migration plan.
func Exists(root string) bool {
	info, err := os.Stat(Path(root))
	return err == nil && !info.IsDir()
}

// Write persists a newly generated plan. An existing artifact is never
// rewritten; reruns must see the exact content of the first run.
func Write(root string, meta Metadata, plan string) error {
	if Exists(root) {
		return nil
	}

	fm, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshalling artifact metadata: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n\n")
	b.WriteString("# Migration plan\n\n")
	b.WriteString(strings.TrimSpace(plan))
	b.WriteString("\n\n")
	b.WriteString(executionInstructions)

	if err := os.WriteFile(Path(root), []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", Filename, err)
	}
	return nil
}

// ReadMetadata parses the frontmatter of an existing artifact.
func ReadMetadata(root string) (*Metadata, error) {
	data, err := os.ReadFile(Path(root))
	if err != nil {
		return nil, err
	}

	content := string(data)
	if !strings.HasPrefix(content, "---\n") {
		return nil, fmt.Errorf("%s has no frontmatter", Filename)
	}
	rest := content[4:]
	end := strings.Index(rest, "\n---")
	if end == -1 {
		return nil, fmt.Errorf("%s has malformed frontmatter", Filename)
	}

	var meta Metadata
	if err := yaml.Unmarshal([]byte(rest[:end]), &meta); err != nil {
		return nil, fmt.Errorf("parsing %s frontmatter: %w", Filename, err)
	}
	return &meta, nil
}
