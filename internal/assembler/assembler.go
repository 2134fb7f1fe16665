package assembler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hochfrequenz/repo-migrator/internal/tokenizer"
)

// manifestCandidates are checked in order; the first match is the
// repository's package manifest.
var manifestCandidates = []string{
	"package.json",
	"pyproject.toml",
	"Cargo.toml",
	"go.mod",
}

// entrypointCandidates are conventional entrypoint paths, checked in
// order; the first match wins.
var entrypointCandidates = []string{
	"src/index.ts",
	"src/index.js",
	"index.ts",
	"index.js",
	"src/main.ts",
	"src/main.py",
	"main.py",
	"src/main.rs",
	"main.go",
}

// sourceExtensions are the file types considered for context inclusion.
var sourceExtensions = map[string]bool{
	".ts":  true,
	".tsx": true,
	".js":  true,
	".jsx": true,
	".mjs": true,
	".py":  true,
	".rs":  true,
	".go":  true,
}

// excludedDirs are build, dependency, test, and coverage directories that
// never contribute context.
var excludedDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"out":          true,
	"coverage":     true,
	"target":       true,
	"test":         true,
	"tests":        true,
	"__tests__":    true,
	"__pycache__":  true,
}

// File is one included file with its budget cost.
type File struct {
	Path    string
	Content string
	Tokens  int
}

// Context is the assembled, bounded-size context for one repository.
// TotalTokens can exceed MaxTokens only through the unconditional base
// files; every greedily added file respects the ceiling.
type Context struct {
	Files       []File
	TotalTokens int
	MaxTokens   int
}

// Text returns the concatenated file blocks in inclusion order. An empty
// context yields an empty string, which downstream consumers must accept.
func (c *Context) Text() string {
	var b strings.Builder
	for _, f := range c.Files {
		b.WriteString(fileHeader(f.Path))
		b.WriteString(f.Content)
		if !strings.HasSuffix(f.Content, "\n") {
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func fileHeader(path string) string {
	return fmt.Sprintf("--- FILE: %s ---\n", path)
}

// Assembler selects and orders repository files into a token-budgeted
// context blob.
type Assembler struct {
	counter   tokenizer.Counter
	maxTokens int
}

// New creates an Assembler with the given token counter and hard budget.
func New(counter tokenizer.Counter, maxTokens int) *Assembler {
	return &Assembler{counter: counter, maxTokens: maxTokens}
}

// Assemble builds the context for the repository rooted at root.
//
// README, manifest, and entrypoint are included unconditionally regardless
// of token cost, so even a pathological repository yields a non-empty base
// context. Remaining source files are sorted by (path depth, lexicographic)
// and appended first-fit: the first file that would overflow the budget,
// and everything after it in sort order, is excluded. Unreadable and
// binary files are skipped silently.
func (a *Assembler) Assemble(root string) (*Context, error) {
	ctx := &Context{MaxTokens: a.maxTokens}
	included := make(map[string]bool)

	for _, rel := range baseFiles(root) {
		content, ok := readText(filepath.Join(root, rel))
		if !ok {
			continue
		}
		ctx.Files = append(ctx.Files, File{
			Path:    rel,
			Content: content,
			Tokens:  a.counter.Count(content),
		})
		included[rel] = true
	}
	for _, f := range ctx.Files {
		ctx.TotalTokens += f.Tokens
	}

	candidates, err := a.enumerateSources(root, included)
	if err != nil {
		return nil, err
	}

	for _, rel := range candidates {
		content, ok := readText(filepath.Join(root, rel))
		if !ok {
			continue
		}
		tokens := a.counter.Count(content)
		if ctx.TotalTokens+tokens > a.maxTokens {
			// First-fit in priority order is the policy: no attempt to
			// pack later, smaller files into the remaining budget.
			break
		}
		ctx.Files = append(ctx.Files, File{Path: rel, Content: content, Tokens: tokens})
		ctx.TotalTokens += tokens
	}

	return ctx, nil
}

// baseFiles returns the relative paths of the unconditional base files
// present in root: README, the first matching manifest, and the first
// matching entrypoint. Missing ones are omitted, not an error.
func baseFiles(root string) []string {
	var base []string
	if fileExists(filepath.Join(root, "README.md")) {
		base = append(base, "README.md")
	}
	for _, rel := range manifestCandidates {
		if fileExists(filepath.Join(root, rel)) {
			base = append(base, rel)
			break
		}
	}
	for _, rel := range entrypointCandidates {
		if fileExists(filepath.Join(root, rel)) {
			base = append(base, rel)
			break
		}
	}
	return base
}

// enumerateSources walks root collecting candidate source files, excluding
// the already-included base files, and sorts them by path depth then
// lexicographically. Shallow files approximate "most structurally
// important first".
func (a *Assembler) enumerateSources(root string, skip map[string]bool) ([]string, error) {
	var candidates []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if excludedDirs[name] || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !sourceExtensions[filepath.Ext(name)] {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if skip[rel] {
			return nil
		}
		candidates = append(candidates, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerating sources in %s: %w", root, err)
	}

	sort.Slice(candidates, func(i, j int) bool {
		di := strings.Count(candidates[i], string(filepath.Separator))
		dj := strings.Count(candidates[j], string(filepath.Separator))
		if di != dj {
			return di < dj
		}
		return candidates[i] < candidates[j]
	})
	return candidates, nil
}

// readText reads a file and reports whether it is usable text. Unreadable
// and binary content is skipped by the caller.
func readText(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	if isBinary(data) {
		return "", false
	}
	return string(data), true
}

// isBinary treats NUL bytes and invalid UTF-8 as binary markers.
func isBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	for _, b := range data {
		if b == 0 {
			return true
		}
	}
	return !utf8.Valid(data)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
