package domain

import (
	"regexp"
	"strings"
)

// registryRefPattern matches the only registry value shape treated as a
// task: "github:owner/repo".
var registryRefPattern = regexp.MustCompile(`^github:([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+)$`)

// ParseRegistryEntry converts one registry entry into a RepoTask. Entries
// whose value does not match the github:owner/repo shape are not tasks;
// the second return is false and the caller ignores them.
func ParseRegistryEntry(name, ref string) (RepoTask, bool) {
	m := registryRefPattern.FindStringSubmatch(ref)
	if m == nil {
		return RepoTask{}, false
	}
	return RepoTask{
		Name: name,
		URL:  "https://github.com/" + m[1] + "/" + m[2] + ".git",
	}, true
}

// IsRemoteTarget reports whether a migration target names a remote
// repository rather than a local working copy.
func IsRemoteTarget(target string) bool {
	return strings.HasPrefix(target, "https://") ||
		strings.HasPrefix(target, "http://") ||
		strings.HasPrefix(target, "ssh://") ||
		strings.HasPrefix(target, "git@")
}

// RepoNameFromTarget derives a directory-safe repository name from a URL
// or local path: the last path element with any .git suffix removed.
func RepoNameFromTarget(target string) string {
	s := strings.TrimSuffix(target, "/")
	s = strings.TrimSuffix(s, ".git")
	if idx := strings.LastIndexAny(s, "/:"); idx >= 0 {
		s = s[idx+1:]
	}
	if s == "" {
		return "repository"
	}
	return s
}
