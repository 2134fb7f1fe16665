package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/hochfrequenz/repo-migrator/internal/domain"
)

// ParseRegistry decodes a registry document into tasks. The registry is a
// JSON object mapping arbitrary names to "provider:owner/repo" strings;
// entries that do not match the supported shape are ignored, not errored.
// Tasks are returned in name order so batch runs are deterministic.
func ParseRegistry(data []byte) ([]domain.RepoTask, error) {
	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing registry: %w", err)
	}

	var tasks []domain.RepoTask
	for name, ref := range entries {
		if task, ok := domain.ParseRegistryEntry(name, ref); ok {
			tasks = append(tasks, task)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Name < tasks[j].Name })
	return tasks, nil
}

// LoadRegistry reads a registry from a local path or an HTTP(S) URL. An
// unreadable registry is a precondition failure that aborts the batch
// before any task starts.
func LoadRegistry(ctx context.Context, source string) ([]domain.RepoTask, error) {
	data, err := readRegistry(ctx, source)
	if err != nil {
		return nil, &domain.ConfigError{Reason: fmt.Sprintf("reading registry %s: %v", source, err)}
	}
	return ParseRegistry(data)
}

func readRegistry(ctx context.Context, source string) ([]byte, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		return os.ReadFile(source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
