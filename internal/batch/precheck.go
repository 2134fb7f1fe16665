package batch

import (
	"context"

	"github.com/hochfrequenz/repo-migrator/internal/domain"
	"github.com/hochfrequenz/repo-migrator/internal/gitops"
)

// Precheck decides, without cloning, whether a repository is already
// migrated.
type Precheck struct {
	git *gitops.Client
}

// NewPrecheck creates a Precheck using the given git client.
func NewPrecheck(git *gitops.Client) *Precheck {
	return &Precheck{git: git}
}

// ShouldSkip reports whether the remote already carries a 1.x branch or
// the migration branch. A failing remote listing returns false: the
// precheck is an optimization, and an infrastructure error must schedule
// the repository rather than silently drop it.
func (p *Precheck) ShouldSkip(ctx context.Context, url string) bool {
	listing, err := p.git.ListRemoteBranches(ctx, url)
	if err != nil {
		return false
	}
	return listing.Has(domain.MigratedBranch) || listing.Has(domain.MigrationBranch)
}
