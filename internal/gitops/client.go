package gitops

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Client runs git operations for one local working directory at a time.
// It holds no per-repository state; all state lives in the working
// directories the caller passes in, one per repository.
type Client struct{}

// New creates a git Client.
func New() *Client {
	return &Client{}
}

// run executes git in dir and returns combined output.
func (c *Client) run(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("git %s failed: %w\n%s", args[0], err, out)
	}
	return string(out), nil
}

// runCtx executes git in dir under a context. Used for network operations
// (clone, fetch, push, ls-remote) which can block indefinitely.
func (c *Client) runCtx(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("git %s failed: %w\n%s", args[0], err, out)
	}
	return string(out), nil
}

// IsRepo reports whether dir is the top of a git working copy.
func (c *Client) IsRepo(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}

// Clone clones url into dest. When branch is non-empty the clone checks
// out that branch directly.
func (c *Client) Clone(ctx context.Context, url, dest, branch string) error {
	args := []string{"clone"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, url, dest)
	_, err := c.runCtx(ctx, "", args...)
	return err
}

// Fetch updates all remote refs in dir.
func (c *Client) Fetch(ctx context.Context, dir string) error {
	_, err := c.runCtx(ctx, dir, "fetch", "--prune", "origin")
	return err
}

// CurrentBranch returns the branch checked out in dir.
func (c *Client) CurrentBranch(dir string) (string, error) {
	out, err := c.run(dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// LocalBranchExists reports whether dir has a local branch with the name.
func (c *Client) LocalBranchExists(dir, branch string) bool {
	cmd := exec.Command("git", "rev-parse", "--verify", "--quiet", "refs/heads/"+branch)
	cmd.Dir = dir
	return cmd.Run() == nil
}

// RemoteBranchExists reports whether origin has the branch, based on the
// refs already fetched into dir.
func (c *Client) RemoteBranchExists(dir, branch string) bool {
	cmd := exec.Command("git", "rev-parse", "--verify", "--quiet", "refs/remotes/origin/"+branch)
	cmd.Dir = dir
	return cmd.Run() == nil
}

// Checkout switches dir to an existing local branch.
func (c *Client) Checkout(dir, branch string) error {
	_, err := c.run(dir, "checkout", branch)
	return err
}

// CheckoutTracking creates a local branch tracking origin/<branch> and
// switches to it.
func (c *Client) CheckoutTracking(dir, branch string) error {
	_, err := c.run(dir, "checkout", "-b", branch, "--track", "origin/"+branch)
	return err
}

// CreateBranch creates a new branch from the current HEAD and switches
// to it.
func (c *Client) CreateBranch(dir, branch string) error {
	_, err := c.run(dir, "checkout", "-b", branch)
	return err
}

// Push pushes branch to origin with upstream tracking set.
func (c *Client) Push(ctx context.Context, dir, branch string) error {
	_, err := c.runCtx(ctx, dir, "push", "--set-upstream", "origin", branch)
	return err
}

// CommitFile stages one file and commits it. A file that produced no
// staged change is not an error; the commit is simply skipped.
func (c *Client) CommitFile(dir, file, message string) error {
	if _, err := c.run(dir, "add", file); err != nil {
		return err
	}

	// Nothing staged means nothing to commit.
	cmd := exec.Command("git", "diff", "--cached", "--quiet")
	cmd.Dir = dir
	if cmd.Run() == nil {
		return nil
	}

	_, err := c.run(dir, "commit", "-m", message)
	return err
}

// BranchListing is the typed result of a remote branch enumeration.
type BranchListing struct {
	Branches []string
}

// Has reports whether the listing contains the branch.
func (l BranchListing) Has(branch string) bool {
	for _, b := range l.Branches {
		if b == branch {
			return true
		}
	}
	return false
}

// ListRemoteBranches enumerates the branches of a remote repository
// without cloning it.
func (c *Client) ListRemoteBranches(ctx context.Context, url string) (BranchListing, error) {
	out, err := c.runCtx(ctx, "", "ls-remote", "--heads", url)
	if err != nil {
		return BranchListing{}, err
	}
	return parseHeadRefs(out), nil
}

// ListLocalBranches enumerates local branch names in dir.
func (c *Client) ListLocalBranches(dir string) (BranchListing, error) {
	out, err := c.run(dir, "for-each-ref", "--format=%(refname:short)", "refs/heads")
	if err != nil {
		return BranchListing{}, err
	}
	var listing BranchListing
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			listing.Branches = append(listing.Branches, line)
		}
	}
	return listing, nil
}

// parseHeadRefs extracts branch names from ls-remote --heads output
// ("<sha>\trefs/heads/<name>" per line).
func parseHeadRefs(out string) BranchListing {
	var listing BranchListing
	for _, line := range strings.Split(out, "\n") {
		_, ref, found := strings.Cut(line, "\t")
		if !found {
			continue
		}
		ref = strings.TrimSpace(ref)
		if name, ok := strings.CutPrefix(ref, "refs/heads/"); ok {
			listing.Branches = append(listing.Branches, name)
		}
	}
	return listing
}
