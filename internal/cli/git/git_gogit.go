// --- START OF FINAL REVISED FILE internal/cli/git/git_gogit.go ---
package git

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	libgit "github.com/stackvity/obs2org/pkg/converter/git"
)

// patchTimeout bounds the diff computation of ModeSince.
const patchTimeout = 60 * time.Second

// GoGitClient implements the GitClient interface using go-git.
type GoGitClient struct {
	logger *slog.Logger
}

// NewGoGitClient creates a new GoGitClient.
func NewGoGitClient(loggerHandler slog.Handler) libgit.GitClient {
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(io.Discard, nil)
	}
	logger := slog.New(loggerHandler).With(slog.String("component", "gitClient"), slog.String("backend", "go-git"))
	return &GoGitClient{logger: logger}
}

// openRepo opens the repository containing dir and returns it with the
// slash-separated path of dir relative to the work tree root ("" for the root).
func (c *GoGitClient) openRepo(dir string) (*git.Repository, string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, "", libgit.Errorf("failed to get absolute path for '%s': %w", dir, err)
	}
	repo, err := git.PlainOpenWithOptions(absDir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, "", libgit.Errorf("repository not found at or above path '%s': %w", absDir, err)
		}
		return nil, "", libgit.Errorf("failed to open repository at '%s': %w", absDir, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, "", libgit.Errorf("failed to get worktree for '%s': %w", absDir, err)
	}
	prefix, err := relToRoot(worktree.Filesystem.Root(), absDir)
	if err != nil {
		return nil, "", libgit.Errorf("directory '%s' is not inside the work tree: %w", absDir, err)
	}
	return repo, prefix, nil
}

// relToRoot returns dir relative to root, resolving symlinks on both sides.
func relToRoot(root, dir string) (string, error) {
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		dir = resolved
	}
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", errors.New("path escapes work tree")
	}
	if rel == "." {
		return "", nil
	}
	return rel, nil
}

// resolveRevision resolves branches, tags, hashes and relative revisions like HEAD~1.
func (c *GoGitClient) resolveRevision(repo *git.Repository, refName string) (*plumbing.Hash, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(refName))
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) || errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, libgit.Errorf("invalid git reference '%s': %w", refName, err)
		}
		return nil, libgit.Errorf("could not resolve git reference '%s': %w", refName, err)
	}
	return hash, nil
}

// GetChangedFiles implements the GitClient interface using go-git.
func (c *GoGitClient) GetChangedFiles(dir, mode, ref string) ([]string, error) {
	logArgs := []any{slog.String("dir", dir), slog.String("mode", mode), slog.String("ref", ref)}
	c.logger.Debug("Getting changed files", logArgs...)

	if mode != libgit.ModeDiffOnly && mode != libgit.ModeSince {
		return nil, libgit.Errorf("unsupported git diff mode: %s", mode)
	}
	if mode == libgit.ModeSince && ref == "" {
		return nil, libgit.Errorf("git diff mode 'since' requires a non-empty reference")
	}

	repo, prefix, err := c.openRepo(dir)
	if err != nil {
		c.logger.Error("Failed to open repository", append(logArgs, slog.Any("error", err))...)
		return nil, err
	}

	changed := make(map[string]struct{})
	if err := c.addWorktreeChanges(repo, changed); err != nil {
		return nil, err
	}
	if mode == libgit.ModeSince {
		if err := c.addChangesSince(repo, ref, changed); err != nil {
			return nil, err
		}
	}

	files := make([]string, 0, len(changed))
	for p := range changed {
		if rel, ok := underPrefix(p, prefix); ok {
			files = append(files, rel)
		}
	}
	sort.Strings(files)
	c.logger.Debug("Found changed files", append(logArgs, slog.Int("count", len(files)))...)
	return files, nil
}

// addWorktreeChanges adds staged, unstaged and untracked files.
func (c *GoGitClient) addWorktreeChanges(repo *git.Repository, changed map[string]struct{}) error {
	worktree, err := repo.Worktree()
	if err != nil {
		return libgit.Errorf("failed to get worktree: %w", err)
	}
	status, err := worktree.Status()
	if err != nil {
		return libgit.Errorf("failed to get git status: %w", err)
	}
	for filePath, fileStatus := range status {
		if fileStatus.Staging == git.Unmodified && fileStatus.Worktree == git.Unmodified {
			continue
		}
		changed[filepath.ToSlash(filePath)] = struct{}{}
	}
	return nil
}

// addChangesSince adds files that differ between ref and HEAD.
func (c *GoGitClient) addChangesSince(repo *git.Repository, ref string, changed map[string]struct{}) error {
	headRef, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			c.logger.Warn("HEAD reference not found, repository might be empty")
			return nil
		}
		return libgit.Errorf("failed to get HEAD reference: %w", err)
	}
	headCommit, err := repo.CommitObject(headRef.Hash())
	if err != nil {
		return libgit.Errorf("failed to get HEAD commit object: %w", err)
	}
	sinceHash, err := c.resolveRevision(repo, ref)
	if err != nil {
		return err
	}
	sinceCommit, err := repo.CommitObject(*sinceHash)
	if err != nil {
		return libgit.Errorf("failed to get commit object for reference '%s': %w", ref, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), patchTimeout)
	defer cancel()
	patch, err := sinceCommit.PatchContext(ctx, headCommit)
	if err != nil {
		return libgit.Errorf("failed to generate patch between '%s' and HEAD: %w", ref, err)
	}
	for _, filePatch := range patch.FilePatches() {
		from, to := filePatch.Files()
		if to != nil {
			changed[filepath.ToSlash(to.Path())] = struct{}{}
		} else if from != nil {
			changed[filepath.ToSlash(from.Path())] = struct{}{}
		}
	}
	return nil
}

// underPrefix converts a work-tree path to a path relative to prefix.
func underPrefix(p, prefix string) (string, bool) {
	if prefix == "" {
		return p, true
	}
	if !strings.HasPrefix(p, prefix+"/") {
		return "", false
	}
	return strings.TrimPrefix(p, prefix+"/"), true
}

// --- END OF FINAL REVISED FILE internal/cli/git/git_gogit.go ---
