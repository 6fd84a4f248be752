package gitctx

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joeynyc/Citadel-Local/internal/repo"
	"github.com/joeynyc/Citadel-Local/internal/review"
)

// ErrGitMissing is returned when no git binary is found on PATH.
var ErrGitMissing = errors.New("git is not available on PATH")

// CheckRepo verifies that git is installed and dir is inside a work tree.
func CheckRepo(dir string) error {
	if _, err := exec.LookPath("git"); err != nil {
		return ErrGitMissing
	}
	if _, err := gitOutput(dir, "rev-parse", "--is-inside-work-tree"); err != nil {
		return fmt.Errorf("%s is not a git repository", dir)
	}
	return nil
}

// ChangedFiles returns the absolute, sorted paths of files under dir that
// differ from base. It takes the union of committed changes since the merge
// base (base...HEAD), staged changes and unstaged changes. Deleted files and
// files failing the ignore or size filters are dropped.
//
// A diff that git cannot produce, such as an unknown base ref, contributes
// no paths rather than failing the call.
func ChangedFiles(dir, base string, ignore []string, maxBytes int64) ([]string, error) {
	if err := CheckRepo(dir); err != nil {
		return nil, err
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}

	names := make(map[string]bool)
	for _, args := range [][]string{{base + "...HEAD"}, {"--cached"}, {}} {
		for _, name := range diffNames(root, args...) {
			names[name] = true
		}
	}

	rels := make([]string, 0, len(names))
	for name := range names {
		rels = append(rels, name)
	}
	sort.Strings(rels)

	var files []string
	for _, rel := range rels {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if !repo.Eligible(root, path, ignore, maxBytes) {
			continue
		}
		files = append(files, path)
	}
	return files, nil
}

// diffNames lists paths reported by git diff, relative to dir. Paths outside
// dir are excluded. Errors yield no names.
func diffNames(dir string, extra ...string) []string {
	args := append([]string{"diff", "--name-only", "--relative", "-z"}, extra...)
	out, err := gitOutput(dir, args...)
	if err != nil {
		return nil
	}
	var names []string
	for _, name := range strings.Split(out, "\x00") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// GetRepoMeta collects repository metadata from git.
func GetRepoMeta(dir string) (review.GitInfo, error) {
	root, err := gitOutput(dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return review.GitInfo{}, fmt.Errorf("not a git repository: %w", err)
	}
	head, err := gitOutput(dir, "rev-parse", "HEAD")
	if err != nil {
		head = "" // new repo with no commits
	}
	branch, err := gitOutput(dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		branch = ""
	}
	return review.GitInfo{
		Root:   strings.TrimSpace(root),
		Head:   strings.TrimSpace(head),
		Branch: strings.TrimSpace(branch),
	}, nil
}

// GitDir returns the absolute path of the .git directory for dir.
func GitDir(dir string) (string, error) {
	out, err := gitOutput(dir, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return "", fmt.Errorf("not a git repository: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func gitOutput(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), fmt.Errorf("%s: %s", err, string(exitErr.Stderr))
		}
		return "", err
	}
	return string(out), nil
}
