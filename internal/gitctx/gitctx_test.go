package gitctx

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeynyc/Citadel-Local/internal/repo"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

type testRepo struct {
	t   *testing.T
	dir string
}

func (r testRepo) run(args ...string) {
	r.t.Helper()
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = r.dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test",
		"GIT_AUTHOR_EMAIL=test@test.com",
		"GIT_COMMITTER_NAME=test",
		"GIT_COMMITTER_EMAIL=test@test.com",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		r.t.Fatalf("command %v failed: %v\n%s", args, err, out)
	}
}

func (r testRepo) write(rel, content string) {
	r.t.Helper()
	p := filepath.Join(r.dir, rel)
	require.NoError(r.t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(r.t, os.WriteFile(p, []byte(content), 0o644))
}

func setupTestRepo(t *testing.T) testRepo {
	t.Helper()
	requireGit(t)
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	r := testRepo{t: t, dir: dir}

	r.run("git", "init")
	r.run("git", "checkout", "-b", "main")
	r.write("app.py", "print('hello')\n")
	r.write("util.py", "def helper():\n    pass\n")
	r.write("gone.py", "x = 1\n")
	r.run("git", "add", "-A")
	r.run("git", "commit", "-m", "init")
	return r
}

func TestCheckRepo_NotARepo(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	err := CheckRepo(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a git repository")
}

func TestCheckRepo_OK(t *testing.T) {
	r := setupTestRepo(t)
	assert.NoError(t, CheckRepo(r.dir))
}

func TestChangedFiles(t *testing.T) {
	r := setupTestRepo(t)
	r.run("git", "checkout", "-b", "feature")

	// Committed on the branch.
	r.write("feature.py", "eval(x)\n")
	r.run("git", "add", "feature.py")
	r.run("git", "commit", "-m", "feature")
	// Staged.
	r.write("staged.js", "Math.random()\n")
	r.run("git", "add", "staged.js")
	// Unstaged modification.
	r.write("app.py", "print('changed')\n")
	// Deleted file is dropped.
	r.run("git", "rm", "-q", "gone.py")
	// Ignored directory is dropped.
	r.write("vendor/lib.py", "x\n")
	r.run("git", "add", "vendor/lib.py")

	files, err := ChangedFiles(r.dir, "main", repo.DefaultIgnore, repo.MaxBytes(2))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(r.dir, "app.py"),
		filepath.Join(r.dir, "feature.py"),
		filepath.Join(r.dir, "staged.js"),
	}, files)
}

func TestChangedFiles_UnknownBaseStillSeesWorkingTree(t *testing.T) {
	r := setupTestRepo(t)
	r.write("util.py", "def helper():\n    return 1\n")

	files, err := ChangedFiles(r.dir, "origin/does-not-exist", nil, repo.MaxBytes(2))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(r.dir, "util.py")}, files)
}

func TestChangedFiles_NoChanges(t *testing.T) {
	r := setupTestRepo(t)
	files, err := ChangedFiles(r.dir, "main", nil, repo.MaxBytes(2))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestChangedFiles_OversizedDropped(t *testing.T) {
	r := setupTestRepo(t)
	r.write("app.py", string(make([]byte, 4096)))
	files, err := ChangedFiles(r.dir, "main", nil, 1024)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestChangedFiles_NotARepo(t *testing.T) {
	requireGit(t)
	_, err := ChangedFiles(t.TempDir(), "main", nil, 1024)
	assert.Error(t, err)
}

func TestGetRepoMeta(t *testing.T) {
	r := setupTestRepo(t)
	meta, err := GetRepoMeta(r.dir)
	require.NoError(t, err)
	assert.Equal(t, r.dir, meta.Root)
	assert.Len(t, meta.Head, 40)
	assert.Equal(t, "main", meta.Branch)
}

func TestGitDir(t *testing.T) {
	r := setupTestRepo(t)
	dir, err := GitDir(r.dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(r.dir, ".git"), dir)
}
