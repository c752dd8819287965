package integration

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// setupTestRepo copies a fixture site into a temporary directory and commits
// it to a fresh git repository. It returns the directory and the commit hash.
func setupTestRepo(t *testing.T, sitePath string) (string, string) {
	t.Helper()

	tmpDir := t.TempDir()
	require.NoError(t, copyDir(sitePath, tmpDir), "failed to copy fixture site")

	repo, err := git.PlainInit(tmpDir, false)
	require.NoError(t, err, "failed to initialize git repo")

	w, err := repo.Worktree()
	require.NoError(t, err, "failed to get worktree")
	require.NoError(t, w.AddGlob("."), "failed to add files to git")

	hash, err := w.Commit("Initial test commit", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Test",
			Email: "test@example.com",
			When:  time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err, "failed to create initial commit")
	return tmpDir, hash.String()
}

// copyDir recursively copies a directory tree.
func copyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		targetPath := filepath.Join(dst, relPath)
		if info.IsDir() {
			return os.MkdirAll(targetPath, 0o750)
		}
		return copyFile(path, targetPath)
	})
}

func copyFile(src, dst string) error {
	// #nosec G304 -- test utility with paths from test setup, not user input
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = srcFile.Close() }()

	// #nosec G304 -- test utility with paths from test setup, not user input
	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = dstFile.Close() }()

	_, err = io.Copy(dstFile, srcFile)
	return err
}

// listFiles returns the slash separated paths of every file below dir.
func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	require.NoError(t, err)
	sort.Strings(files)
	return files
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	// #nosec G304 -- test utility reading from test output directory
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}
