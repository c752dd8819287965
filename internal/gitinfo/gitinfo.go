// Package gitinfo exposes the state of the git repository containing a site
// to the resolver scope and templates.
package gitinfo

import (
	"time"

	ggit "github.com/go-git/go-git/v5"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
)

const shortLen = 7

// Info describes the HEAD commit of a repository.
type Info struct {
	Commit string
	Short  string
	Branch string
	Author string
	Email  string
	Date   time.Time
}

// Read opens the repository containing dir, searching parent directories.
func Read(dir string) (*Info, error) {
	repo, err := ggit.PlainOpenWithOptions(dir, &ggit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryGit, "failed to open git repository").
			WithContext("path", dir).
			Build()
	}

	ref, err := repo.Head()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryGit, "failed to resolve HEAD").
			WithContext("path", dir).
			Build()
	}

	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryGit, "failed to read HEAD commit").
			WithContext("path", dir).
			WithContext("commit", ref.Hash().String()).
			Build()
	}

	hash := ref.Hash().String()
	info := &Info{
		Commit: hash,
		Short:  hash[:shortLen],
		Author: commit.Author.Name,
		Email:  commit.Author.Email,
		Date:   commit.Author.When,
	}
	if ref.Name().IsBranch() {
		info.Branch = ref.Name().Short()
	}
	return info, nil
}

// Scope returns the values published as the "git" resolver scope.
// A nil Info yields an empty scope so %{git.commit} resolves to an error
// instead of a panic.
func (i *Info) Scope() map[string]any {
	if i == nil {
		return map[string]any{}
	}
	return map[string]any{
		"commit": i.Commit,
		"short":  i.Short,
		"branch": i.Branch,
		"author": i.Author,
		"email":  i.Email,
		"date":   i.Date.UTC().Format(time.RFC3339),
	}
}
