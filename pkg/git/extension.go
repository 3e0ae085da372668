package git

import (
	"context"

	"github.com/walteh/saltext-migrate/pkg/shell"
	"gitlab.com/tozd/go/errors"
)

const (
	// InitialBranch is the default branch of a new extension repository
	InitialBranch = "main"
	// SourceRemote is the temporary remote pointing at the Salt checkout
	SourceRemote = "repo-source"
)

// 🌱 Extension is the newly generated extension repository
type Extension struct {
	*Repo
}

// 🏭 NewExtension creates a handle for the extension repository at path
func NewExtension(runner shell.Runner, path string) *Extension {
	return &Extension{Repo: NewRepo(runner, path)}
}

// Init creates an empty repository
func (e *Extension) Init(ctx context.Context) error {
	if _, err := e.Git(ctx, "init", "--initial-branch", InitialBranch); err != nil {
		return errors.Errorf("initializing extension repository: %w", err)
	}
	return nil
}

// 🔀 MergeFrom merges branch of the repository at sourcePath through a
// temporary remote that is removed again even when the merge fails
func (e *Extension) MergeFrom(ctx context.Context, sourcePath, branch string) (err error) {
	if _, err := e.Git(ctx, "remote", "add", SourceRemote, sourcePath); err != nil {
		return errors.Errorf("adding remote %s: %w", SourceRemote, err)
	}
	defer func() {
		if _, rmErr := e.Git(ctx, "remote", "rm", SourceRemote); rmErr != nil && err == nil {
			err = errors.Errorf("removing remote %s: %w", SourceRemote, rmErr)
		}
	}()

	if _, err := e.Git(ctx, "fetch", SourceRemote); err != nil {
		return errors.Errorf("fetching filtered history: %w", err)
	}
	if _, err := e.Git(ctx, "merge", SourceRemote+"/"+branch); err != nil {
		return errors.Errorf("merging filtered history: %w", err)
	}
	return nil
}

// DeleteAllTags removes every tag, Salt release tags are meaningless here
func (e *Extension) DeleteAllTags(ctx context.Context) (int, error) {
	out, err := e.Git(ctx, "tag")
	if err != nil {
		return 0, errors.Errorf("listing tags: %w", err)
	}
	tags := lines(out)
	if len(tags) == 0 {
		return 0, nil
	}
	if _, err := e.Git(ctx, append([]string{"tag", "-d"}, tags...)...); err != nil {
		return 0, errors.Errorf("deleting tags: %w", err)
	}
	return len(tags), nil
}
