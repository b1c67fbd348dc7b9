// Package commit materializes trees from staged entries, writes commit
// objects, and advances branch refs.
package commit

import (
	"fmt"
	"strings"
	"time"

	"cellvcs/internal/errors"
	"cellvcs/internal/hashing"
	"cellvcs/internal/index"
	"cellvcs/internal/objstore"
	"cellvcs/internal/refstore"
)

// Request is the validated input to Commit.
type Request struct {
	Message string
	Author  string
	Email   string
}

// Result is the outcome of a successful commit, mirroring the API
// surface's commit() return shape.
type Result struct {
	CommitHash  hashing.Hash
	TreeHash    hashing.Hash
	ParentHash  hashing.Hash
	HasParent   bool
	Branch      string
	StagedFiles int
	Timestamp   time.Time
}

// Validate checks message/author/email per the commit engine's rules.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return errors.InvalidInput("commit message must not be empty")
	}
	if strings.TrimSpace(r.Author) == "" {
		return errors.InvalidInput("commit author must not be empty")
	}
	if !strings.Contains(r.Email, "@") {
		return errors.InvalidInput("commit email must contain '@'")
	}
	return nil
}

// Commit reads every staged entry, materializes the tree, writes the
// commit object, advances the current branch ref, and clears the index.
func Commit(store *objstore.Store, refs *refstore.RefStore, ix *index.Index, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	entries, err := ix.List()
	if err != nil {
		return Result{}, err
	}
	if len(entries) == 0 {
		return Result{}, errors.Empty("nothing staged to commit")
	}

	treeHash, err := MaterializeTree(store, entries)
	if err != nil {
		return Result{}, err
	}

	parentHash, hasParent, err := refs.ReadHead()
	if err != nil {
		return Result{}, err
	}

	now := time.Now()
	payload := buildCommitPayload(treeHash, parentHash, hasParent, req.Author, req.Email, now, req.Message)

	commitHash, err := store.Put(objstore.KindCommit, payload)
	if err != nil {
		return Result{}, err
	}

	if err := refs.AdvanceHead(commitHash); err != nil {
		return Result{}, err
	}

	branch, attached, err := refs.CurrentBranch()
	if err != nil {
		return Result{}, err
	}
	if !attached {
		branch = ""
	}

	if err := ix.Clear(); err != nil {
		return Result{}, err
	}

	return Result{
		CommitHash:  commitHash,
		TreeHash:    treeHash,
		ParentHash:  parentHash,
		HasParent:   hasParent,
		Branch:      branch,
		StagedFiles: len(entries),
		Timestamp:   now,
	}, nil
}

func buildCommitPayload(tree, parent hashing.Hash, hasParent bool, author, email string, when time.Time, message string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "tree %s\n", tree.String())
	if hasParent {
		fmt.Fprintf(&b, "parent %s\n", parent.String())
	}
	fmt.Fprintf(&b, "author %s <%s> %d +0000\n", author, email, when.Unix())
	fmt.Fprintf(&b, "committer %s <%s> %d +0000\n", author, email, when.Unix())
	b.WriteString("\n")
	b.WriteString(strings.TrimRight(message, "\n"))
	b.WriteString("\n")
	return []byte(b.String())
}
