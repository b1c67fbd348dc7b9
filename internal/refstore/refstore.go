// Package refstore owns reads and writes of branch refs and HEAD:
// .VCS/refs/heads/<branch> and .VCS/HEAD.
package refstore

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cellvcs/internal/errors"
	"cellvcs/internal/hashing"
)

const headSymbolicPrefix = "ref: "

// RefStore reads and writes branch refs under <root>/refs/heads/ and the
// HEAD file at <root>/HEAD.
type RefStore struct {
	root string // .VCS directory
	mu   sync.RWMutex
}

// Open prepares a RefStore rooted at <vcsRoot>, creating refs/heads if
// absent.
func Open(vcsRoot string) (*RefStore, error) {
	headsDir := filepath.Join(vcsRoot, "refs", "heads")
	if err := os.MkdirAll(headsDir, 0o755); err != nil {
		return nil, errors.IoFailure("creating refs directory: " + err.Error())
	}
	return &RefStore{root: vcsRoot}, nil
}

func (r *RefStore) headPath() string {
	return filepath.Join(r.root, "HEAD")
}

func (r *RefStore) branchPath(name string) string {
	return filepath.Join(r.root, "refs", "heads", name)
}

// ReadBranch returns the commit hash a branch points at, or ok=false if
// the branch has never been committed to.
func (r *RefStore) ReadBranch(name string) (hash hashing.Hash, ok bool, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.readBranchLocked(name)
}

func (r *RefStore) readBranchLocked(name string) (hashing.Hash, bool, error) {
	b, err := os.ReadFile(r.branchPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return hashing.Hash{}, false, nil
		}
		return hashing.Hash{}, false, errors.IoFailure("reading branch ref: " + err.Error())
	}
	h, err := hashing.ParseHash(strings.TrimSpace(string(b)))
	if err != nil {
		return hashing.Hash{}, false, errors.CorruptCommit("malformed branch ref " + name + ": " + err.Error())
	}
	return h, true, nil
}

// WriteBranch sets branch name to point at hash.
func (r *RefStore) WriteBranch(name string, hash hashing.Hash) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeBranchLocked(name, hash)
}

func (r *RefStore) writeBranchLocked(name string, hash hashing.Hash) error {
	if err := os.MkdirAll(filepath.Dir(r.branchPath(name)), 0o755); err != nil {
		return errors.IoFailure("creating branch directory: " + err.Error())
	}
	return atomicWrite(r.branchPath(name), []byte(hash.String()+"\n"))
}

// HeadRef is the resolved state of HEAD: either attached to a branch name
// or detached at a raw commit hash.
type HeadRef struct {
	Branch   string // set iff attached
	Detached hashing.Hash
	Attached bool
}

// ReadHead parses HEAD and resolves it to a commit hash, ok=false if the
// referenced branch has no commits yet (a fresh repo).
func (r *RefStore) ReadHead() (hash hashing.Hash, ok bool, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ref, err := r.readHeadRefLocked()
	if err != nil {
		return hashing.Hash{}, false, err
	}
	if !ref.Attached {
		return ref.Detached, true, nil
	}
	return r.readBranchLocked(ref.Branch)
}

// ReadHeadRef returns the raw form of HEAD (attached branch name, or
// detached hash) without resolving an attached branch to its commit.
func (r *RefStore) ReadHeadRef() (HeadRef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.readHeadRefLocked()
}

func (r *RefStore) readHeadRefLocked() (HeadRef, error) {
	b, err := os.ReadFile(r.headPath())
	if err != nil {
		if os.IsNotExist(err) {
			// Fresh repo: HEAD defaults to an attached "main" with no commits.
			return HeadRef{Attached: true, Branch: "main"}, nil
		}
		return HeadRef{}, errors.IoFailure("reading HEAD: " + err.Error())
	}
	s := strings.TrimSpace(string(b))
	if strings.HasPrefix(s, headSymbolicPrefix) {
		rest := strings.TrimPrefix(s, headSymbolicPrefix)
		branch := strings.TrimPrefix(rest, "refs/heads/")
		return HeadRef{Attached: true, Branch: branch}, nil
	}
	h, err := hashing.ParseHash(s)
	if err != nil {
		return HeadRef{}, errors.CorruptCommit("malformed HEAD: " + err.Error())
	}
	return HeadRef{Attached: false, Detached: h}, nil
}

// SetHeadBranch writes HEAD as a symbolic ref to branch.
func (r *RefStore) SetHeadBranch(branch string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return atomicWrite(r.headPath(), []byte(headSymbolicPrefix+"refs/heads/"+branch+"\n"))
}

// SetHeadDetached writes HEAD as a raw hash (detached).
func (r *RefStore) SetHeadDetached(hash hashing.Hash) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return atomicWrite(r.headPath(), []byte(hash.String()+"\n"))
}

// AdvanceHead implements the ref-advance rule from the commit engine: if
// HEAD is attached to a branch, that branch file is updated; if detached,
// HEAD itself is updated.
func (r *RefStore) AdvanceHead(hash hashing.Hash) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref, err := r.readHeadRefLocked()
	if err != nil {
		return err
	}
	if ref.Attached {
		return r.writeBranchLocked(ref.Branch, hash)
	}
	return atomicWrite(r.headPath(), []byte(hash.String()+"\n"))
}

// CurrentBranch returns the attached branch name, and ok=false if HEAD is
// detached.
func (r *RefStore) CurrentBranch() (name string, ok bool, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, err := r.readHeadRefLocked()
	if err != nil {
		return "", false, err
	}
	return ref.Branch, ref.Attached, nil
}

func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-ref-*")
	if err != nil {
		return errors.IoFailure("creating temp ref file: " + err.Error())
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.IoFailure("writing ref: " + err.Error())
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.IoFailure("closing ref: " + err.Error())
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.IoFailure("finalizing ref: " + err.Error())
	}
	return nil
}
