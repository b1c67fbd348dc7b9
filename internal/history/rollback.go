package history

import (
	"fmt"

	"cellvcs/internal/cellpath"
	"cellvcs/internal/commit"
	"cellvcs/internal/errors"
	"cellvcs/internal/hashing"
	"cellvcs/internal/index"
	"cellvcs/internal/objstore"
	"cellvcs/internal/refstore"
	"cellvcs/internal/workbook"
	"go.uber.org/zap"
)

// HardResetResult reports what a hard reset touched.
type HardResetResult struct {
	Target        hashing.Hash
	AffectedCells int
}

// HardReset moves the current branch to target, clears the index, and
// rewrites the external workbook store to target's tree, restaging every
// cell with its original blob hash. Failures writing individual cells are
// logged and skipped — a single bad cell never aborts the whole
// operation, and the branch ref still advances (best-effort, per the
// error handling policy).
func HardReset(logger *zap.Logger, store *objstore.Store, refs *refstore.RefStore, ix *index.Index, wb workbook.Store, target hashing.Hash) (HardResetResult, error) {
	info, err := ReadCommit(store, target)
	if err != nil {
		return HardResetResult{}, err
	}

	if err := ix.Clear(); err != nil {
		return HardResetResult{}, err
	}

	entries, err := EntriesAt(store, info.Tree)
	if err != nil {
		return HardResetResult{}, err
	}

	affected := 0
	for _, e := range entries {
		blobHash, err := hashing.ParseHash(e.BlobHash)
		if err != nil {
			continue
		}
		value, err := blobValue(store, blobHash)
		if err != nil {
			if logger != nil {
				logger.Warn("hard reset: skipping unreadable blob", zap.String("workbook", e.WorkbookID), zap.Error(err))
			}
			continue
		}
		if err := wb.WriteCell(e.WorkbookID, e.SheetNumber, e.RowLetters, e.ColNumber, value); err != nil {
			if logger != nil {
				logger.Warn("hard reset: failed writing cell", zap.String("workbook", e.WorkbookID), zap.Error(err))
			}
			continue
		}
		addr, err := entryAddress(e)
		if err != nil {
			continue
		}
		if _, err := ix.Stage(addr, blobHash, e.OriginalSize, e.CompressedSize); err != nil {
			if logger != nil {
				logger.Warn("hard reset: failed restaging cell", zap.Error(err))
			}
			continue
		}
		affected++
	}

	if err := refs.AdvanceHead(target); err != nil {
		return HardResetResult{}, err
	}

	return HardResetResult{Target: target, AffectedCells: affected}, nil
}

// SoftResetResult reports the paths that would change; nothing is
// actually touched besides the branch ref.
type SoftResetResult struct {
	Target        hashing.Hash
	TouchedPaths  []string
}

// SoftReset moves the current branch to target without touching the
// index or the external workbook store.
func SoftReset(store *objstore.Store, refs *refstore.RefStore, target hashing.Hash) (SoftResetResult, error) {
	targetInfo, err := ReadCommit(store, target)
	if err != nil {
		return SoftResetResult{}, err
	}

	touched, err := diffTouchedPaths(store, refs, targetInfo.Tree)
	if err != nil {
		return SoftResetResult{}, err
	}

	if err := refs.AdvanceHead(target); err != nil {
		return SoftResetResult{}, err
	}

	return SoftResetResult{Target: target, TouchedPaths: touched}, nil
}

// Revert creates a new commit whose net effect undoes commitC: for every
// path that changed or was removed between commitC and its parent, the
// parent's version is staged; paths commitC added have no staged action,
// since the index has no deletion marker — a true revert of an add would
// also need to remove the cell, which this design does not model.
func Revert(store *objstore.Store, refs *refstore.RefStore, ix *index.Index, commitC hashing.Hash, author, email string) (commit.Result, error) {
	c, err := ReadCommit(store, commitC)
	if err != nil {
		return commit.Result{}, err
	}
	if !c.HasParent {
		return commit.Result{}, errors.Empty("cannot revert a commit with no parent")
	}

	cEntries, err := EntriesAt(store, c.Tree)
	if err != nil {
		return commit.Result{}, err
	}
	parent, err := ReadCommit(store, c.Parent)
	if err != nil {
		return commit.Result{}, err
	}
	pEntries, err := EntriesAt(store, parent.Tree)
	if err != nil {
		return commit.Result{}, err
	}

	cMap := entriesByPath(cEntries)
	pMap := entriesByPath(pEntries)

	if err := ix.Clear(); err != nil {
		return commit.Result{}, err
	}

	staged := 0
	for path := range union(cMap, pMap) {
		cEntry, inC := cMap[path]
		pEntry, inP := pMap[path]

		switch {
		case inC && inP:
			if cEntry.BlobHash != pEntry.BlobHash {
				if err := restage(ix, pEntry); err != nil {
					return commit.Result{}, err
				}
				staged++
			}
		case !inC && inP:
			if err := restage(ix, pEntry); err != nil {
				return commit.Result{}, err
			}
			staged++
		case inC && !inP:
			// C added this path; no deletion marker exists to express
			// removing it. Documented limitation.
		}
	}

	if staged == 0 {
		return commit.Result{}, errors.Empty("revert produced no staged changes")
	}

	message := fmt.Sprintf("Revert \"%s\"\n\nThis reverts commit %s.", c.Message, commitC.String())
	return commit.Commit(store, refs, ix, commit.Request{Message: message, Author: author, Email: email})
}

// CherryPick replays commitC's entire tree snapshot as a new commit on
// top of the current HEAD.
func CherryPick(store *objstore.Store, refs *refstore.RefStore, ix *index.Index, commitC hashing.Hash, author, email string) (commit.Result, error) {
	c, err := ReadCommit(store, commitC)
	if err != nil {
		return commit.Result{}, err
	}
	if !c.HasParent {
		return commit.Result{}, errors.Empty("cannot cherry-pick a commit with no parent")
	}

	entries, err := EntriesAt(store, c.Tree)
	if err != nil {
		return commit.Result{}, err
	}

	if err := ix.Clear(); err != nil {
		return commit.Result{}, err
	}

	for _, e := range entries {
		if err := restage(ix, e); err != nil {
			return commit.Result{}, err
		}
	}

	message := fmt.Sprintf("%s\n\n(cherry picked from commit %s)", c.Message, commitC.String())
	return commit.Commit(store, refs, ix, commit.Request{Message: message, Author: author, Email: email})
}

// Preview describes what a reset/revert/cherry-pick would touch, without
// performing it.
type Preview struct {
	Kind         string
	Current      *Info
	Target       Info
	TouchedPaths []string
	Destructive  bool
	Warning      string
}

// PreviewRollback computes the preview for kind against target, relative
// to the current HEAD.
func PreviewRollback(store *objstore.Store, refs *refstore.RefStore, kind string, target hashing.Hash) (Preview, error) {
	targetInfo, err := ReadCommit(store, target)
	if err != nil {
		return Preview{}, err
	}

	var current *Info
	headHash, ok, err := refs.ReadHead()
	if err != nil {
		return Preview{}, err
	}
	if ok {
		ci, err := ReadCommit(store, headHash)
		if err != nil {
			return Preview{}, err
		}
		current = &ci
	}

	touched, err := diffTouchedPaths(store, refs, targetInfo.Tree)
	if err != nil {
		return Preview{}, err
	}

	destructive := kind == "hard_reset" || kind == "revert"
	warning := ""
	if kind == "revert" {
		warning = "reverting a commit that added a cell cannot remove it; the index has no deletion marker"
	}

	return Preview{
		Kind:         kind,
		Current:      current,
		Target:       targetInfo,
		TouchedPaths: touched,
		Destructive:  destructive,
		Warning:      warning,
	}, nil
}

func diffTouchedPaths(store *objstore.Store, refs *refstore.RefStore, targetTree hashing.Hash) ([]string, error) {
	targetEntries, err := EntriesAt(store, targetTree)
	if err != nil {
		return nil, err
	}
	targetMap := entriesByPath(targetEntries)

	currentMap := map[string]index.Entry{}
	if headHash, ok, err := refs.ReadHead(); err == nil && ok {
		headInfo, err := ReadCommit(store, headHash)
		if err == nil {
			currentEntries, err := EntriesAt(store, headInfo.Tree)
			if err == nil {
				currentMap = entriesByPath(currentEntries)
			}
		}
	}

	touchedSet := union(targetMap, currentMap)
	touched := make([]string, 0, len(touchedSet))
	for path := range touchedSet {
		cur, inCur := currentMap[path]
		tgt, inTgt := targetMap[path]
		if inCur && inTgt && cur.BlobHash == tgt.BlobHash {
			continue
		}
		touched = append(touched, path)
	}
	return touched, nil
}

func entriesByPath(entries []index.Entry) map[string]index.Entry {
	m := make(map[string]index.Entry, len(entries))
	for _, e := range entries {
		path := fmt.Sprintf("%s/%d/%s%d", e.WorkbookID, e.SheetNumber, e.RowLetters, e.ColNumber)
		m[path] = e
	}
	return m
}

func union(a, b map[string]index.Entry) map[string]struct{} {
	u := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		u[k] = struct{}{}
	}
	for k := range b {
		u[k] = struct{}{}
	}
	return u
}

func restage(ix *index.Index, e index.Entry) error {
	addr, err := entryAddress(e)
	if err != nil {
		return err
	}
	hash, err := hashing.ParseHash(e.BlobHash)
	if err != nil {
		return errors.CorruptObject("malformed blob hash in tree entry: " + err.Error())
	}
	_, err = ix.Stage(addr, hash, e.OriginalSize, e.CompressedSize)
	return err
}

func blobValue(store *objstore.Store, hash hashing.Hash) (string, error) {
	kind, payload, err := store.Get(hash)
	if err != nil {
		return "", err
	}
	if kind != objstore.KindBlob {
		return "", errors.CorruptObject("object " + hash.String() + " is not a blob")
	}
	return string(payload), nil
}

func entryAddress(e index.Entry) (cellpath.Address, error) {
	addr := cellpath.Address{
		WorkbookID:  e.WorkbookID,
		SheetNumber: e.SheetNumber,
		Letters:     e.RowLetters,
		Number:      e.ColNumber,
	}
	if err := addr.Validate(); err != nil {
		return cellpath.Address{}, errors.InvalidInput(err.Error())
	}
	return addr, nil
}
