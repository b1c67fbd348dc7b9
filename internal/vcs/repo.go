// Package vcs wires the object store, ref store, staging index, commit
// engine, and history machinery into the single handle external callers
// (CLI, HTTP) use — the core's "global mutable state" encapsulated behind
// one entry point instead of scattered call sites touching .VCS/ paths
// directly.
package vcs

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"cellvcs/internal/audit"
	"cellvcs/internal/cellpath"
	"cellvcs/internal/codec"
	"cellvcs/internal/commit"
	"cellvcs/internal/diff"
	"cellvcs/internal/errors"
	"cellvcs/internal/hashing"
	"cellvcs/internal/history"
	"cellvcs/internal/index"
	"cellvcs/internal/objstore"
	"cellvcs/internal/refstore"
	"cellvcs/internal/workbook"
	shared "cellvcs/shared/types"
)

const vcsDirName = ".VCS"

// Repo is the single handle through which every core operation runs.
type Repo struct {
	root    string
	vcsRoot string

	store    *objstore.Store
	meta     *objstore.MetaCache
	refs     *refstore.RefStore
	index    *index.Index
	audit    *audit.Log
	workbook workbook.Store
	logger   *zap.Logger
	diff     *diff.Engine
}

// Open wires a Repo rooted at root (which must already contain a .VCS
// directory created by Init). wb is the external workbook store; logger
// may be nil.
func Open(root string, wb workbook.Store, logger *zap.Logger) (*Repo, error) {
	vcsRoot := filepath.Join(root, vcsDirName)
	if _, err := os.Stat(vcsRoot); err != nil {
		return nil, errors.NotFound("no .VCS directory at " + root + "; run Init first")
	}

	meta, err := objstore.OpenMetaCache(filepath.Join(vcsRoot, "meta", "objects"))
	if err != nil {
		return nil, err
	}
	store, err := objstore.Open(vcsRoot, meta)
	if err != nil {
		return nil, err
	}
	refs, err := refstore.Open(vcsRoot)
	if err != nil {
		return nil, err
	}
	auditLog, err := audit.Open(filepath.Join(vcsRoot, "meta", "audit"))
	if err != nil {
		return nil, err
	}

	return &Repo{
		root:     root,
		vcsRoot:  vcsRoot,
		store:    store,
		meta:     meta,
		refs:     refs,
		index:    index.Open(vcsRoot),
		audit:    auditLog,
		workbook: wb,
		logger:   logger,
		diff:     diff.NewEngine(3),
	}, nil
}

// Init creates a fresh .VCS directory tree at root (objects/, refs/heads/,
// HEAD attached to "main", an empty index) and opens it.
func Init(root string, wb workbook.Store, logger *zap.Logger) (*Repo, error) {
	vcsRoot := filepath.Join(root, vcsDirName)
	if err := os.MkdirAll(vcsRoot, 0o755); err != nil {
		return nil, errors.IoFailure("creating .VCS: " + err.Error())
	}
	if err := os.MkdirAll(filepath.Join(vcsRoot, "refs", "heads"), 0o755); err != nil {
		return nil, errors.IoFailure("creating refs: " + err.Error())
	}
	headPath := filepath.Join(vcsRoot, "HEAD")
	if _, err := os.Stat(headPath); os.IsNotExist(err) {
		if err := os.WriteFile(headPath, []byte("ref: refs/heads/main\n"), 0o644); err != nil {
			return nil, errors.IoFailure("writing initial HEAD: " + err.Error())
		}
	}
	return Open(root, wb, logger)
}

// Close releases the badger handles backing the object metadata cache
// and audit log.
func (r *Repo) Close() error {
	var firstErr error
	if err := r.audit.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := r.meta.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Stage reads a cell's current value from the workbook store, frames and
// hashes it, writes the blob, and records an index entry.
func (r *Repo) Stage(workbookID string, sheet int, rowLetters string, col int) (shared.StageResult, error) {
	addr := cellpath.Address{WorkbookID: workbookID, SheetNumber: sheet, Letters: rowLetters, Number: col}
	if err := addr.Validate(); err != nil {
		return shared.StageResult{}, errors.InvalidInput(err.Error())
	}

	value, err := r.workbook.ReadCell(workbookID, sheet, rowLetters, col)
	if err != nil {
		return shared.StageResult{}, errors.IoFailure("reading cell: " + err.Error())
	}

	framed, hash, err := hashing.FrameAndHash("blob", []byte(value))
	if err != nil {
		return shared.StageResult{}, err
	}

	if _, err := r.store.Put(objstore.KindBlob, []byte(value)); err != nil {
		return shared.StageResult{}, err
	}

	compressed, err := codec.Deflate(framed)
	if err != nil {
		return shared.StageResult{}, errors.IoFailure("compressing blob: " + err.Error())
	}

	outcome, err := r.index.Stage(addr, hash, len(value), len(compressed))
	if err != nil {
		return shared.StageResult{}, err
	}

	return shared.StageResult{
		BlobHash:       hash.String(),
		CellAddress:    addr.CellAddress(),
		OriginalSize:   len(value),
		CompressedSize: len(compressed),
		Staged:         outcome != index.Unchanged,
		State:          string(outcome),
	}, nil
}

// Commit materializes the staged entries into a commit and advances the
// branch.
func (r *Repo) Commit(message, author, email string) (shared.CommitResult, error) {
	res, err := commit.Commit(r.store, r.refs, r.index, commit.Request{Message: message, Author: author, Email: email})
	r.audit.Append("commit", hashHex(res.CommitHash), err)
	if err != nil {
		return shared.CommitResult{}, err
	}

	out := shared.CommitResult{
		CommitHash:  res.CommitHash.String(),
		TreeHash:    res.TreeHash.String(),
		Branch:      res.Branch,
		StagedFiles: res.StagedFiles,
		Timestamp:   res.Timestamp,
	}
	if res.HasParent {
		out.ParentHash = res.ParentHash.String()
	}
	return out, nil
}

// Status summarizes the current staging state.
func (r *Repo) Status() (shared.StatusReport, error) {
	entries, err := r.index.List()
	if err != nil {
		return shared.StatusReport{}, err
	}

	report := shared.StatusReport{Staged: len(entries), Clean: len(entries) == 0}
	for _, e := range entries {
		report.StagedFiles = append(report.StagedFiles, fmt.Sprintf("%s/%d/%s%d", e.WorkbookID, e.SheetNumber, e.RowLetters, e.ColNumber))
	}

	if headHash, ok, err := r.refs.ReadHead(); err == nil && ok {
		info, err := history.ReadCommit(r.store, headHash)
		if err == nil {
			ci := info.ToCommitInfo()
			report.LastCommit = &ci
		}
	}
	return report, nil
}

// History walks HEAD's parent chain, returning up to limit commits.
func (r *Repo) History(limit int) ([]shared.CommitInfo, error) {
	headHash, ok, err := r.refs.ReadHead()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	infos, err := history.History(r.store, headHash, limit)
	if err != nil {
		return nil, err
	}
	out := make([]shared.CommitInfo, len(infos))
	for i, info := range infos {
		out[i] = info.ToCommitInfo()
	}
	return out, nil
}

// HardReset moves the current branch to target, clears the index, and
// rewrites the workbook store to target's tree.
func (r *Repo) HardReset(targetHex string) (history.HardResetResult, error) {
	target, err := hashing.ParseHash(targetHex)
	if err != nil {
		return history.HardResetResult{}, errors.InvalidInput("malformed target hash: " + err.Error())
	}
	res, err := history.HardReset(r.logger, r.store, r.refs, r.index, r.workbook, target)
	r.audit.Append("hard_reset", targetHex, err)
	return res, err
}

// SoftReset moves the current branch to target, leaving the index and
// workbook store untouched.
func (r *Repo) SoftReset(targetHex string) (history.SoftResetResult, error) {
	target, err := hashing.ParseHash(targetHex)
	if err != nil {
		return history.SoftResetResult{}, errors.InvalidInput("malformed target hash: " + err.Error())
	}
	res, err := history.SoftReset(r.store, r.refs, target)
	r.audit.Append("soft_reset", targetHex, err)
	return res, err
}

// Revert creates a new commit undoing commitHex.
func (r *Repo) Revert(commitHex, author, email string) (shared.CommitResult, error) {
	c, err := hashing.ParseHash(commitHex)
	if err != nil {
		return shared.CommitResult{}, errors.InvalidInput("malformed commit hash: " + err.Error())
	}
	res, err := history.Revert(r.store, r.refs, r.index, c, author, email)
	r.audit.Append("revert", commitHex, err)
	if err != nil {
		return shared.CommitResult{}, err
	}
	return toCommitResult(res), nil
}

// CherryPick replays commitHex's snapshot as a new commit on HEAD.
func (r *Repo) CherryPick(commitHex, author, email string) (shared.CommitResult, error) {
	c, err := hashing.ParseHash(commitHex)
	if err != nil {
		return shared.CommitResult{}, errors.InvalidInput("malformed commit hash: " + err.Error())
	}
	res, err := history.CherryPick(r.store, r.refs, r.index, c, author, email)
	r.audit.Append("cherry_pick", commitHex, err)
	if err != nil {
		return shared.CommitResult{}, err
	}
	return toCommitResult(res), nil
}

// PreviewRollback reports what kind of rollback against targetHex would
// touch, without performing it, including a per-cell value diff for every
// touched path that has both an old and a new blob to compare.
func (r *Repo) PreviewRollback(targetHex, kind string) (shared.RollbackPreview, error) {
	target, err := hashing.ParseHash(targetHex)
	if err != nil {
		return shared.RollbackPreview{}, errors.InvalidInput("malformed target hash: " + err.Error())
	}
	p, err := history.PreviewRollback(r.store, r.refs, kind, target)
	if err != nil {
		return shared.RollbackPreview{}, err
	}

	out := shared.RollbackPreview{
		Kind:         p.Kind,
		TouchedPaths: p.TouchedPaths,
		Destructive:  p.Destructive,
		Warning:      p.Warning,
	}
	targetCI := p.Target.ToCommitInfo()
	out.Target = &targetCI
	if p.Current != nil {
		ci := p.Current.ToCommitInfo()
		out.Current = &ci
	}

	out.CellDiffs = r.cellDiffs(p.TouchedPaths, p.Target.Tree, p.Current)
	return out, nil
}

// cellDiffs renders a line diff of each touched path's blob value between
// the current tree (if any) and the target tree, skipping paths that only
// exist on one side (nothing meaningful to diff against).
func (r *Repo) cellDiffs(touchedPaths []string, targetTree hashing.Hash, current *history.Info) map[string]string {
	targetEntries, err := history.EntriesAt(r.store, targetTree)
	if err != nil {
		return nil
	}
	targetByPath := indexEntriesByPath(targetEntries)

	currentByPath := map[string]index.Entry{}
	if current != nil {
		if currentEntries, err := history.EntriesAt(r.store, current.Tree); err == nil {
			currentByPath = indexEntriesByPath(currentEntries)
		}
	}

	diffs := map[string]string{}
	for _, path := range touchedPaths {
		oldEntry, hasOld := currentByPath[path]
		newEntry, hasNew := targetByPath[path]
		if !hasOld || !hasNew || oldEntry.BlobHash == newEntry.BlobHash {
			continue
		}

		result, err := r.DiffBlobs(oldEntry.BlobHash, newEntry.BlobHash)
		if err != nil {
			continue
		}
		if formatted := result.Format(); formatted != "" {
			diffs[path] = formatted
		}
	}
	if len(diffs) == 0 {
		return nil
	}
	return diffs
}

func indexEntriesByPath(entries []index.Entry) map[string]index.Entry {
	m := make(map[string]index.Entry, len(entries))
	for _, e := range entries {
		addr := cellpath.Address{
			WorkbookID:  e.WorkbookID,
			SheetNumber: e.SheetNumber,
			Letters:     e.RowLetters,
			Number:      e.ColNumber,
		}
		m[addr.GitPath()] = e
	}
	return m
}

// DiffBlobs renders a line diff between two blob objects, for previewing
// a cell's value change before committing or rolling back.
func (r *Repo) DiffBlobs(oldHex, newHex string) (*diff.DiffResult, error) {
	oldHash, err := hashing.ParseHash(oldHex)
	if err != nil {
		return nil, errors.InvalidInput("malformed old blob hash: " + err.Error())
	}
	newHash, err := hashing.ParseHash(newHex)
	if err != nil {
		return nil, errors.InvalidInput("malformed new blob hash: " + err.Error())
	}

	_, oldPayload, err := r.store.Get(oldHash)
	if err != nil {
		return nil, err
	}
	_, newPayload, err := r.store.Get(newHash)
	if err != nil {
		return nil, err
	}

	return r.diff.Diff(oldPayload, newPayload)
}

// IndexStats summarizes the staging index.
func (r *Repo) IndexStats() (shared.IndexStats, error) {
	return r.index.Stats()
}

// AuditLog returns the most recent audit records, if an audit log is
// attached.
func (r *Repo) AuditLog(limit int) ([]audit.Record, error) {
	return r.audit.Recent(limit)
}

func hashHex(h hashing.Hash) string {
	if h.Zero() {
		return ""
	}
	return h.String()
}

func toCommitResult(res commit.Result) shared.CommitResult {
	out := shared.CommitResult{
		CommitHash:  res.CommitHash.String(),
		TreeHash:    res.TreeHash.String(),
		Branch:      res.Branch,
		StagedFiles: res.StagedFiles,
		Timestamp:   res.Timestamp,
	}
	if res.HasParent {
		out.ParentHash = res.ParentHash.String()
	}
	return out
}
