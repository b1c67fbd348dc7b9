// Package history implements commit-chain traversal, tree-to-index
// reconstruction, and the reset/revert/cherry-pick/preview rollback
// operations.
package history

import (
	"cellvcs/internal/cellpath"
	"cellvcs/internal/commit"
	"cellvcs/internal/errors"
	"cellvcs/internal/hashing"
	"cellvcs/internal/index"
	"cellvcs/internal/objstore"
	shared "cellvcs/shared/types"
)

// Info summarizes one commit for history listings and previews.
type Info struct {
	Hash      hashing.Hash
	Tree      hashing.Hash
	Parent    hashing.Hash
	HasParent bool
	Author    string
	Committer string
	Message   string
}

// ReadCommit loads and parses the commit at hash.
func ReadCommit(store *objstore.Store, hash hashing.Hash) (Info, error) {
	kind, payload, err := store.Get(hash)
	if err != nil {
		return Info{}, err
	}
	if kind != objstore.KindCommit {
		return Info{}, errors.CorruptCommit("object " + hash.String() + " is not a commit")
	}
	p, err := commit.ParseCommit(payload)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Hash:      hash,
		Tree:      p.Tree,
		Parent:    p.Parent,
		HasParent: p.HasParent,
		Author:    p.Author,
		Committer: p.Committer,
		Message:   p.Message,
	}, nil
}

// History walks parent links from HEAD, stopping after limit commits or
// when the chain is exhausted. limit must be in [1,100].
func History(store *objstore.Store, startHash hashing.Hash, limit int) ([]Info, error) {
	if limit < 1 || limit > 100 {
		return nil, errors.InvalidInput("history limit must be between 1 and 100")
	}

	var out []Info
	cur := startHash
	for i := 0; i < limit; i++ {
		info, err := ReadCommit(store, cur)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
		if !info.HasParent {
			break
		}
		cur = info.Parent
	}
	return out, nil
}

// ToCommitInfo renders an Info as the API surface's CommitInfo DTO.
func (i Info) ToCommitInfo() shared.CommitInfo {
	ci := shared.CommitInfo{
		Hash:      i.Hash.String(),
		TreeHash:  i.Tree.String(),
		Author:    i.Author,
		Committer: i.Committer,
		Message:   i.Message,
	}
	if i.HasParent {
		ci.Parent = i.Parent.String()
	}
	return ci
}

// EntriesAt recursively reads the tree at treeHash and synthesizes the
// index entries it implies: one per blob leaf, reconstructed from its
// "<workbook>/<sheet>/<cell-address>" path.
func EntriesAt(store *objstore.Store, treeHash hashing.Hash) ([]index.Entry, error) {
	var out []index.Entry
	if err := walkTree(store, treeHash, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func walkTree(store *objstore.Store, treeHash hashing.Hash, pathParts []string, out *[]index.Entry) error {
	kind, payload, err := store.Get(treeHash)
	if err != nil {
		return err
	}
	if kind != objstore.KindTree {
		return errors.CorruptObject("object " + treeHash.String() + " is not a tree")
	}

	children, err := commit.ParseTree(payload)
	if err != nil {
		return err
	}

	for _, c := range children {
		switch c.Mode {
		case "40000":
			if err := walkTree(store, c.Hash, append(pathParts, c.Name), out); err != nil {
				return err
			}
		case "100644":
			entry, ok := entryFromLeaf(pathParts, c)
			if !ok {
				continue // malformed path: skipped; nothing is logged
			}
			*out = append(*out, entry)
		default:
			// Unknown mode: the entry is ignored; no warning is logged.
		}
	}
	return nil
}

func entryFromLeaf(pathParts []string, c commit.TreeEntry) (index.Entry, bool) {
	if len(pathParts) != 2 {
		return index.Entry{}, false
	}
	workbookID := pathParts[0]
	sheet, err := parseSheetNumber(pathParts[1])
	if err != nil {
		return index.Entry{}, false
	}
	letters, number, err := cellpath.SplitCellAddress(c.Name)
	if err != nil {
		return index.Entry{}, false
	}
	return index.Entry{
		WorkbookID:  workbookID,
		SheetNumber: sheet,
		RowLetters:  letters,
		ColNumber:   number,
		BlobHash:    c.Hash.String(),
	}, true
}

func parseSheetNumber(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, errors.InvalidInput("empty sheet number")
	}
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return 0, errors.InvalidInput("malformed sheet number: " + s)
		}
		n = n*10 + int(ch-'0')
	}
	return n, nil
}
