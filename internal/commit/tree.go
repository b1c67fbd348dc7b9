package commit

import (
	"sort"
	"strconv"
	"strings"

	"cellvcs/internal/cellpath"
	"cellvcs/internal/errors"
	"cellvcs/internal/hashing"
	"cellvcs/internal/index"
	"cellvcs/internal/objstore"
)

const (
	modeTree = "40000"
	modeBlob = "100644"
)

// treeNode is one in-progress directory level while materializing the
// tree from staged entries; children accumulate as either further
// subtrees (for workbook/sheet levels) or blob leaves (for cells).
type treeNode struct {
	subtrees map[string]*treeNode
	blobs    map[string]hashing.Hash // cell address -> blob hash
}

func newTreeNode() *treeNode {
	return &treeNode{subtrees: map[string]*treeNode{}, blobs: map[string]hashing.Hash{}}
}

// MaterializeTree builds the nested workbook/sheet/cell hierarchy from
// entries and writes it bottom-up into store, returning the root tree
// hash. Each child is serialized as "<mode> <name>\0<20-byte-raw-hash>"
// with directories sorted before files, ties broken lexicographically.
func MaterializeTree(store *objstore.Store, entries []index.Entry) (hashing.Hash, error) {
	root := newTreeNode()

	for _, e := range entries {
		hash, err := hashing.ParseHash(e.BlobHash)
		if err != nil {
			return hashing.Hash{}, errors.CorruptObject("index entry has malformed blob hash: " + err.Error())
		}
		addr := cellpath.Address{
			WorkbookID:  e.WorkbookID,
			SheetNumber: e.SheetNumber,
			Letters:     strings.ToUpper(e.RowLetters),
			Number:      e.ColNumber,
		}

		wb := root.child(addr.WorkbookID)
		sheet := wb.child(strconv.Itoa(addr.SheetNumber))
		sheet.blobs[addr.CellAddress()] = hash
	}

	return writeTree(store, root)
}

func (n *treeNode) child(name string) *treeNode {
	c, ok := n.subtrees[name]
	if !ok {
		c = newTreeNode()
		n.subtrees[name] = c
	}
	return c
}

type treeChild struct {
	mode string
	name string
	hash hashing.Hash
}

func writeTree(store *objstore.Store, n *treeNode) (hashing.Hash, error) {
	children := make([]treeChild, 0, len(n.subtrees)+len(n.blobs))

	for name, sub := range n.subtrees {
		hash, err := writeTree(store, sub)
		if err != nil {
			return hashing.Hash{}, err
		}
		children = append(children, treeChild{mode: modeTree, name: name, hash: hash})
	}
	for name, hash := range n.blobs {
		children = append(children, treeChild{mode: modeBlob, name: name, hash: hash})
	}

	sort.Slice(children, func(i, j int) bool {
		a, b := children[i], children[j]
		if (a.mode == modeTree) != (b.mode == modeTree) {
			return a.mode == modeTree // directories before files
		}
		return a.name < b.name
	})

	var payload []byte
	for _, c := range children {
		payload = append(payload, []byte(c.mode)...)
		payload = append(payload, ' ')
		payload = append(payload, []byte(c.name)...)
		payload = append(payload, 0)
		payload = append(payload, c.hash[:]...)
	}

	hash, err := store.Put(objstore.KindTree, payload)
	if err != nil {
		return hashing.Hash{}, err
	}
	return hash, nil
}

// TreeEntry is one parsed child of a tree object.
type TreeEntry struct {
	Mode string
	Name string
	Hash hashing.Hash
}

// ParseTree decodes a tree payload written by MaterializeTree back into
// its ordered children.
func ParseTree(payload []byte) ([]TreeEntry, error) {
	var out []TreeEntry
	i := 0
	for i < len(payload) {
		sp := indexByte(payload[i:], ' ')
		if sp < 0 {
			return nil, errors.CorruptObject("tree entry missing mode separator")
		}
		mode := string(payload[i : i+sp])
		i += sp + 1

		nul := indexByte(payload[i:], 0)
		if nul < 0 {
			return nil, errors.CorruptObject("tree entry missing name terminator")
		}
		name := string(payload[i : i+nul])
		i += nul + 1

		if i+hashing.Size > len(payload) {
			return nil, errors.CorruptObject("tree entry truncated hash")
		}
		var h hashing.Hash
		copy(h[:], payload[i:i+hashing.Size])
		i += hashing.Size

		out = append(out, TreeEntry{Mode: mode, Name: name, Hash: h})
	}
	return out, nil
}

func indexByte(b []byte, target byte) int {
	for i, c := range b {
		if c == target {
			return i
		}
	}
	return -1
}
