package commit

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"cellvcs/internal/errors"
	"cellvcs/internal/hashing"
)

// Parsed is a decoded commit object.
type Parsed struct {
	Tree      hashing.Hash
	Parent    hashing.Hash
	HasParent bool
	Author    string
	Committer string
	When      time.Time
	Message   string
}

var treeHashRescue = regexp.MustCompile(`tree ([0-9a-f]{40})`)

// ParseCommit decodes a commit payload as written by Commit. Lines before
// the first blank line are read as "tree ", "parent ", "author ", or
// "committer " fields, with "tree" mandatory; a malformed field is an
// error, and any other header line is ignored. If
// strict parsing fails to find a tree line, a regex rescue looks for
// "tree <40-hex-hash>" anywhere in the payload before giving up.
func ParseCommit(payload []byte) (Parsed, error) {
	text := string(payload)
	lines := strings.Split(text, "\n")

	var p Parsed
	haveTree := false
	bodyStart := len(lines)

	for i, line := range lines {
		if line == "" {
			bodyStart = i + 1
			break
		}
		switch {
		case strings.HasPrefix(line, "tree "):
			h, err := hashing.ParseHash(strings.TrimPrefix(line, "tree "))
			if err != nil {
				return Parsed{}, errors.CorruptCommit("malformed tree line: " + err.Error())
			}
			p.Tree = h
			haveTree = true
		case strings.HasPrefix(line, "parent "):
			h, err := hashing.ParseHash(strings.TrimPrefix(line, "parent "))
			if err != nil {
				return Parsed{}, errors.CorruptCommit("malformed parent line: " + err.Error())
			}
			p.Parent = h
			p.HasParent = true
		case strings.HasPrefix(line, "author "):
			name, email, when, err := parseSignatureLine(strings.TrimPrefix(line, "author "))
			if err != nil {
				return Parsed{}, err
			}
			p.Author = name + " <" + email + ">"
			p.When = when
		case strings.HasPrefix(line, "committer "):
			name, email, _, err := parseSignatureLine(strings.TrimPrefix(line, "committer "))
			if err != nil {
				return Parsed{}, err
			}
			p.Committer = name + " <" + email + ">"
		default:
			// Unrecognized header line before the blank separator: ignored,
			// matching the strict-but-forgiving-of-extras parsing policy.
		}
	}

	if !haveTree {
		if m := treeHashRescue.FindStringSubmatch(text); m != nil {
			h, err := hashing.ParseHash(m[1])
			if err == nil {
				p.Tree = h
				haveTree = true
			}
		}
	}
	if !haveTree {
		return Parsed{}, errors.CorruptCommit("commit payload missing tree line")
	}

	if bodyStart <= len(lines) {
		p.Message = strings.TrimRight(strings.Join(lines[bodyStart:], "\n"), "\n")
	}

	return p, nil
}

func parseSignatureLine(s string) (name, email string, when time.Time, err error) {
	lt := strings.IndexByte(s, '<')
	gt := strings.IndexByte(s, '>')
	if lt < 0 || gt < 0 || gt < lt {
		return "", "", time.Time{}, errors.CorruptCommit("malformed signature line")
	}
	name = strings.TrimSpace(s[:lt])
	email = s[lt+1 : gt]

	rest := strings.TrimSpace(s[gt+1:])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return name, email, time.Time{}, nil
	}
	secs, convErr := strconv.ParseInt(fields[0], 10, 64)
	if convErr != nil {
		return name, email, time.Time{}, nil
	}
	return name, email, time.Unix(secs, 0).UTC(), nil
}
