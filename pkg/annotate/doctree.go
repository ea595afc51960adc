package annotate

import (
	"strings"
)

// Node is a structured rich-text document node. Leaf nodes carry Text; all
// other nodes carry Content. The addressing scheme counts one position per
// non-leaf boundary (open and close) and one per text character, so tree
// positions survive round-trips through an editor that uses the same scheme.
type Node struct {
	Type    string  `json:"type"`
	Text    string  `json:"text,omitempty"`
	Content []*Node `json:"content,omitempty"`
}

// IsText reports whether the node is a leaf text run
func (n *Node) IsText() bool {
	return n != nil && n.Type == "text"
}

// TextRun records one leaf text node of a flattened document: its start
// offset in the tree addressing scheme, its normalized text, and the length
// of that text
type TextRun struct {
	TreePos int
	Text    string
	Length  int
}

// Flatten walks the tree in document order and returns the concatenation of
// all leaf text (tag-stripped) together with one TextRun per leaf.
func Flatten(root *Node) (string, []TextRun) {
	if root == nil {
		return "", nil
	}

	var b strings.Builder
	var runs []TextRun

	var walk func(n *Node, pos int) int
	walk = func(n *Node, pos int) int {
		if n == nil {
			return pos
		}
		if n.IsText() {
			text := StripTags(n.Text)
			runs = append(runs, TextRun{TreePos: pos, Text: text, Length: len(text)})
			b.WriteString(text)
			return pos + len(text)
		}
		pos++ // opening boundary
		for _, child := range n.Content {
			pos = walk(child, pos)
		}
		return pos + 1 // closing boundary
	}

	// The root's own boundaries are not addressable; its children start at 0.
	pos := 0
	for _, child := range root.Content {
		pos = walk(child, pos)
	}

	return b.String(), runs
}

// MapLinearRangeToTree converts a [start, end) range over the flattened text
// into tree positions by walking the ordered runs with a running linear
// offset. Returns nil when either endpoint cannot be located, e.g. the range
// reaches past the flattened text or lands between fragmented runs.
func MapLinearRangeToTree(start, end int, runs []TextRun) *Span {
	if start < 0 || end < start {
		return nil
	}

	treeStart := -1
	treeEnd := -1
	offset := 0

	for _, run := range runs {
		if treeStart < 0 && start >= offset && start < offset+run.Length {
			treeStart = run.TreePos + (start - offset)
		}
		// The end boundary may sit just past a run's last character.
		if treeEnd < 0 && end > offset && end <= offset+run.Length {
			treeEnd = run.TreePos + (end - offset)
		}
		offset += run.Length
	}

	// A zero-length range at the very start of the text.
	if start == 0 && end == 0 && len(runs) > 0 {
		return &Span{Start: runs[0].TreePos, End: runs[0].TreePos}
	}

	if treeStart < 0 || treeEnd < 0 {
		return nil
	}
	return &Span{Start: treeStart, End: treeEnd}
}
