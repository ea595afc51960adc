package annotate

import (
	"sort"
)

// Replace describes one replaced range of a document edit: the text in
// [From, To) was replaced by InsertLen characters. A pure insertion has
// From == To; a pure deletion has InsertLen == 0. Coordinates are in
// pre-edit space.
type Replace struct {
	From      int `json:"from"`
	To        int `json:"to"`
	InsertLen int `json:"insert_len"`
}

// NewReplaceMapper builds an EditMapper from a batch of replacements applied
// as one transaction. Positions inside a replaced range collapse onto the
// range start, so spans whose text was deleted map to an empty range and get
// dropped by DocumentEdited.
func NewReplaceMapper(edits []Replace) EditMapper {
	sorted := make([]Replace, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].From < sorted[j].From })

	return func(pos int) int {
		diff := 0
		for _, edit := range sorted {
			if pos <= edit.From {
				break
			}
			if pos >= edit.To {
				diff += edit.InsertLen - (edit.To - edit.From)
				continue
			}
			// Inside the replaced range.
			return edit.From + diff
		}
		return pos + diff
	}
}
