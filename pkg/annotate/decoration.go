package annotate

import (
	"sync"
)

// EditMapper maps a document position from before an edit to after it.
// Positions inside deleted text should collapse onto the deletion point.
type EditMapper func(pos int) int

// SelectionCallback is notified with the full annotation on select and nil
// on deselect/clear
type SelectionCallback func(selected *Projected)

// DecorationSet holds the projected annotations for one editing session plus
// at most one selected annotation id, and reconciles both across annotation
// replacements and incremental document edits. It lives for the editing
// session; there is no terminal state.
type DecorationSet struct {
	mu          sync.Mutex
	annotations []Projected
	selectedID  string
	onSelect    SelectionCallback
}

// NewDecorationSet returns an empty set with no selection. onSelect may be
// nil.
func NewDecorationSet(onSelect SelectionCallback) *DecorationSet {
	return &DecorationSet{onSelect: onSelect}
}

// SetAnnotations re-projects the given annotation set against the document
// and fully replaces the held set (never merges, so a stale or superseded
// set cannot interleave with the new one). The selection is preserved only
// if an annotation with the selected id still exists.
func (d *DecorationSet) SetAnnotations(root *Node, content string, anns []Annotation) {
	projected := Project(root, content, anns)

	d.mu.Lock()
	d.annotations = projected
	if d.selectedID != "" && d.find(d.selectedID) == nil {
		d.selectedID = ""
		d.mu.Unlock()
		d.notify(nil)
		return
	}
	d.mu.Unlock()
}

// DocumentEdited remaps every resolved span through the edit's position
// mapping and drops annotations whose text was deleted (mapped start >= end).
// Unresolved annotations are carried over untouched. The selection is
// preserved only if the selected annotation survives.
func (d *DecorationSet) DocumentEdited(mapper EditMapper) {
	if mapper == nil {
		return
	}

	d.mu.Lock()
	kept := d.annotations[:0]
	for _, ann := range d.annotations {
		if !ann.Resolved() {
			kept = append(kept, ann)
			continue
		}
		start := mapper(*ann.Start)
		end := mapper(*ann.End)
		if start >= end {
			continue // span text deleted
		}
		ann.Start = &start
		ann.End = &end
		kept = append(kept, ann)
	}
	d.annotations = kept

	cleared := false
	if d.selectedID != "" && d.find(d.selectedID) == nil {
		d.selectedID = ""
		cleared = true
	}
	d.mu.Unlock()

	if cleared {
		d.notify(nil)
	}
}

// Click handles a click at a document position: clicking inside an
// annotation's span toggles its selection, clicking outside any span clears
// the selection. The returned annotation is the new selection, nil when
// nothing is selected afterwards.
func (d *DecorationSet) Click(pos int) *Projected {
	d.mu.Lock()

	var hit *Projected
	for i := range d.annotations {
		ann := &d.annotations[i]
		if ann.Resolved() && *ann.Start <= pos && pos < *ann.End {
			hit = ann
			break
		}
	}

	if hit == nil || hit.ID == d.selectedID {
		// Clear: clicked outside every span, or re-clicked the selection.
		hadSelection := d.selectedID != ""
		d.selectedID = ""
		d.mu.Unlock()
		if hadSelection || hit != nil {
			d.notify(nil)
		}
		return nil
	}

	d.selectedID = hit.ID
	selected := *hit
	d.mu.Unlock()

	d.notify(&selected)
	return &selected
}

// Annotations returns a copy of the current projected set
func (d *DecorationSet) Annotations() []Projected {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Projected, len(d.annotations))
	copy(out, d.annotations)
	return out
}

// SelectedID returns the currently selected annotation id, "" for none
func (d *DecorationSet) SelectedID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selectedID
}

// find must be called with the lock held
func (d *DecorationSet) find(id string) *Projected {
	for i := range d.annotations {
		if d.annotations[i].ID == id {
			return &d.annotations[i]
		}
	}
	return nil
}

func (d *DecorationSet) notify(selected *Projected) {
	if d.onSelect != nil {
		d.onSelect(selected)
	}
}
