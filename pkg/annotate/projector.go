package annotate

import (
	"log/slog"
	"strings"
)

// AnnotationTypeContractField tags annotations produced by the field
// extraction pipeline
const AnnotationTypeContractField = "contractField"

// Annotation is one field occurrence as delivered to the client: the
// occurrence id, a type tag, and the merged definition/occurrence data. The
// position inside Data may use either of two legacy shapes (see
// NormalizePosition).
type Annotation struct {
	ID   string         `json:"id"`
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Projected is an annotation resolved against a live document. Start/End are
// nil when the occurrence could not be located; such annotations are kept so
// downstream consumers can still list them as "not found in document".
type Projected struct {
	Annotation
	Start *int `json:"start,omitempty"`
	End   *int `json:"end,omitempty"`
}

// Resolved reports whether the annotation carries a concrete span
func (p *Projected) Resolved() bool {
	return p.Start != nil && p.End != nil
}

// NormalizePosition maps both legacy position shapes into one canonical
// Position: either data.position is the position record itself, or it is a
// {type:"annotation", position:{...}} wrapper around it. Returns nil for
// missing or malformed position data.
func NormalizePosition(data map[string]any) *Position {
	if data == nil {
		return nil
	}
	raw, ok := data["position"].(map[string]any)
	if !ok {
		return nil
	}
	if t, _ := raw["type"].(string); t == "annotation" {
		inner, ok := raw["position"].(map[string]any)
		if !ok {
			return nil
		}
		raw = inner
	}

	pos := &Position{
		Placeholder: stringField(raw, "placeholder"),
		Prefix:      stringField(raw, "prefix"),
		Suffix:      stringField(raw, "suffix"),
		Context:     stringField(raw, "context"),
	}
	if pos.Placeholder == "" {
		return nil
	}
	return pos
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// Project resolves each annotation against the document. Tree-based location
// is attempted first (context match, then prefix-only, then placeholder-only
// over the flattened text, mapped back to tree positions); if that fails the
// locator runs against the raw content as a linear fallback. Annotations
// that cannot be located are emitted with nil span, never dropped, and the
// output order matches the input order.
func Project(root *Node, content string, anns []Annotation) []Projected {
	flatText, runs := Flatten(root)

	out := make([]Projected, 0, len(anns))
	for _, ann := range anns {
		out = append(out, projectOne(root != nil, flatText, runs, content, ann))
	}
	return out
}

func projectOne(haveTree bool, flatText string, runs []TextRun, content string, ann Annotation) Projected {
	projected := Projected{Annotation: ann}

	pos := NormalizePosition(ann.Data)
	if pos == nil {
		slog.Debug("annotation has no usable position data", "annotation_id", ann.ID)
		return projected
	}

	if haveTree {
		if span := locateInTree(flatText, runs, *pos); span != nil {
			projected.Start = &span.Start
			projected.End = &span.End
			return projected
		}
	}

	// Linear fallback over the raw content string.
	if span := Locate(content, *pos); span != nil {
		projected.Start = &span.Start
		projected.End = &span.End
		return projected
	}

	slog.Debug("annotation left unresolved",
		"annotation_id", ann.ID,
		"placeholder", pos.Placeholder,
	)
	return projected
}

// locateInTree searches the flattened text with progressively looser context
// and maps the first hit back into tree positions.
func locateInTree(flatText string, runs []TextRun, pos Position) *Span {
	prefix := StripTags(pos.Prefix)
	placeholder := StripTags(pos.Placeholder)
	suffix := StripTags(pos.Suffix)
	if placeholder == "" {
		return nil
	}

	candidates := [][2]int{}
	if prefix != "" || suffix != "" {
		if idx := strings.Index(flatText, prefix+placeholder+suffix); idx >= 0 {
			candidates = append(candidates, [2]int{idx + len(prefix), idx + len(prefix) + len(placeholder)})
		}
	}
	if prefix != "" {
		if idx := strings.Index(flatText, prefix+placeholder); idx >= 0 {
			candidates = append(candidates, [2]int{idx + len(prefix), idx + len(prefix) + len(placeholder)})
		}
	}
	if idx := strings.Index(flatText, placeholder); idx >= 0 {
		candidates = append(candidates, [2]int{idx, idx + len(placeholder)})
	}

	for _, c := range candidates {
		if span := MapLinearRangeToTree(c[0], c[1], runs); span != nil {
			return span
		}
	}
	return nil
}
