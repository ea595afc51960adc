package annotate

import (
	"hash/fnv"
)

// Style is the rendering style assigned to one contact's annotations
type Style struct {
	Color      string `json:"color"`
	Background string `json:"background"`
}

// palette pairs a border/text color with a light highlight background.
// Assignment is deterministic per contact so colors stay stable across
// re-projections; this is rendering consistency, not a security property.
var palette = []Style{
	{Color: "#1d4ed8", Background: "#dbeafe"},
	{Color: "#047857", Background: "#d1fae5"},
	{Color: "#b45309", Background: "#fef3c7"},
	{Color: "#be123c", Background: "#ffe4e6"},
	{Color: "#6d28d9", Background: "#ede9fe"},
	{Color: "#0e7490", Background: "#cffafe"},
	{Color: "#a21caf", Background: "#fae8ff"},
	{Color: "#4d7c0f", Background: "#ecfccb"},
}

// ContactStyle returns the deterministic style for a contact id
func ContactStyle(contactID string) Style {
	h := fnv.New32a()
	h.Write([]byte(contactID))
	return palette[h.Sum32()%uint32(len(palette))]
}
