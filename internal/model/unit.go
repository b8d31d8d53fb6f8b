package model

// UnknownEntity tags whole-document runs with no configured subject. An empty
// entity tag marks a candidate invalid, so unnamed runs need a placeholder.
const UnknownEntity = "Unknown"

// UnitType identifies how a text unit was produced by the document parser.
type UnitType string

const (
	UnitTypeText       UnitType = "text"
	UnitTypeTable      UnitType = "table"
	UnitTypeImageText  UnitType = "image_text"
	UnitTypeImageTable UnitType = "image_table"
)

// TextUnit is one ordered piece of parsed document text. Units are produced
// by the external document parser and are immutable once tagged with an
// entity; (PageID, UnitID) is the stable position key carried through to
// provenance on merged records.
type TextUnit struct {
	PageID    int       `json:"page_id"`
	UnitID    int       `json:"unit_id"`
	Type      UnitType  `json:"type,omitempty"`
	Text      string    `json:"text"`
	EntityTag string    `json:"entity_tag,omitempty"`
	BBox      []float64 `json:"bbox,omitempty"`
}

// Chunk is an ordered window of text units handed to the oracles as one
// prompt. Neighboring chunks may share units; the overlap is intentional
// redundancy so metrics straddling a window boundary are still seen whole.
type Chunk struct {
	Index int        `json:"chunk_index"`
	Units []TextUnit `json:"units"`
}

// FirstPosition returns the (page_id, unit_id) of the chunk's first unit,
// used as the representative position for candidates extracted from it.
func (c Chunk) FirstPosition() (int, int) {
	if len(c.Units) == 0 {
		return 0, 0
	}
	return c.Units[0].PageID, c.Units[0].UnitID
}

// Text renders the chunk's units as one newline-joined block.
func (c Chunk) Text() string {
	n := 0
	for _, u := range c.Units {
		n += len(u.Text) + 1
	}
	buf := make([]byte, 0, n)
	for i, u := range c.Units {
		if i > 0 {
			buf = append(buf, '\n')
		}
		buf = append(buf, u.Text...)
	}
	return string(buf)
}
