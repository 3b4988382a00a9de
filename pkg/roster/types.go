package roster

import (
	"fmt"
)

// Record is a single dark jedi as served by the records API.
// The zero value is the empty placeholder held by a window slot until the
// record has been fetched.
type Record struct {
	ID         int        `json:"id,omitempty"`         // External numeric identifier
	Name       string     `json:"name,omitempty"`       // Display name
	Homeworld  *Homeworld `json:"homeworld,omitempty"`  // Planet of origin
	Master     *Link      `json:"master,omitempty"`     // Previous record in the chain
	Apprentice *Link      `json:"apprentice,omitempty"` // Next record in the chain
}

// Homeworld references the planet a record originates from.
type Homeworld struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Link references another record by id and resource locator.
// The API sends a link with a null id and url at the ends of the chain.
type Link struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
}

// Location is the planet the tracked character is currently on.
// It is replaced wholesale on every push update.
type Location struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Relation names the direction of a link between two records.
type Relation string

const (
	// RelationMaster walks towards older records (lower slot indexes)
	RelationMaster Relation = "master"

	// RelationApprentice walks towards newer records (higher slot indexes)
	RelationApprentice Relation = "apprentice"
)

// IsEmpty reports whether the record is an unresolved placeholder.
func (r Record) IsEmpty() bool {
	return r.ID == 0 && r.Name == "" && r.Homeworld == nil && r.Master == nil && r.Apprentice == nil
}

// On reports whether the record's homeworld is the given location.
func (r Record) On(loc Location) bool {
	return r.Homeworld != nil && loc.ID != 0 && r.Homeworld.ID == loc.ID
}

// HasMaster reports whether the record links to a fetchable master.
func (r Record) HasMaster() bool {
	return r.Master.Resolvable()
}

// HasApprentice reports whether the record links to a fetchable apprentice.
func (r Record) HasApprentice() bool {
	return r.Apprentice.Resolvable()
}

// Resolvable reports whether the link points at a record that can be fetched.
func (l *Link) Resolvable() bool {
	return l != nil && l.ID != 0 && l.URL != ""
}

// IsZero reports whether no location has been received yet.
func (l Location) IsZero() bool {
	return l.ID == 0 && l.Name == ""
}

// Validate checks that the relation is one of the known values.
func (rel Relation) Validate() error {
	switch rel {
	case RelationMaster, RelationApprentice:
		return nil
	default:
		return fmt.Errorf("invalid relation: %q (must be %q or %q)", rel, RelationMaster, RelationApprentice)
	}
}

// Link returns the link the relation follows from r, or nil when r is a chain
// endpoint in that direction.
func (rel Relation) Link(r Record) *Link {
	var l *Link
	switch rel {
	case RelationMaster:
		l = r.Master
	case RelationApprentice:
		l = r.Apprentice
	}
	if l == nil || l.ID == 0 {
		return nil
	}
	return l
}

// Validate checks the fields a fetched record must carry.
func (r *Record) Validate() error {
	if r.ID <= 0 {
		return fmt.Errorf("record id must be positive, got %d", r.ID)
	}
	if r.Name == "" {
		return fmt.Errorf("record %d: name is required", r.ID)
	}
	return nil
}
