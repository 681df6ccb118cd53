package app

import (
	"fmt"

	"github.com/x1thexxx-lgtm/assetlabel/pkg/inventory"
)

// State is everything the lookup screen shows. Transitions return a new State and never
// perform I/O.
type State struct {
	Query        string
	Results      []inventory.Match
	SelectedID   string
	Status       string
	InventoryErr error
	Index        *inventory.Index
	Printing     bool
}

// Loaded reports whether an inventory is available for searching.
func (s State) Loaded() bool {
	return s.Index != nil && s.InventoryErr == nil
}

// WithInventory installs a freshly fetched index, or records why there is none.
// A failed reload keeps the previous index searchable.
func (s State) WithInventory(idx *inventory.Index, err error) State {
	if err != nil {
		s.InventoryErr = err
		s.Status = StatusMessage(err)
		return s
	}
	s.Index = idx
	s.InventoryErr = nil
	s.Status = fmt.Sprintf("Loaded %d devices", idx.Len())
	return s.WithQuery(s.Query)
}

// WithQuery re-runs the search. The selection survives when it is still among the results,
// otherwise the first result is selected.
func (s State) WithQuery(q string) State {
	s.Query = q
	s.Results = s.Index.Search(q)
	if !s.hasResult(s.SelectedID) {
		s.SelectedID = ""
		if len(s.Results) > 0 {
			s.SelectedID = s.Results[0].ID
		}
	}
	return s
}

// Select marks id as the record to print. Ids outside the current results are ignored.
func (s State) Select(id string) State {
	if s.hasResult(id) {
		s.SelectedID = id
	}
	return s
}

// Move shifts the selection by delta rows, clamped to the result list.
func (s State) Move(delta int) State {
	if len(s.Results) == 0 {
		return s
	}
	pos := s.selectedPos()
	if pos < 0 {
		pos = 0
	} else {
		pos += delta
	}
	if pos < 0 {
		pos = 0
	}
	if pos >= len(s.Results) {
		pos = len(s.Results) - 1
	}
	s.SelectedID = s.Results[pos].ID
	return s
}

// Selected returns the selected record.
func (s State) Selected() (inventory.DeviceRecord, bool) {
	if s.SelectedID == "" {
		return inventory.DeviceRecord{}, false
	}
	rec, err := s.Index.Lookup(s.SelectedID)
	return rec, err == nil
}

// WithPrinting marks a print as in flight.
func (s State) WithPrinting(id string) State {
	s.Printing = true
	s.Status = fmt.Sprintf("Printing %s...", s.describe(id))
	return s
}

// WithPrintResult records the outcome of printing id. Query, results and selection are kept
// so a failed print can be retried.
func (s State) WithPrintResult(id string, err error) State {
	s.Printing = false
	if err != nil {
		s.Status = StatusMessage(err)
		return s
	}
	s.Status = fmt.Sprintf("Printed label for %s", s.describe(id))
	return s
}

func (s State) describe(id string) string {
	if rec, err := s.Index.Lookup(id); err == nil && rec.Name != "" {
		return rec.Name
	}
	return id
}

func (s State) hasResult(id string) bool {
	if id == "" {
		return false
	}
	for _, m := range s.Results {
		if m.ID == id {
			return true
		}
	}
	return false
}

func (s State) selectedPos() int {
	for i, m := range s.Results {
		if m.ID == s.SelectedID {
			return i
		}
	}
	return -1
}
