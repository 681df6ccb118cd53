package inventory

import (
	"fmt"
	"strings"
)

// Match is one search hit. Display is the field value that matched.
type Match struct {
	Display string
	ID      string
}

// Index is an insertion-ordered, read-only collection of records.
type Index struct {
	order []string
	byID  map[string]DeviceRecord
}

// NewIndex builds an index, rejecting duplicate ids.
func NewIndex(records []DeviceRecord) (*Index, error) {
	idx := &Index{
		order: make([]string, 0, len(records)),
		byID:  make(map[string]DeviceRecord, len(records)),
	}
	for _, r := range records {
		if _, dup := idx.byID[r.ID]; dup {
			return nil, fmt.Errorf("duplicate device id %s", r.ID)
		}
		idx.order = append(idx.order, r.ID)
		idx.byID[r.ID] = r
	}
	return idx, nil
}

// Len returns the number of records. A nil index is empty.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.order)
}

// Records returns the records in insertion order.
func (x *Index) Records() []DeviceRecord {
	if x == nil {
		return nil
	}
	out := make([]DeviceRecord, 0, len(x.order))
	for _, id := range x.order {
		out = append(out, x.byID[id])
	}
	return out
}

// Search returns one match per record whose asset tag, serial number or name contains
// query, case-insensitively. The first matching field in that order is displayed.
// A blank query matches nothing; otherwise the query is matched as typed, spaces included.
func (x *Index) Search(query string) []Match {
	if strings.TrimSpace(query) == "" || x == nil {
		return nil
	}
	q := strings.ToLower(query)
	var out []Match
	for _, id := range x.order {
		r := x.byID[id]
		for _, field := range [...]string{r.AssetTag, r.SerialNumber, r.Name} {
			if field != "" && strings.Contains(strings.ToLower(field), q) {
				out = append(out, Match{Display: field, ID: id})
				break
			}
		}
	}
	return out
}

// Lookup returns the record with the given id.
func (x *Index) Lookup(id string) (DeviceRecord, error) {
	if x != nil {
		if r, ok := x.byID[id]; ok {
			return r, nil
		}
	}
	return DeviceRecord{}, &NotFoundError{Query: id}
}

// Resolve turns a typed or scanned identifier into exactly one record.
// An exact asset tag or serial number wins; otherwise the query must have a single search hit.
func (x *Index) Resolve(query string) (DeviceRecord, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return DeviceRecord{}, &NotFoundError{Query: query}
	}
	if x != nil {
		for _, id := range x.order {
			r := x.byID[id]
			if strings.EqualFold(r.AssetTag, q) || strings.EqualFold(r.SerialNumber, q) {
				return r, nil
			}
		}
	}
	matches := x.Search(q)
	switch len(matches) {
	case 0:
		return DeviceRecord{}, &NotFoundError{Query: q}
	case 1:
		return x.Lookup(matches[0].ID)
	default:
		return DeviceRecord{}, &AmbiguousError{Query: q, Matches: matches}
	}
}
