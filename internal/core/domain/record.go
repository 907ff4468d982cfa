package domain

import "fmt"

// RecordType names a collected dataset. It doubles as the GraphQL list field
// inside Page and as the checkpoint key.
type RecordType string

const (
	RecordTypeUsers RecordType = "users"
	RecordTypeMedia RecordType = "media"
)

// RecordTypes lists every record type in collection order.
var RecordTypes = []RecordType{RecordTypeUsers, RecordTypeMedia}

// ParseRecordType validates a record type name.
func ParseRecordType(s string) (RecordType, error) {
	switch RecordType(s) {
	case RecordTypeUsers, RecordTypeMedia:
		return RecordType(s), nil
	}
	return "", fmt.Errorf("unknown record type %q", s)
}

// Record is one opaque upstream object. Numbers are kept as json.Number so
// checkpoints reproduce them verbatim.
type Record = map[string]any

// PageRequest describes one page of a paginated query.
type PageRequest struct {
	RecordType RecordType
	Page       int
	PerPage    int
	Query      string
}

// Variables returns the GraphQL variables for the request.
func (r PageRequest) Variables() map[string]any {
	return map[string]any{
		"page":    r.Page,
		"perPage": r.PerPage,
	}
}

// Next returns the request for the following page.
func (r PageRequest) Next() PageRequest {
	r.Page++
	return r
}

// Page is a decoded page of results.
type Page struct {
	Number      int
	HasNextPage bool
	Records     []Record
}
