// Package domain holds the shared address types. Candidates are ephemeral
// lookup results; records are candidates merged with personal details and
// committed to the address book.
package domain

import "strings"

// Candidate is one address returned by a lookup. It lives only for the
// lifetime of a single search result set and is never persisted.
type Candidate struct {
	ID           string `json:"id"`
	Street       string `json:"street"`
	City         string `json:"city"`
	Postcode     string `json:"postcode"`
	Municipality string `json:"municipality,omitempty"`
	Province     string `json:"province,omitempty"`
	// HouseNumber is stamped from the search form, not returned by the
	// lookup service.
	HouseNumber string `json:"houseNumber"`
}

// Record is a Candidate extended with the personal details captured in the
// workflow. The ID is inherited from the candidate the record was built from.
type Record struct {
	Candidate
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// NewRecord merges a candidate with personal details.
func NewRecord(c Candidate, firstName, lastName string) Record {
	return Record{Candidate: c, FirstName: firstName, LastName: lastName}
}

// Valid reports whether the record satisfies the container's entry contract:
// a non-empty identifier and non-empty first and last names.
func (r Record) Valid() bool {
	return strings.TrimSpace(r.ID) != "" &&
		strings.TrimSpace(r.FirstName) != "" &&
		strings.TrimSpace(r.LastName) != ""
}
