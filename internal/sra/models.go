// Package sra implements the client for the SRA (Solicitors Regulation Authority)
// datashare API and the domain logic for filtering its organisation directory.
//
// The upstream exposes a single Organisations resource returning the full
// directory as {"value": [...]} with nested Offices[].Address.PostCode. Nothing
// is persisted: every search fetches the dataset fresh and discards it after
// projection.
package sra

import (
	"encoding/json"
	"strings"

	"github.com/briefbase/sra-finder/internal/postcode"
)

// OrganisationsResponse is the envelope returned by GET Organisations.
type OrganisationsResponse struct {
	Value []Organisation `json:"value"`
}

// Organisation is one regulated organisation as returned by the upstream.
// OrganisationID is a json.Number so both numeric and string identifiers pass
// through unchanged; omitempty keeps a record with no identifier encodable.
type Organisation struct {
	OrganisationID      json.Number `json:"OrganisationID,omitempty"`
	OrganisationName    string      `json:"OrganisationName"`
	Email               string      `json:"Email"`
	GeneralEmail        string      `json:"GeneralEmail"`
	Phone               string      `json:"Phone"`
	AuthorisationStatus string      `json:"AuthorisationStatus"`
	Offices             []Office    `json:"Offices"`
}

// Office is a single office record nested under an organisation.
type Office struct {
	Address Address `json:"Address"`
}

// Address holds the fields of an office address the search projection uses.
// PostCode may be absent or empty; such offices never match a query.
type Address struct {
	PostCode string `json:"PostCode"`
	Address1 string `json:"Address1"`
	Town     string `json:"Town"`
}

// ContactEmail returns the organisation's primary email, falling back to the
// general mailbox when no primary address is recorded.
func (o *Organisation) ContactEmail() string {
	if o.Email != "" {
		return o.Email
	}
	return o.GeneralEmail
}

// activeKeywords are the authorisation-status substrings that mark an
// organisation as currently practising. Any-of substring semantics: a status of
// "Registered European Lawyer" qualifies via "registered" alone.
var activeKeywords = []string{"authorised", "registered", "authorised body", "recognised body"}

// IsActive reports whether the organisation's authorisation status contains any
// of the active keywords, after trimming and lowercasing.
func (o *Organisation) IsActive() bool {
	status := strings.ToLower(strings.TrimSpace(o.AuthorisationStatus))
	for _, kw := range activeKeywords {
		if strings.Contains(status, kw) {
			return true
		}
	}
	return false
}

// MatchesPostcode reports whether the office sits in the same postal district
// as the target postcode. Offices with no recorded postcode never match.
func (of *Office) MatchesPostcode(target string) bool {
	if of.Address.PostCode == "" {
		return false
	}
	return postcode.OutwardCode(of.Address.PostCode) == postcode.OutwardCode(target)
}
