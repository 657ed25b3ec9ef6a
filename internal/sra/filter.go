package sra

import "encoding/json"

// SearchResult is the flattened projection of one organisation plus its first
// office matching the queried outward code. Field names mirror the upstream
// vocabulary so frontend consumers see familiar keys.
type SearchResult struct {
	OrganisationID      json.Number `json:"OrganisationID,omitempty"`
	Name                string      `json:"Name"`
	Email               string      `json:"Email"`
	Phone               string      `json:"Phone"`
	Postcode            string      `json:"Postcode"`
	Address1            string      `json:"Address1"`
	Town                string      `json:"Town"`
	AuthorisationStatus string      `json:"AuthorisationStatus"`
}

// FilterAndProject scans organisations in input order and emits one SearchResult
// for each active organisation whose offices include at least one in the target
// postcode's outward code. Offices are scanned in order and the first match
// wins, so an organisation contributes at most one result even when several of
// its offices share the district. Inactive organisations and organisations with
// no matching office contribute nothing. Output order follows input order.
func FilterAndProject(orgs []Organisation, targetPostcode string) []SearchResult {
	results := []SearchResult{}
	for i := range orgs {
		org := &orgs[i]
		if !org.IsActive() {
			continue
		}
		for j := range org.Offices {
			office := &org.Offices[j]
			if !office.MatchesPostcode(targetPostcode) {
				continue
			}
			results = append(results, SearchResult{
				OrganisationID:      org.OrganisationID,
				Name:                org.OrganisationName,
				Email:               org.ContactEmail(),
				Phone:               org.Phone,
				Postcode:            office.Address.PostCode,
				Address1:            office.Address.Address1,
				Town:                office.Address.Town,
				AuthorisationStatus: org.AuthorisationStatus,
			})
			break // one matching office is enough
		}
	}
	return results
}
