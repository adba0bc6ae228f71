// Package roster holds the reference set of known filers and resolves the names
// stated on a filing to one of them.
package roster

type Party string

const (
	PARTY_DEMOCRAT    Party = "D"
	PARTY_REPUBLICAN  Party = "R"
	PARTY_INDEPENDENT Party = "I"
)

// Filer is a legislator that files disclosures, it is sourced externally and
// never mutated by the ingestion pipeline.
type Filer struct {
	// ID is the bioguide identifier of the legislator.
	ID        string
	FirstName string
	LastName  string
	FullName  string
	Party     Party
	State     string
	Birthday  string
	Active    bool
}
