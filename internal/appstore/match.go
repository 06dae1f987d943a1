package appstore

import "strings"

// legalSuffixes are trailing legal-entity designators stripped from a query
// name before matching. Ordered so dotted variants are tried before their
// shorter forms.
var legalSuffixes = []string{
	"l.l.c",
	"llc",
	"f.z.c.o",
	"fzco",
	"fz-llc",
	"fz llc",
	"fze",
	"dmcc",
	"incorporated",
	"inc",
	"limited",
	"ltd",
	"corporation",
	"corp",
	"company",
	"co",
	"plc",
	"gmbh",
	"holdings",
	"holding",
}

// Decision records a match outcome plus the normalized strings it was made
// on, for auditability.
type Decision struct {
	Accepted  bool
	Query     string
	Publisher string
}

// Matcher decides whether a store listing's publisher plausibly belongs to
// a directory entity. The rule is deliberately permissive: company legal
// names rarely equal store-listed developer names verbatim, but the core
// brand token is usually a substring.
type Matcher struct{}

// Decide strips legal suffixes from the query name, lowercases both sides,
// and accepts when the cleaned query is a substring of the publisher name.
func (Matcher) Decide(queryName, publisher string) Decision {
	query := CleanCompanyName(queryName)
	pub := strings.ToLower(strings.TrimSpace(publisher))
	return Decision{
		Accepted:  query != "" && pub != "" && strings.Contains(pub, query),
		Query:     query,
		Publisher: pub,
	}
}

// Accepts is the boolean form of Decide.
func (m Matcher) Accepts(queryName, publisher string) bool {
	return m.Decide(queryName, publisher).Accepted
}

// CleanCompanyName lowercases a company name and strips trailing legal
// designators ("Acme Ventures FZ-LLC" becomes "acme ventures"). Suffixes
// are stripped repeatedly, so "Acme Holdings Ltd." reduces to "acme".
func CleanCompanyName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for {
		trimmed := strings.TrimRight(name, " .,-")
		stripped := false
		for _, suffix := range legalSuffixes {
			if trimmed == suffix {
				trimmed = ""
				stripped = true
				break
			}
			if strings.HasSuffix(trimmed, " "+suffix) {
				trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, suffix))
				stripped = true
				break
			}
		}
		name = trimmed
		if !stripped {
			break
		}
	}
	return strings.TrimRight(name, " .,-")
}
