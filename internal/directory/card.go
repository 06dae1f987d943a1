package directory

import (
	"errors"
	"strings"
)

// ErrExtraction marks a malformed listing card. The crawler skips the card
// and continues with the rest of the partition.
var ErrExtraction = errors.New("card extraction failed")

// Card is the raw shape of one rendered listing item as pulled out of the
// DOM: the profile link, the title, and whatever labeled text blocks the
// listing carries.
type Card struct {
	Href   string
	Title  string
	Fields []LabeledField
}

// LabeledField is one "<label>: <value>" block from a listing card.
type LabeledField struct {
	Label string
	Value string
}

// Recognized field labels. Anything else on the card is ignored.
const (
	labelIndustry = "industry"
	labelProfile  = "profile"
	labelWebsite  = "website"
)

// DecodeCard maps a raw card onto an Entity. Unknown labels are dropped;
// a missing href or title is an extraction fault.
func DecodeCard(baseURL string, card Card) (Entity, error) {
	if strings.TrimSpace(card.Href) == "" {
		return Entity{}, errors.Join(ErrExtraction, errors.New("card has no profile link"))
	}
	name := strings.TrimSpace(card.Title)
	if name == "" {
		return Entity{}, errors.Join(ErrExtraction, errors.New("card has no title"))
	}

	key, err := IdentityKeyFor(baseURL, card.Href)
	if err != nil {
		return Entity{}, errors.Join(ErrExtraction, err)
	}

	entity := Entity{
		IdentityKey: key,
		Name:        name,
		ProfileURL:  key,
	}
	for _, f := range card.Fields {
		value := strings.TrimSpace(f.Value)
		switch normalizeLabel(f.Label) {
		case labelIndustry:
			entity.Industry = value
		case labelProfile:
			entity.Description = value
		case labelWebsite:
			entity.WebsiteURL = NormalizeWebsiteURL(value)
		}
	}
	return entity, nil
}

// normalizeLabel reduces rendered label text ("Industry:", " INDUSTRY ") to
// a canonical token.
func normalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	label = strings.TrimSuffix(label, ":")
	for _, token := range []string{labelIndustry, labelProfile, labelWebsite} {
		if strings.Contains(label, token) {
			return token
		}
	}
	return label
}
