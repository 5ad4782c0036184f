// Package extractor turns raw search result sets into candidate contacts.
package extractor

import (
	"regexp"
	"strings"

	"github.com/cuongbtq/lead-generator/internal/domain"
	"github.com/cuongbtq/lead-generator/internal/search"
)

// searchTitleSuffix is appended by the search engine to some result titles
const searchTitleSuffix = " - Google Search"

// Phone patterns are tried in order; the first one that matches anywhere wins.
var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\+?1?[-.\s]?)?\(?([0-9]{3})\)?[-.\s]?([0-9]{3})[-.\s]?([0-9]{4})`),
	regexp.MustCompile(`(\+?\d{1,3}[-.\s]?)?\(?([0-9]{3})\)?[-.\s]?([0-9]{3})[-.\s]?([0-9]{4})`),
}

var emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// Extract builds contacts from one organic and one places result set.
// Only results carrying a phone number become contacts, and a phone number
// already seen earlier in the same call drops the later contact.
func Extract(organic *search.OrganicResults, places *search.PlacesResults) []domain.Contact {
	contacts := make([]domain.Contact, 0)
	seen := make(map[string]struct{})

	if organic != nil {
		for _, r := range organic.Organic {
			snippet := r.Snippet.String()
			phone := FindPhone(snippet)
			if phone == "" {
				continue
			}
			if _, dup := seen[phone]; dup {
				continue
			}
			seen[phone] = struct{}{}

			contacts = append(contacts, domain.Contact{
				Name:    strings.TrimSuffix(r.Title.String(), searchTitleSuffix),
				Website: r.Link.String(),
				Phone:   phone,
				Email:   FindEmail(snippet),
				Source:  domain.SourceOrganicSearch,
			})
		}
	}

	if places != nil {
		for _, p := range places.Places {
			phone := strings.TrimSpace(p.PhoneNumber.String())
			if phone == "" {
				continue
			}
			if _, dup := seen[phone]; dup {
				continue
			}
			seen[phone] = struct{}{}

			contacts = append(contacts, domain.Contact{
				Name:    p.Title.String(),
				Website: p.Website.String(),
				Phone:   phone,
				Address: p.Address.String(),
				Rating:  p.Rating.String(),
				Source:  domain.SourcePlaces,
			})
		}
	}

	return contacts
}

// FindPhone returns the first phone number in text, or "" when none matches
func FindPhone(text string) string {
	for _, re := range phonePatterns {
		if m := re.FindString(text); m != "" {
			// the optional separator group can capture leading whitespace
			return strings.TrimSpace(m)
		}
	}
	return ""
}

// FindEmail returns the first email address in text, or "" when none matches
func FindEmail(text string) string {
	return emailPattern.FindString(text)
}
