package model

import (
	"strings"

	"gitlab.com/dirk.krummacker/contact-manager/pkg/model"
)

// Filter is the search and tag filter that is currently applied to the contact list.
// An empty SearchQuery and an empty CurrentTag mean that no filtering takes place.
type Filter struct {
	SearchQuery string
	CurrentTag  string
}

// IsEmpty returns true if the filter lets every contact pass.
func (f Filter) IsEmpty() bool {
	return f.SearchQuery == "" && f.CurrentTag == ""
}

// Matches returns true if the name of the contact contains the search query, ignoring case, and
// if the contact's tags contain the current tag.
//
// The tag is matched as a substring of the comma-joined tags field, so "art" also matches a
// contact tagged "cart". Use model.Contact.HasTag for exact tag membership.
func (f Filter) Matches(contact model.Contact) bool {
	if !strings.Contains(strings.ToLower(contact.FullName), strings.ToLower(f.SearchQuery)) {
		return false
	}
	if f.CurrentTag == "" {
		return true
	}
	return contact.Tags != nil && strings.Contains(*contact.Tags, f.CurrentTag)
}

// Apply returns the contacts that match the filter, in their original order.
func (f Filter) Apply(contacts []model.Contact) []model.Contact {
	matching := make([]model.Contact, 0, len(contacts))
	for _, c := range contacts {
		if f.Matches(c) {
			matching = append(matching, c)
		}
	}
	return matching
}
