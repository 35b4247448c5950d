package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gitlab.com/dirk.krummacker/contact-manager/pkg/model"
	"go.uber.org/zap"
)

// ErrInvalidTag is returned when a tag is empty after trimming or contains a comma.
var ErrInvalidTag = errors.New("invalid tag")

// TagExistsError is returned when a tag is already part of the tag universe.
type TagExistsError struct {
	Tag string
}

func (e *TagExistsError) Error() string {
	return fmt.Sprintf("tag <%s> already exists", e.Tag)
}

// Lister fetches the complete list of contacts.
type Lister interface {
	List(ctx context.Context) ([]model.Contact, error)
}

// Store caches the contact list and the set of known tags.
type Store struct {
	lister   Lister
	logger   *zap.Logger
	contacts []model.Contact
	tags     []string
	// created holds the tags added by hand in this session, in creation order.
	created []string
}

// New creates an empty store that loads its contacts from lister.
func New(lister Lister, logger *zap.Logger) *Store {
	return &Store{lister: lister, logger: logger}
}

// Load replaces the cached contacts with a fresh list. If the list cannot be fetched, the previous
// contacts are kept and the failure is only logged.
func (s *Store) Load(ctx context.Context) {
	contacts, err := s.lister.List(ctx)
	if err != nil {
		s.logger.Error("failed to fetch contacts", zap.Error(err))
		return
	}
	s.contacts = contacts
}

// DeriveTags recomputes the tag universe from the cached contacts. Tags appear in the order in
// which they are first seen. Tags created by hand that no contact carries yet are appended.
func (s *Store) DeriveTags() {
	seen := make(map[string]bool)
	tags := []string{}
	for _, c := range s.contacts {
		for _, t := range c.TagList() {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	for _, t := range s.created {
		if !seen[t] {
			seen[t] = true
			tags = append(tags, t)
		}
	}
	s.tags = tags
}

// Refresh loads the contacts and derives the tags.
func (s *Store) Refresh(ctx context.Context) {
	s.Load(ctx)
	s.DeriveTags()
}

// AddTag adds a tag created by hand. The input is trimmed and lower-cased; the normalized tag is
// returned. It fails with ErrInvalidTag or *TagExistsError without changing the store.
func (s *Store) AddTag(input string) (string, error) {
	tag := strings.ToLower(strings.TrimSpace(input))
	if tag == "" || strings.Contains(tag, ",") {
		return "", ErrInvalidTag
	}
	for _, t := range s.tags {
		if t == tag {
			return "", &TagExistsError{Tag: tag}
		}
	}
	s.tags = append(s.tags, tag)
	s.created = append(s.created, tag)
	return tag, nil
}

// Contacts returns a copy of the cached contacts.
func (s *Store) Contacts() []model.Contact {
	return append([]model.Contact(nil), s.contacts...)
}

// Tags returns a copy of the tag universe.
func (s *Store) Tags() []string {
	return append([]string(nil), s.tags...)
}

// Find returns the cached contact with the given id.
func (s *Store) Find(id int64) (model.Contact, bool) {
	for _, c := range s.contacts {
		if c.Id == id {
			return c, true
		}
	}
	return model.Contact{}, false
}

// Drop removes the contact with the given id from the cache without contacting the server.
func (s *Store) Drop(id int64) {
	kept := s.contacts[:0:0]
	for _, c := range s.contacts {
		if c.Id != id {
			kept = append(kept, c)
		}
	}
	s.contacts = kept
}

// Len returns the number of cached contacts.
func (s *Store) Len() int {
	return len(s.contacts)
}
