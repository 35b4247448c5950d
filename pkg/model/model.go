package model

import "strings"

// Contact is the data structure for a person that we know.
// The Id is assigned by the server and is zero for a draft that has not been saved yet. Tags are
// stored as a single comma-joined string without empty segments, or nil if there are none.
type Contact struct {
	Id          int64   `json:"id,omitempty"  db:"id"`
	FullName    string  `json:"full_name"     db:"full_name"    binding:"required"`
	Email       string  `json:"email"         db:"email"        binding:"required"`
	PhoneNumber string  `json:"phone_number"  db:"phone_number" binding:"required"`
	Tags        *string `json:"tags"          db:"tags"`
}

// TagList returns the tags of the contact in their stored order.
func (c Contact) TagList() []string {
	if c.Tags == nil {
		return nil
	}
	return SplitTags(*c.Tags)
}

// HasTag returns true if the contact carries exactly the given tag.
func (c Contact) HasTag(tag string) bool {
	for _, t := range c.TagList() {
		if t == tag {
			return true
		}
	}
	return false
}

// SplitTags splits the wire representation of tags on commas and drops empty segments.
func SplitTags(joined string) []string {
	var tags []string
	for _, t := range strings.Split(joined, ",") {
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// JoinTags builds the wire representation of a list of tags. It returns nil for an empty list.
func JoinTags(tags []string) *string {
	var kept []string
	for _, t := range tags {
		if t != "" {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	joined := strings.Join(kept, ",")
	return &joined
}

// NormalizeTags trims and lower-cases every tag of the wire representation and removes empty
// segments and duplicates. The first occurrence of a tag determines its position.
func NormalizeTags(joined *string) *string {
	if joined == nil {
		return nil
	}
	seen := make(map[string]bool)
	var tags []string
	for _, t := range strings.Split(*joined, ",") {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return JoinTags(tags)
}
