// Package view renders the markup of the contact manager page. All functions are pure: the
// output depends on the arguments only.
package view

import (
	"fmt"
	"html/template"
	"strings"

	"gitlab.com/dirk.krummacker/contact-manager/pkg/model"
)

// Selectors of the page regions that are replaced on re-rendering.
const (
	MainSelector       = "main"
	ContactsSelector   = "#contacts-container"
	TagFilterSelector  = "#tag-filter-region"
	TagMessageSelector = "#tag-msg"
	TagInputSelector   = "#tag-input"
)

// Headers of the contact form.
const (
	CreateHeader = "Create Contact"
	EditHeader   = "Edit Contact"
)

// Messages shown instead of the contact cards.
const (
	NoContactsMessage         = "There are no contacts."
	NoMatchingContactsMessage = "There are no matching contacts."
)

var templates = template.Must(
	template.New("homepage").Funcs(template.FuncMap{
		"joinTags": func(c model.Contact) string { return strings.Join(c.TagList(), ", ") },
	}).Parse(homepageTemplate))

func init() {
	template.Must(templates.New("tagFilter").Parse(tagFilterTemplate))
	template.Must(templates.New("contactCards").Parse(contactCardsTemplate))
	template.Must(templates.New("emptyContacts").Parse(emptyContactsTemplate))
	template.Must(templates.New("contactForm").Parse(contactFormTemplate))
}

// tagOption is a tag together with its selection state.
type tagOption struct {
	Tag      string
	Selected bool
}

type tagFilterData struct {
	CurrentTag string
	Options    []tagOption
}

type homepageData struct {
	TagFilter   tagFilterData
	SearchQuery string
}

type contactFormData struct {
	Header  string
	Action  string
	DataId  string
	Contact model.Contact
	Tags    []tagOption
}

// Homepage renders the toolbar, the tag filter, the search box pre-filled with searchQuery, and
// an empty contacts region.
func Homepage(tags []string, searchQuery string, currentTag string) string {
	return execute("homepage", homepageData{
		TagFilter:   newTagFilterData(tags, currentTag),
		SearchQuery: searchQuery,
	})
}

// TagFilterOptions renders the tag filter with an "Any" option followed by one option per tag.
// The option equal to currentTag is selected, "Any" if currentTag is empty.
func TagFilterOptions(tags []string, currentTag string) string {
	return execute("tagFilter", newTagFilterData(tags, currentTag))
}

// ContactList renders one card per contact. For an empty list it renders a message instead,
// which depends on whether there are any contacts at all (haveAny is false) or whether the
// filter excluded all of them.
func ContactList(contacts []model.Contact, haveAny bool) string {
	if len(contacts) == 0 {
		message := NoMatchingContactsMessage
		if !haveAny {
			message = NoContactsMessage
		}
		return execute("emptyContacts", message)
	}
	return execute("contactCards", contacts)
}

// ContactForm renders the form for creating or editing a contact. A contact with a zero Id is a
// draft and the form submits a new contact; otherwise the form carries the id in its data-id
// attribute. Every known tag gets a checkbox, checked if the contact has the tag.
func ContactForm(header string, contact model.Contact, tags []string) string {
	if header == "" {
		header = CreateHeader
	}
	data := contactFormData{
		Header:  header,
		Action:  "/api/contacts/",
		Contact: contact,
	}
	if contact.Id != 0 {
		data.Action = fmt.Sprintf("/api/contacts/%d", contact.Id)
		data.DataId = fmt.Sprint(contact.Id)
	}
	for _, t := range tags {
		data.Tags = append(data.Tags, tagOption{Tag: t, Selected: contact.HasTag(t)})
	}
	return execute("contactForm", data)
}

// CardSelector returns the selector of the card that shows the contact with the given id.
func CardSelector(id int64) string {
	return fmt.Sprintf(`.contact-card[data-id="%d"]`, id)
}

func newTagFilterData(tags []string, currentTag string) tagFilterData {
	data := tagFilterData{CurrentTag: currentTag}
	for _, t := range tags {
		data.Options = append(data.Options, tagOption{Tag: t, Selected: t == currentTag})
	}
	return data
}

// execute runs the named template. The templates are parsed at start-up and fed with fixed data
// types, so a failure is a programming error.
func execute(name string, data any) string {
	var builder strings.Builder
	if err := templates.ExecuteTemplate(&builder, name, data); err != nil {
		panic(fmt.Sprintf("could not render %s: %v", name, err))
	}
	return builder.String()
}
