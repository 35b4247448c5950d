package controller

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gitlab.com/dirk.krummacker/contact-manager/internal/apiclient"
	"gitlab.com/dirk.krummacker/contact-manager/internal/events"
	imodel "gitlab.com/dirk.krummacker/contact-manager/internal/model"
	"gitlab.com/dirk.krummacker/contact-manager/internal/store"
	"gitlab.com/dirk.krummacker/contact-manager/internal/view"
	"gitlab.com/dirk.krummacker/contact-manager/pkg/model"
	"go.uber.org/zap"
)

// Ids and classes of the page elements that trigger actions.
const (
	contactFormId   = "contact-form"
	queryId         = "query"
	tagFilterId     = "tag-filter"
	tagInputId      = "tag-input"
	addContactBtnId = "add-contact-btn"
	addTagBtnId     = "add-tag-btn"
	toolbarBtnClass = "toolbar-btn"
	actionBtnClass  = "contact-action-btn"
	editBtnClass    = "edit-btn"
	deleteBtnClass  = "delete-btn"
	cancelBtnClass  = "cancel-btn"
)

// Classes of the tag message.
const (
	messageSuccess = "message success"
	messageError   = "message error"
)

// routes builds the dispatch table of the page.
func (c *Controller) routes() *events.Router {
	button := events.ByTag("button")
	router := events.NewRouter()
	router.OnTarget(events.Submit, events.ById(contactFormId), c.onContactFormSubmit)
	router.OnClosest(events.Click, events.All(button, events.ByClass(toolbarBtnClass)), c.onToolbarClick)
	router.OnClosest(events.Click, events.All(button, events.ByClass(actionBtnClass)), c.onContactCardClick)
	router.OnClosest(events.Click, events.All(button, events.ByClass(cancelBtnClass)), c.onCancelClick)
	router.OnClosest(events.Click, isPageTitle, c.onTitleClick)
	router.OnTarget(events.Input, events.ById(queryId), c.onSearchInput)
	router.OnTarget(events.Change, events.ById(tagFilterId), c.onTagFilterChange)
	return router
}

// isPageTitle matches the h1 heading of the page header.
func isPageTitle(el *events.Element) bool {
	return events.ByTag("h1")(el) && el.Parent != nil && events.ByTag("header")(el.Parent)
}

func (c *Controller) onToolbarClick(ctx context.Context, ev events.Event, button *events.Element) {
	switch button.Id {
	case addContactBtnId:
		c.renderContactForm(view.CreateHeader, model.Contact{})
	case addTagBtnId:
		c.handleNewTag(ev)
	}
}

func (c *Controller) onContactCardClick(ctx context.Context, ev events.Event, button *events.Element) {
	id, err := strconv.ParseInt(button.Attr("data-id"), 10, 64)
	if err != nil || id == 0 {
		return
	}
	if button.HasClass(editBtnClass) {
		c.handleEdit(ctx, id)
	} else if button.HasClass(deleteBtnClass) {
		contact, found := c.store.Find(id)
		if !found {
			return
		}
		c.handleDelete(ctx, ev, contact)
	}
}

func (c *Controller) onCancelClick(ctx context.Context, ev events.Event, button *events.Element) {
	c.renderHomepage()
}

// onTitleClick navigates back to the homepage and clears the filters.
func (c *Controller) onTitleClick(ctx context.Context, ev events.Event, title *events.Element) {
	c.search.Stop()
	c.searchGeneration++
	c.filter = imodel.Filter{}
	c.renderHomepage()
}

// onSearchInput applies the search query once the user stopped typing.
func (c *Controller) onSearchInput(ctx context.Context, ev events.Event, input *events.Element) {
	query := input.Value
	generation := c.searchGeneration
	c.search.Do(func() {
		c.enqueue(func(ctx context.Context) {
			if generation != c.searchGeneration {
				return
			}
			c.filter.SearchQuery = query
			c.renderContacts()
		})
	})
}

func (c *Controller) onTagFilterChange(ctx context.Context, ev events.Event, selection *events.Element) {
	c.filter.CurrentTag = selection.Value
	c.renderContacts()
}

// handleNewTag adds the tag typed into the tag input to the known tags.
func (c *Controller) handleNewTag(ev events.Event) {
	tag, err := c.store.AddTag(ev.Inputs[tagInputId])
	var exists *store.TagExistsError
	switch {
	case errors.As(err, &exists):
		c.page.SetMessage(view.TagMessageSelector, fmt.Sprintf("Tag <%s> already exists.", exists.Tag), messageError)
		return
	case err != nil:
		c.page.SetMessage(view.TagMessageSelector, "Please enter a valid tag.", messageError)
		return
	}
	c.page.SetValue(view.TagInputSelector, "")
	c.page.SetMessage(view.TagMessageSelector, fmt.Sprintf("Tag <%s> created!", tag), messageSuccess)
	c.renderTagFilter()
}

// handleEdit fetches the full contact and shows it in the form.
func (c *Controller) handleEdit(ctx context.Context, id int64) {
	contact, err := c.api.Get(ctx, id)
	if err != nil {
		c.logger.Error("cannot find contact", zap.Int64("id", id), zap.Error(err))
		c.notify(err, err.Error())
		return
	}
	c.renderContactForm(view.EditHeader, contact)
}

// handleDelete deletes the contact after the user confirmed it. If the server refuses, the card is
// removed from the page anyway because the contact is gone or inconsistent on the server.
func (c *Controller) handleDelete(ctx context.Context, ev events.Event, contact model.Contact) {
	if !c.page.Confirm(ev, fmt.Sprintf("Do you want to delete %s ?", contact.FullName)) {
		return
	}
	err := c.api.Remove(ctx, contact.Id)
	if err == nil {
		c.page.Alert("Contact deleted.")
		c.refreshHomepage(ctx)
		return
	}
	c.logger.Error("failed to delete contact",
		zap.Int64("id", contact.Id), zap.String("name", contact.FullName), zap.Error(err))
	c.notify(err, err.Error())
	c.store.Drop(contact.Id)
	c.page.Remove(view.CardSelector(contact.Id))
}

// onContactFormSubmit creates or updates the contact of the form, depending on whether the form
// carries an id, and then reloads the homepage.
func (c *Controller) onContactFormSubmit(ctx context.Context, ev events.Event, form *events.Element) {
	contact := contactFromForm(ev.Form)
	if err := c.validate.Struct(contact); err != nil {
		c.page.Alert(validationMessage(err))
		return
	}

	id, _ := strconv.ParseInt(form.Attr("data-id"), 10, 64)
	if id != 0 {
		updated, err := c.api.Update(ctx, id, contact)
		if err != nil {
			c.logger.Error("failed to update contact", zap.Int64("id", id), zap.Error(err))
			c.notify(err, fmt.Sprintf("Failed to update contact: %d", statusOf(err)))
		} else {
			c.page.Alert(fmt.Sprintf("%s's information updated!", updated.FullName))
		}
	} else {
		created, err := c.api.Create(ctx, contact)
		if err != nil {
			c.logger.Error("failed to add contact", zap.Error(err))
			c.notify(err, fmt.Sprintf("Failed to add contact: %d", statusOf(err)))
		} else {
			c.page.Alert(fmt.Sprintf("%s is added!", created.FullName))
		}
	}
	c.refreshHomepage(ctx)
}

// notify shows message to the user if err was reported by the server. Transport failures are only
// logged.
func (c *Controller) notify(err error, message string) {
	if errors.Is(err, apiclient.ErrTransport) {
		return
	}
	c.page.Alert(message)
}

// contactFromForm builds a contact from the form entries. All checked tags are joined into the
// wire format.
func contactFromForm(form url.Values) model.Contact {
	return model.Contact{
		FullName:    form.Get("full_name"),
		Email:       form.Get("email"),
		PhoneNumber: form.Get("phone_number"),
		Tags:        model.JoinTags(form["tags"]),
	}
}

// validationMessage lists the form fields that failed validation.
func validationMessage(err error) string {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err.Error()
	}
	var fields []string
	for _, fe := range fieldErrors {
		fields = append(fields, fieldLabels[fe.Field()])
	}
	return "Please fill in: " + strings.Join(fields, ", ")
}

var fieldLabels = map[string]string{
	"FullName":    "full name",
	"Email":       "email address",
	"PhoneNumber": "telephone number",
}

func statusOf(err error) int {
	var httpErr *apiclient.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
