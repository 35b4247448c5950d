// Package controller coordinates the contact manager page. It owns the contact store and the
// filter state, routes page events to handlers, calls the REST API and re-renders the affected
// regions of the page after every change.
//
// All handlers run on the goroutine of Run, one at a time. Posted events and fired debounce tasks
// wait in a queue until the running handler is done.
package controller

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"gitlab.com/dirk.krummacker/contact-manager/internal/debounce"
	"gitlab.com/dirk.krummacker/contact-manager/internal/events"
	imodel "gitlab.com/dirk.krummacker/contact-manager/internal/model"
	"gitlab.com/dirk.krummacker/contact-manager/internal/store"
	"gitlab.com/dirk.krummacker/contact-manager/internal/view"
	"gitlab.com/dirk.krummacker/contact-manager/pkg/model"
	"go.uber.org/zap"
)

// DefaultSearchDebounce is the quiet period after the last keystroke in the search box before the
// contact list is re-rendered.
const DefaultSearchDebounce = 300 * time.Millisecond

// queueSize is the number of tasks that may wait for the event loop.
const queueSize = 64

// API is the part of the REST client that the controller needs.
type API interface {
	store.Lister
	Get(ctx context.Context, id int64) (model.Contact, error)
	Create(ctx context.Context, contact model.Contact) (model.Contact, error)
	Update(ctx context.Context, id int64, contact model.Contact) (model.Contact, error)
	Remove(ctx context.Context, id int64) error
}

// Page applies changes to the page shown to the user. Selectors are CSS selectors.
type Page interface {
	// Replace sets the inner markup of the element matching selector.
	Replace(selector string, markup string)
	// Remove removes the element matching selector.
	Remove(selector string)
	// SetMessage sets the text and class attribute of the element matching selector.
	SetMessage(selector string, text string, class string)
	// SetValue sets the value of the input matching selector.
	SetValue(selector string, value string)
	// Alert shows a blocking notification.
	Alert(text string)
	// Confirm asks the user to confirm the action that triggered ev.
	Confirm(ev events.Event, text string) bool
}

// Screen is the part of the application that is currently visible.
type Screen int

const (
	// Homepage shows the toolbar, the filters and the contact list.
	Homepage Screen = iota
	// Form shows the form for creating or editing a contact.
	Form
)

func (s Screen) String() string {
	if s == Form {
		return "form"
	}
	return "homepage"
}

// Controller is the orchestrator of one page session.
type Controller struct {
	api      API
	page     Page
	logger   *zap.Logger
	store    *store.Store
	router   *events.Router
	search   *debounce.Debouncer
	validate *validator.Validate
	queue    chan func(ctx context.Context)
	done     chan struct{}

	filter imodel.Filter
	// searchGeneration changes whenever the filter is reset. A debounced search that was
	// scheduled before the reset is dropped.
	searchGeneration uint64
	screen Screen
	// draft is the contact shown in the form while the screen is Form.
	draft model.Contact
}

// New creates a controller that talks to api and renders into page.
func New(api API, page Page, logger *zap.Logger, searchDebounce time.Duration) *Controller {
	if searchDebounce <= 0 {
		searchDebounce = DefaultSearchDebounce
	}
	validate := validator.New()
	validate.SetTagName("binding")
	c := &Controller{
		api:      api,
		page:     page,
		logger:   logger,
		store:    store.New(api, logger),
		search:   debounce.New(searchDebounce),
		validate: validate,
		queue:    make(chan func(ctx context.Context), queueSize),
		done:     make(chan struct{}),
	}
	c.router = c.routes()
	return c
}

// Start loads the contacts and renders the homepage.
func (c *Controller) Start(ctx context.Context) {
	c.refreshHomepage(ctx)
}

// Run starts the controller and then handles posted events until ctx is canceled.
func (c *Controller) Run(ctx context.Context) {
	defer close(c.done)
	defer c.search.Stop()
	c.Start(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-c.queue:
			task(ctx)
		}
	}
}

// Post queues an event for the event loop. It returns false if the controller has stopped.
func (c *Controller) Post(ev events.Event) bool {
	return c.enqueue(func(ctx context.Context) { c.Handle(ctx, ev) })
}

// Handle dispatches an event synchronously. It must only be called from the goroutine that owns
// the controller; Run does this for posted events.
func (c *Controller) Handle(ctx context.Context, ev events.Event) bool {
	handled := c.router.Dispatch(ctx, ev)
	if !handled {
		c.logger.Debug("event not handled", zap.String("kind", string(ev.Kind)))
	}
	return handled
}

// The accessors below read state owned by the event loop. Like Handle, they must only be called
// from the goroutine that owns the controller, or after Run has returned.

// Screen returns the visible screen.
func (c *Controller) Screen() Screen {
	return c.screen
}

// Filter returns the active search and tag filter.
func (c *Controller) Filter() imodel.Filter {
	return c.filter
}

// Draft returns the contact shown in the form.
func (c *Controller) Draft() model.Contact {
	return c.draft
}

// Tags returns the known tags.
func (c *Controller) Tags() []string {
	return c.store.Tags()
}

func (c *Controller) enqueue(task func(ctx context.Context)) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.queue <- task:
		return true
	case <-c.done:
		return false
	}
}

// refreshHomepage reloads all data from the server and renders the homepage.
func (c *Controller) refreshHomepage(ctx context.Context) {
	c.store.Refresh(ctx)
	c.renderHomepage()
}

// renderHomepage replaces the page content with the homepage and fills in the contact list.
func (c *Controller) renderHomepage() {
	c.screen = Homepage
	c.draft = model.Contact{}
	c.page.Replace(view.MainSelector,
		view.Homepage(c.store.Tags(), c.filter.SearchQuery, c.filter.CurrentTag))
	c.renderContacts()
}

// renderContacts re-renders the contact list from the cached contacts and the active filter.
func (c *Controller) renderContacts() {
	if c.screen != Homepage {
		return
	}
	visible := c.filter.Apply(c.store.Contacts())
	c.page.Replace(view.ContactsSelector, view.ContactList(visible, c.store.Len() > 0))
}

// renderTagFilter re-renders only the tag filter control.
func (c *Controller) renderTagFilter() {
	c.page.Replace(view.TagFilterSelector, view.TagFilterOptions(c.store.Tags(), c.filter.CurrentTag))
}

// renderContactForm replaces the page content with the form for the given contact.
func (c *Controller) renderContactForm(header string, contact model.Contact) {
	c.screen = Form
	c.draft = contact
	c.page.Replace(view.MainSelector, view.ContactForm(header, contact, c.store.Tags()))
}
