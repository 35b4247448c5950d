package integrationtest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/contact-manager/internal/apiclient"
	"gitlab.com/dirk.krummacker/contact-manager/internal/config"
	"gitlab.com/dirk.krummacker/contact-manager/internal/controller"
	"gitlab.com/dirk.krummacker/contact-manager/internal/events"
	"gitlab.com/dirk.krummacker/contact-manager/internal/service"
	"gitlab.com/dirk.krummacker/contact-manager/pkg/model"
	"go.uber.org/zap"
)

const createTable = `
	CREATE TABLE IF NOT EXISTS contacts (
		id           BIGINT       NOT NULL AUTO_INCREMENT,
		full_name    VARCHAR(255) NOT NULL,
		email        VARCHAR(255) NOT NULL,
		phone_number VARCHAR(64)  NOT NULL,
		tags         VARCHAR(1024) NULL,
		PRIMARY KEY (id)
	)`

// startService runs the contacts service on the database of the environment and returns a client
// for it. The test is skipped if no database is configured.
func startService(t *testing.T) *apiclient.Client {
	if os.Getenv("DBHOST") == "" {
		t.Skip("DBHOST not set, skipping integration test")
	}
	cfg, err := config.Load("")
	require.NoError(t, err)
	sqlDB, err := service.CreateDatabase(cfg.Database)
	require.NoError(t, err)
	_, err = sqlDB.Exec(createTable)
	require.NoError(t, err)
	contacts, err := service.New(sqlDB, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { contacts.Close() })

	gin.SetMode(gin.ReleaseMode)
	server := httptest.NewServer(contacts.SetupHttpRouter(false))
	t.Cleanup(server.Close)
	return apiclient.New(server.URL, 5*time.Second, zap.NewNop())
}

// uniqueName returns a name that no other test run has used.
func uniqueName(prefix string) string {
	return fmt.Sprintf("%s %d", prefix, time.Now().UnixNano())
}

// findByName returns the stored contact with the given name.
func findByName(t *testing.T, client *apiclient.Client, name string) model.Contact {
	all, err := client.List(context.Background())
	require.NoError(t, err)
	for _, c := range all {
		if c.FullName == name {
			return c
		}
	}
	t.Fatalf("contact %q not found", name)
	return model.Contact{}
}

// TestContactHappyPath tests a POST, GET, PUT, and DELETE with valid data.
func TestContactHappyPath(t *testing.T) {
	client := startService(t)
	ctx := context.Background()
	name := uniqueName("Erika Mustermann")
	tags := "Family, friend"

	// test the endpoint for creating a contact
	created, err := client.Create(ctx, model.Contact{
		FullName:    name,
		Email:       "erika@mustermann.de",
		PhoneNumber: "+49 0815 4711",
		Tags:        &tags,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.Id)
	assert.Equal(t, name, created.FullName)
	assert.Equal(t, "family,friend", *created.Tags)

	// test the endpoint for finding a contact
	found, err := client.Get(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, created, found)

	// test the endpoint for updating a contact
	updated, err := client.Update(ctx, created.Id, model.Contact{
		FullName:    "Rudi Völler",
		Email:       "rudi@voeller.de",
		PhoneNumber: "+49 1234567890",
	})
	require.NoError(t, err)
	assert.Equal(t, created.Id, updated.Id)
	assert.Equal(t, "Rudi Völler", updated.FullName)
	assert.Nil(t, updated.Tags)

	// saving the same values again must not be mistaken for a missing contact
	_, err = client.Update(ctx, created.Id, updated)
	require.NoError(t, err)

	// test the endpoint for deleting a contact
	require.NoError(t, client.Remove(ctx, created.Id))

	// test if a subsequent lookup of the contact fails
	_, err = client.Get(ctx, created.Id)
	var httpErr *apiclient.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, "contact not found", httpErr.Message)
	assert.Error(t, client.Remove(ctx, created.Id))
}

// recordingPage keeps the latest markup per selector and all alerts.
type recordingPage struct {
	markup map[string]string
	alerts []string
}

func (p *recordingPage) Replace(selector string, markup string) { p.markup[selector] = markup }
func (p *recordingPage) Remove(selector string) { delete(p.markup, selector) }
func (p *recordingPage) SetMessage(selector string, text string, class string) {}
func (p *recordingPage) SetValue(selector string, value string) {}
func (p *recordingPage) Alert(text string) { p.alerts = append(p.alerts, text) }
func (p *recordingPage) Confirm(ev events.Event, text string) bool { return ev.Confirmed }

func click(el *events.Element) events.Event {
	return events.Event{Kind: events.Click, Target: el, Confirmed: true}
}

func submit(id int64, form url.Values) events.Event {
	attrs := map[string]string{}
	if id != 0 {
		attrs["data-id"] = strconv.FormatInt(id, 10)
	}
	return events.Event{
		Kind:   events.Submit,
		Target: &events.Element{Tag: "FORM", Id: "contact-form", Attrs: attrs},
		Form:   form,
	}
}

// TestControllerRoundTrip drives the page controller against the contacts service: it adds a
// contact with the form, edits it and deletes it again.
func TestControllerRoundTrip(t *testing.T) {
	client := startService(t)
	ctx := context.Background()
	page := &recordingPage{markup: map[string]string{}}
	c := controller.New(client, page, zap.NewNop(), 0)
	c.Start(ctx)
	assert.Equal(t, controller.Homepage, c.Screen())

	// add a contact
	addButton := &events.Element{Tag: "BUTTON", Id: "add-contact-btn", Classes: []string{"toolbar-btn"}}
	require.True(t, c.Handle(ctx, click(addButton)))
	assert.Equal(t, controller.Form, c.Screen())
	name := uniqueName("Hans Wurst")
	require.True(t, c.Handle(ctx, submit(0, url.Values{
		"full_name":    {name},
		"email":        {"hans@wurst.de"},
		"phone_number": {"0815"},
		"tags":         {"work"},
	})))
	assert.Equal(t, name+" is added!", page.alerts[len(page.alerts)-1])
	assert.Equal(t, controller.Homepage, c.Screen())
	assert.Contains(t, page.markup["#contacts-container"], name)
	stored := findByName(t, client, name)
	assert.Equal(t, "work", *stored.Tags)

	// edit the contact
	id := strconv.FormatInt(stored.Id, 10)
	editButton := &events.Element{Tag: "BUTTON", Classes: []string{"contact-action-btn", "edit-btn"},
		Attrs: map[string]string{"data-id": id}}
	require.True(t, c.Handle(ctx, click(editButton)))
	assert.Equal(t, controller.Form, c.Screen())
	assert.Equal(t, stored, c.Draft())
	require.True(t, c.Handle(ctx, submit(stored.Id, url.Values{
		"full_name":    {name},
		"email":        {"hans@wurst.de"},
		"phone_number": {"4711"},
	})))
	assert.Equal(t, name+"'s information updated!", page.alerts[len(page.alerts)-1])
	assert.Equal(t, "4711", findByName(t, client, name).PhoneNumber)

	// delete the contact
	deleteButton := &events.Element{Tag: "BUTTON", Classes: []string{"contact-action-btn", "delete-btn"},
		Attrs: map[string]string{"data-id": id}}
	require.True(t, c.Handle(ctx, click(deleteButton)))
	assert.Equal(t, "Contact deleted.", page.alerts[len(page.alerts)-1])
	assert.NotContains(t, page.markup["#contacts-container"], name)
}
