package service

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/contact-manager/pkg/model"
	"go.uber.org/zap"
)

var contactColumns = []string{"id", "full_name", "email", "phone_number", "tags"}

// createMockObjects builds a mock database handle and a mock object for defining our expected SQL
// calls.
func createMockObjects(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	return db, mock
}

// expectPreparedStatements instructs the mock object to expect that several statements are being
// prepared.
func expectPreparedStatements(mock sqlmock.Sqlmock) {
	mock.ExpectPrepare("INSERT INTO contacts")
	mock.ExpectPrepare("SELECT (.+) FROM contacts WHERE id = \\?")
	mock.ExpectPrepare("UPDATE contacts")
	mock.ExpectPrepare("DELETE FROM contacts WHERE id = \\?")
}

// expectSingleRowSelect instructs the mock object to expect that a select statement for a single
// contact will be executed.
func expectSingleRowSelect(mock sqlmock.Sqlmock, contact model.Contact) {
	var tags interface{}
	if contact.Tags != nil {
		tags = *contact.Tags
	}
	rows := mock.NewRows(contactColumns).
		AddRow(contact.Id, contact.FullName, contact.Email, contact.PhoneNumber, tags)
	mock.ExpectQuery("SELECT (.+) FROM contacts WHERE id = \\?").
		WithArgs(contact.Id).
		WillReturnRows(rows)
}

// expectationsMet fails the test if the mock database did not see all expected SQL calls.
func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// runTest sets up the contacts service with the mock database, executes the HTTP request with the
// specified arguments and returns the response.
func runTest(t *testing.T, db *sql.DB, method string, url string, body string) *httptest.ResponseRecorder {
	service, err := New(db, zap.NewNop())
	require.NoError(t, err)
	gin.SetMode(gin.ReleaseMode)
	router := service.SetupHttpRouter(false)
	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest(method, url, strings.NewReader(body))
	router.ServeHTTP(recorder, request)
	return recorder
}

// message extracts the message field of an error response.
func message(t *testing.T, recorder *httptest.ResponseRecorder) string {
	var body map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body["message"]
}

func stringPtr(s string) *string {
	return &s
}

// TestGetAll executes a GET request for all contacts in the database. It expects that the JSON
// for a list of contacts is returned.
func TestGetAll(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()

	// Define expectations on SQL statements
	expectPreparedStatements(mock)
	rows := mock.NewRows(contactColumns).
		AddRow(1, "Aaron Alt", "aaron@alt.de", "+420 111", "friend,work").
		AddRow(2, "Berta Bunt", "berta@bunt.de", "+420 222", nil).
		AddRow(3, "Carla Cord", "carla@cord.de", "+420 333", "family")
	mock.ExpectQuery("SELECT (.+) FROM contacts ORDER BY id ASC").
		WillReturnRows(rows)

	// Run test and compare results
	recorder := runTest(t, db, "GET", "/api/contacts", "")
	assert.Equal(t, http.StatusOK, recorder.Code)

	var contacts []model.Contact
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &contacts))
	assert.Equal(t, []model.Contact{
		{Id: 1, FullName: "Aaron Alt", Email: "aaron@alt.de", PhoneNumber: "+420 111", Tags: stringPtr("friend,work")},
		{Id: 2, FullName: "Berta Bunt", Email: "berta@bunt.de", PhoneNumber: "+420 222"},
		{Id: 3, FullName: "Carla Cord", Email: "carla@cord.de", PhoneNumber: "+420 333", Tags: stringPtr("family")},
	}, contacts)
	expectationsMet(t, mock)
}

// TestGetAllEmpty executes a GET request for all contacts on an empty database. It expects an
// empty JSON array.
func TestGetAllEmpty(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()

	expectPreparedStatements(mock)
	mock.ExpectQuery("SELECT (.+) FROM contacts").
		WillReturnRows(mock.NewRows(contactColumns))

	recorder := runTest(t, db, "GET", "/api/contacts", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, "[]", recorder.Body.String())
	expectationsMet(t, mock)
}

// TestGetAllUnavailable executes a GET request for all contacts while the contacts table cannot be
// read. It expects that the HTTP request is answered with the INTERNAL SERVER ERROR status code.
func TestGetAllUnavailable(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()

	expectPreparedStatements(mock)
	mock.ExpectQuery("SELECT (.+) FROM contacts").
		WillReturnError(sql.ErrConnDone)

	recorder := runTest(t, db, "GET", "/api/contacts", "")
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Equal(t, "contacts not available", message(t, recorder))
	expectationsMet(t, mock)
}

// TestGetAllOrderedPage executes a GET request with sort order and paging parameters. It expects
// that the parameters are passed to the database query.
func TestGetAllOrderedPage(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()

	expectPreparedStatements(mock)
	mock.ExpectQuery("SELECT (.+) FROM contacts ORDER BY full_name DESC LIMIT \\? OFFSET \\?").
		WithArgs(2, 4).
		WillReturnRows(mock.NewRows(contactColumns).
			AddRow(5, "Zora Zett", "zora@zett.de", "555", nil))

	recorder := runTest(t, db, "GET", "/api/contacts?orderby=full_name&ascending=false&limit=2&offset=4", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	var contacts []model.Contact
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &contacts))
	assert.Equal(t, 1, len(contacts))
	assert.Equal(t, "Zora Zett", contacts[0].FullName)
	expectationsMet(t, mock)
}

// TestGetAllInvalidParameters executes GET requests with invalid URL parameters. It expects that
// the HTTP requests are answered with the BAD REQUEST status code without touching the database.
func TestGetAllInvalidParameters(t *testing.T) {
	urls := map[string]string{
		"/api/contacts?limit=0":          "invalid limit parameter",
		"/api/contacts?limit=many":       "invalid limit parameter",
		"/api/contacts?offset=-1":        "invalid offset parameter",
		"/api/contacts?orderby=birthday": "invalid orderby parameter",
		"/api/contacts?ascending=maybe":  "invalid ascending parameter",
	}
	for url, expected := range urls {
		db, mock := createMockObjects(t)
		expectPreparedStatements(mock)

		recorder := runTest(t, db, "GET", url, "")
		assert.Equal(t, http.StatusBadRequest, recorder.Code, url)
		assert.Equal(t, expected, message(t, recorder), url)
		expectationsMet(t, mock)
		db.Close()
	}
}

// TestGet executes a GET request for a single contact with a valid ID. It expects that the JSON
// for the contact is returned.
func TestGet(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()

	// Define expectations on SQL statements
	expectPreparedStatements(mock)
	expectSingleRowSelect(mock, model.Contact{
		Id:          29,
		FullName:    "Erika Mustermann",
		Email:       "erika@mustermann.de",
		PhoneNumber: "+49 0815 4711",
		Tags:        stringPtr("family"),
	})

	// Run test and compare results
	recorder := runTest(t, db, "GET", "/api/contacts/29", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	var getBody map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &getBody))
	assert.Equal(t, 29.0, getBody["id"])
	assert.Equal(t, "Erika Mustermann", getBody["full_name"])
	assert.Equal(t, "erika@mustermann.de", getBody["email"])
	assert.Equal(t, "+49 0815 4711", getBody["phone_number"])
	assert.Equal(t, "family", getBody["tags"])
	expectationsMet(t, mock)
}

// TestGetInvalidNumericID executes a GET request with an invalid but still numeric ID for a single
// contact. It expects that the HTTP request is answered with the NOT FOUND status code.
func TestGetInvalidNumericID(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()

	expectPreparedStatements(mock)
	mock.ExpectQuery("SELECT (.+) FROM contacts WHERE id = \\?").
		WithArgs(int64(4711)).
		WillReturnRows(mock.NewRows(contactColumns))

	recorder := runTest(t, db, "GET", "/api/contacts/4711", "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "contact not found", message(t, recorder))
	expectationsMet(t, mock)
}

// TestGetNonNumericID executes a GET request with a non-numeric ID for a single contact. It
// expects that the HTTP request is answered with the NOT FOUND status code.
func TestGetNonNumericID(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()

	expectPreparedStatements(mock)

	recorder := runTest(t, db, "GET", "/api/contacts/abc", "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "invalid id parameter", message(t, recorder))
	expectationsMet(t, mock)
}

// TestCreate executes a POST request for a new contact. It expects that the contact is stored with
// normalized tags and returned with its new id.
func TestCreate(t *testing.T) {
	for _, url := range []string{"/api/contacts/", "/api/contacts"} {
		db, mock := createMockObjects(t)

		expectPreparedStatements(mock)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO contacts")).
			WithArgs("Hans Wurst", "hans@wurst.de", "0815", "friend,work").
			WillReturnResult(sqlmock.NewResult(42, 1))

		recorder := runTest(t, db, "POST", url, `{
			"full_name": "Hans Wurst",
			"email": "hans@wurst.de",
			"phone_number": "0815",
			"tags": " Friend,work,,friend"
		}`)
		assert.Equal(t, http.StatusCreated, recorder.Code, url)
		var contact model.Contact
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &contact))
		assert.Equal(t, model.Contact{
			Id:          42,
			FullName:    "Hans Wurst",
			Email:       "hans@wurst.de",
			PhoneNumber: "0815",
			Tags:        stringPtr("friend,work"),
		}, contact)
		expectationsMet(t, mock)
		db.Close()
	}
}

// TestCreateInvalid executes POST requests with incomplete or malformed contacts. It expects that
// the HTTP requests are answered with the BAD REQUEST status code.
func TestCreateInvalid(t *testing.T) {
	bodies := []string{
		"",
		"not JSON",
		`{"full_name": "Hans Wurst", "phone_number": "0815"}`,
		`{"full_name": "", "email": "hans@wurst.de", "phone_number": "0815"}`,
	}
	for _, body := range bodies {
		db, mock := createMockObjects(t)
		expectPreparedStatements(mock)

		recorder := runTest(t, db, "POST", "/api/contacts/", body)
		assert.Equal(t, http.StatusBadRequest, recorder.Code, "request body: "+body)
		assert.Equal(t, "invalid JSON", message(t, recorder))
		expectationsMet(t, mock)
		db.Close()
	}
}

// TestCreateFailed executes a POST request while the database rejects the insert. It expects that
// the HTTP request is answered with the INTERNAL SERVER ERROR status code.
func TestCreateFailed(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()

	expectPreparedStatements(mock)
	mock.ExpectExec("INSERT INTO contacts").
		WillReturnError(sql.ErrConnDone)

	recorder := runTest(t, db, "POST", "/api/contacts/",
		`{"full_name": "Hans Wurst", "email": "hans@wurst.de", "phone_number": "0815"}`)
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	expectationsMet(t, mock)
}

// TestUpdate executes a PUT request for an existing contact. It expects that the contact is
// replaced and its new version returned.
func TestUpdate(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()

	expectPreparedStatements(mock)
	mock.ExpectExec("UPDATE contacts").
		WithArgs("Hans Wurst", "hans@wurst.de", "81970", nil, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectSingleRowSelect(mock, model.Contact{
		Id:          7,
		FullName:    "Hans Wurst",
		Email:       "hans@wurst.de",
		PhoneNumber: "81970",
	})

	recorder := runTest(t, db, "PUT", "/api/contacts/7",
		`{"full_name": "Hans Wurst", "email": "hans@wurst.de", "phone_number": "81970", "tags": null}`)
	assert.Equal(t, http.StatusOK, recorder.Code)
	var contact model.Contact
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &contact))
	assert.Equal(t, int64(7), contact.Id)
	assert.Equal(t, "81970", contact.PhoneNumber)
	assert.Nil(t, contact.Tags)
	expectationsMet(t, mock)
}

// TestUpdateNotFound executes a PUT request for a contact that does not exist. It expects that the
// HTTP request is answered with the NOT FOUND status code.
func TestUpdateNotFound(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()

	expectPreparedStatements(mock)
	mock.ExpectExec("UPDATE contacts").
		WillReturnResult(sqlmock.NewResult(0, 0))

	recorder := runTest(t, db, "PUT", "/api/contacts/4711",
		`{"full_name": "Hans Wurst", "email": "hans@wurst.de", "phone_number": "81970"}`)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "contact not found", message(t, recorder))
	expectationsMet(t, mock)
}

// TestUpdateInvalid executes a PUT request with an incomplete contact. It expects that the HTTP
// request is answered with the BAD REQUEST status code.
func TestUpdateInvalid(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()

	expectPreparedStatements(mock)

	recorder := runTest(t, db, "PUT", "/api/contacts/7", `{"full_name": "Hans Wurst"}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	expectationsMet(t, mock)
}

// TestDelete executes a DELETE request for an existing contact. It expects that the HTTP request
// is answered with the NO CONTENT status code.
func TestDelete(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()

	expectPreparedStatements(mock)
	mock.ExpectExec("DELETE FROM contacts WHERE id = \\?").
		WithArgs(int64(56)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	recorder := runTest(t, db, "DELETE", "/api/contacts/56", "")
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Empty(t, recorder.Body.String())
	expectationsMet(t, mock)
}

// TestDeleteNotFound executes a DELETE request for a contact that does not exist. It expects that
// the HTTP request is answered with the NOT FOUND status code.
func TestDeleteNotFound(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()

	expectPreparedStatements(mock)
	mock.ExpectExec("DELETE FROM contacts WHERE id = \\?").
		WithArgs(int64(4711)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	recorder := runTest(t, db, "DELETE", "/api/contacts/4711", "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "contact not found", message(t, recorder))
	expectationsMet(t, mock)
}
