package service

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"gitlab.com/dirk.krummacker/contact-manager/internal/config"
	"gitlab.com/dirk.krummacker/contact-manager/pkg/model"
	"go.uber.org/zap"
)

// maxInt is the largest possible int value
const maxInt = int(^uint(0) >> 1)

// allowedOrderby are the allowed values for the 'orderby' URL parameter.
var allowedOrderby = []string{"id", "full_name", "email", "phone_number"}

// allowedAscending are the allowed values for the 'ascending' URL parameter.
var allowedAscending = []string{"true", "false"}

// Service is the contacts REST API on top of a MySQL database.
type Service struct {
	db     *sqlx.DB
	logger *zap.Logger

	// insert is a prepared statement for creating a contact on the database.
	insert *sqlx.NamedStmt
	// selectWhereId is a prepared statement for selecting contacts with a given id.
	selectWhereId *sqlx.Stmt
	// updateWhereId is a prepared statement for replacing a contact with a given id.
	updateWhereId *sqlx.NamedStmt
	// deleteWhereId is a prepared statement for deleting a contact with a given id.
	deleteWhereId *sqlx.Stmt
}

// CreateDatabase opens a database connection with the connection parameters of the configuration.
// clientFoundRows makes UPDATE report matched rather than changed rows, so that saving an
// unchanged contact is not mistaken for a missing one.
func CreateDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&clientFoundRows=true",
		cfg.User, cfg.Password, cfg.Host, cfg.Name)
	return sql.Open("mysql", dsn)
}

// New wraps the sql database with sqlx and prepares all statements. The database argument can be
// a real database for production use or a mock database within unit tests.
func New(sqlDB *sql.DB, logger *zap.Logger) (*Service, error) {
	var err error
	s := &Service{db: sqlx.NewDb(sqlDB, "mysql"), logger: logger}

	// Prepared statements offer a significant speed increase if executed many times.
	s.insert, err = s.db.PrepareNamed(`
		INSERT INTO contacts (full_name, email, phone_number, tags)
		VALUES (:full_name, :email, :phone_number, :tags)
	`)
	if err != nil {
		return nil, fmt.Errorf("could not prepare insert: %w", err)
	}
	s.selectWhereId, err = s.db.Preparex(`
		SELECT id, full_name, email, phone_number, tags FROM contacts WHERE id = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("could not prepare select: %w", err)
	}
	s.updateWhereId, err = s.db.PrepareNamed(`
		UPDATE contacts
		SET full_name = :full_name, email = :email, phone_number = :phone_number, tags = :tags
		WHERE id = :id
	`)
	if err != nil {
		return nil, fmt.Errorf("could not prepare update: %w", err)
	}
	s.deleteWhereId, err = s.db.Preparex(`
		DELETE FROM contacts WHERE id = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("could not prepare delete: %w", err)
	}
	return s, nil
}

// Close releases the database handle.
func (s *Service) Close() error {
	return s.db.Close()
}

// SetupHttpRouter initializes the REST API router and registers all endpoints. Request logging
// can be turned off.
func (s *Service) SetupHttpRouter(logging bool) *gin.Engine {
	var router *gin.Engine
	if logging {
		router = gin.Default()
	} else {
		router = gin.New()
		router.Use(gin.Recovery())
	}
	router.GET("/api/contacts", s.findContacts)
	router.POST("/api/contacts", s.createContact)
	router.POST("/api/contacts/", s.createContact)
	router.GET("/api/contacts/:id", s.findContactByID)
	router.PUT("/api/contacts/:id", s.updateContactByID)
	router.DELETE("/api/contacts/:id", s.deleteContactByID)
	return router
}

// findContacts responds with the list of all contacts as JSON. An empty data set yields an empty
// array. If the contacts cannot be read, for example because the table has not been created yet,
// the response is 500.
//
// The URL parameter 'limit' specifies how many contacts are returned. The URL parameter 'offset'
// specifies how many items from the sorted list of results are skipped in the beginning.
//
// The URL parameter 'orderby' specifies the contact property by which the results shall be sorted.
// Valid values are 'id', 'full_name', 'email', and 'phone_number'. If this URL parameter is not
// specified, the contacts will be sorted by id. If the URL parameter 'ascending' is set to 'false'
// then the sort order is reversed.
//
// REST API calls:
//
//	> curl "http://localhost:8080/api/contacts"
//	> curl "http://localhost:8080/api/contacts?limit=20&offset=60"
//	> curl "http://localhost:8080/api/contacts?orderby=full_name&ascending=false"
func (s *Service) findContacts(c *gin.Context) {
	limit, offset, successLimitAndOffset := parseLimitAndOffset(c)
	if !successLimitAndOffset {
		return
	}
	orderby, ascending, successOrderbyAndAscending := parseOrderbyAndAscending(c)
	if !successOrderbyAndAscending {
		return
	}
	query := fmt.Sprintf(`
		SELECT id, full_name, email, phone_number, tags
		FROM contacts
		ORDER BY %s %s
		LIMIT ?
		OFFSET ?`, orderby, ascending)
	contacts := []model.Contact{}
	if err := s.db.Select(&contacts, query, limit, offset); err != nil {
		s.logger.Error("could not read contacts", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "contacts not available"})
		return
	}
	c.IndentedJSON(http.StatusOK, contacts)
}

// parseLimitAndOffset inspects the URL parameters and determines values for limit and offset of
// the result set.
func parseLimitAndOffset(c *gin.Context) (limit int, offset int, success bool) {
	limit, offset = maxInt, 0
	if value := c.Query("limit"); value != "" {
		parsed, errConv := strconv.Atoi(value)
		if errConv != nil || parsed < 1 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid limit parameter"})
			return 0, 0, false
		}
		limit = parsed
	}
	if value := c.Query("offset"); value != "" {
		parsed, errConv := strconv.Atoi(value)
		if errConv != nil || parsed < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid offset parameter"})
			return 0, 0, false
		}
		offset = parsed
	}
	return limit, offset, true
}

// parseOrderbyAndAscending inspects the URL parameters and determines values for the orderby and
// ascending values of the result set.
func parseOrderbyAndAscending(c *gin.Context) (orderby string, ascending string, success bool) {
	orderby = c.DefaultQuery("orderby", "id")
	if !contains(allowedOrderby, orderby) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid orderby parameter"})
		return "", "", false
	}
	ascendingAsString := c.DefaultQuery("ascending", "true")
	if !contains(allowedAscending, ascendingAsString) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid ascending parameter"})
		return orderby, "", false
	}
	if ascendingAsString == "true" {
		ascending = "ASC"
	} else {
		ascending = "DESC"
	}
	return orderby, ascending, true
}

// contains returns true if a string is present in a slice.
func contains(slice []string, str string) bool {
	for _, v := range slice {
		if v == str {
			return true
		}
	}
	return false
}

// parseID reads the id parameter of the request URL. It aborts with NOT FOUND if the id is not a
// number.
func parseID(c *gin.Context) (int64, bool) {
	id, errConv := strconv.ParseInt(c.Param("id"), 10, 64)
	if errConv != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "invalid id parameter"})
		return 0, false
	}
	return id, true
}

// bindContact reads the contact from the request's JSON. Name, email and phone number are
// required; tags are normalized.
func bindContact(c *gin.Context) (model.Contact, bool) {
	var contact model.Contact
	if err := c.ShouldBindJSON(&contact); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return contact, false
	}
	contact.Tags = model.NormalizeTags(contact.Tags)
	return contact, true
}

// createContact inserts the contact specified in the request's JSON into the database. It responds
// with the full contact data including the newly assigned id.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/contacts/ --request "POST" --include --header "Content-Type: application/json" --data '{"full_name": "Hans Wurst", "email": "hans@wurst.de", "phone_number": "0815", "tags": "friend,work"}'
func (s *Service) createContact(c *gin.Context) {
	newContact, ok := bindContact(c)
	if !ok {
		return
	}
	result, err := s.insert.Exec(&newContact)
	if err != nil {
		s.logger.Error("could not insert contact", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "contact not stored"})
		return
	}
	id, err := result.LastInsertId()
	if err != nil {
		s.logger.Error("could not read new id", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "contact not stored"})
		return
	}
	newContact.Id = id
	c.IndentedJSON(http.StatusCreated, newContact)
}

// findContactByID locates the contact whose ID value matches the id parameter of the request URL,
// then returns that contact as a response.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/contacts/56
func (s *Service) findContactByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	contact, found, err := s.selectContact(id)
	if err != nil {
		s.logger.Error("could not read contact", zap.Int64("id", id), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "contact not available"})
		return
	}
	if !found {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "contact not found"})
		return
	}
	c.IndentedJSON(http.StatusOK, contact)
}

// updateContactByID replaces the contact whose ID value matches the id parameter of the request
// URL with the contact of the request's JSON, and responds with the new version of the contact.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/contacts/56 --request "PUT" --include --header "Content-Type: application/json" --data '{"full_name": "Hans Wurst", "email": "hans@wurst.de", "phone_number": "81970", "tags": null}'
func (s *Service) updateContactByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	submitted, ok := bindContact(c)
	if !ok {
		return
	}
	submitted.Id = id

	result, err := s.updateWhereId.Exec(&submitted)
	if err != nil {
		s.logger.Error("could not update contact", zap.Int64("id", id), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "contact not stored"})
		return
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.Error("could not read affected rows", zap.Int64("id", id), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "contact not stored"})
		return
	}
	if rowsAffected == 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "contact not found"})
		return
	}

	// In the HTTP response, return the full contact after the update.
	contact, found, err := s.selectContact(id)
	if err != nil || !found {
		c.IndentedJSON(http.StatusOK, submitted)
		return
	}
	c.IndentedJSON(http.StatusOK, contact)
}

// deleteContactByID deletes the contact whose ID value matches the id parameter of the request URL
// from the database. It responds with NO CONTENT on success.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/contacts/56 --request "DELETE"
func (s *Service) deleteContactByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	result, err := s.deleteWhereId.Exec(id)
	if err != nil {
		s.logger.Error("could not delete contact", zap.Int64("id", id), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "contact not deleted"})
		return
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.Error("could not read affected rows", zap.Int64("id", id), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "contact not deleted"})
		return
	}
	if rowsAffected == 0 {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "contact not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// selectContact reads the contact with the given id.
func (s *Service) selectContact(id int64) (model.Contact, bool, error) {
	var contacts []model.Contact
	if err := s.selectWhereId.Select(&contacts, id); err != nil {
		return model.Contact{}, false, err
	}
	if len(contacts) == 0 {
		return model.Contact{}, false, nil
	}
	return contacts[0], true, nil
}
