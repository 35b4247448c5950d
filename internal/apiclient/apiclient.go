package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gitlab.com/dirk.krummacker/contact-manager/pkg/model"
	"go.uber.org/zap"
)

// contactsPath is the path of the contacts collection on the REST API.
const contactsPath = "/api/contacts"

// ErrTransport is wrapped by every error that is caused by the network rather than by the server,
// for example a refused connection or a timeout.
var ErrTransport = errors.New("transport failure")

// HTTPError is returned when the server answers with an unexpected status code.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// Client performs the REST operations on contacts.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a client for the API at baseURL, for example "http://localhost:8080".
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// List returns all contacts.
//
// The backend answers with 500 as long as its data set has not been initialized. This status is
// treated as an empty list rather than as an error.
func (c *Client) List(ctx context.Context) ([]model.Contact, error) {
	status, body, err := c.do(ctx, http.MethodGet, contactsPath, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusInternalServerError {
		c.logger.Warn("server returned 500, no contacts exist", zap.Int("status", status))
		return []model.Contact{}, nil
	}
	if !isSuccess(status) {
		return nil, &HTTPError{StatusCode: status, Message: fmt.Sprintf("HTTP error: %d", status)}
	}
	contacts := []model.Contact{}
	if err := json.Unmarshal(body, &contacts); err != nil {
		return nil, fmt.Errorf("could not unmarshal contacts: %w", err)
	}
	return contacts, nil
}

// Get returns the contact with the given id. The error message is taken from the response body
// if the server sent one.
func (c *Client) Get(ctx context.Context, id int64) (model.Contact, error) {
	var contact model.Contact
	status, body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/%d", contactsPath, id), nil)
	if err != nil {
		return contact, err
	}
	if !isSuccess(status) {
		return contact, &HTTPError{StatusCode: status, Message: messageOrDefault(body, status)}
	}
	if err := json.Unmarshal(body, &contact); err != nil {
		return contact, fmt.Errorf("could not unmarshal contact: %w", err)
	}
	return contact, nil
}

// Create stores a new contact and returns it with the id assigned by the server.
func (c *Client) Create(ctx context.Context, contact model.Contact) (model.Contact, error) {
	contact.Id = 0
	return c.send(ctx, http.MethodPost, contactsPath+"/", contact)
}

// Update replaces the contact with the given id and returns the new version.
func (c *Client) Update(ctx context.Context, id int64, contact model.Contact) (model.Contact, error) {
	contact.Id = id
	return c.send(ctx, http.MethodPut, fmt.Sprintf("%s/%d", contactsPath, id), contact)
}

// Remove deletes the contact with the given id. Only 204 No Content counts as success; for any
// other status the response body becomes the error message.
func (c *Client) Remove(ctx context.Context, id int64) error {
	status, body, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", contactsPath, id), nil)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent {
		return &HTTPError{StatusCode: status, Message: messageOrDefault(body, status)}
	}
	return nil
}

// send marshals the contact, sends it with the given method and decodes the answer.
func (c *Client) send(ctx context.Context, method string, path string, contact model.Contact) (model.Contact, error) {
	var result model.Contact
	payload, err := json.Marshal(contact)
	if err != nil {
		return result, fmt.Errorf("could not marshal contact: %w", err)
	}
	status, body, err := c.do(ctx, method, path, payload)
	if err != nil {
		return result, err
	}
	if !isSuccess(status) {
		return result, &HTTPError{StatusCode: status, Message: fmt.Sprintf("Error %d", status)}
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return result, fmt.Errorf("could not unmarshal contact: %w", err)
	}
	return result, nil
}

// do executes a single request and returns status code and body. Network failures are wrapped
// with ErrTransport.
func (c *Client) do(ctx context.Context, method string, path string, payload []byte) (int, []byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("could not create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("error making http request",
			zap.Error(err), zap.String("method", method), zap.String("path", path))
		return 0, nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		c.logger.Error("could not read response body", zap.Error(err), zap.String("path", path))
		return 0, nil, fmt.Errorf("%w: reading response of %s %s: %v", ErrTransport, method, path, err)
	}
	c.logger.Debug("api call",
		zap.String("method", method), zap.String("path", path), zap.Int("status", res.StatusCode))
	return res.StatusCode, resBody, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// messageOrDefault extracts a human readable message from an error response. JSON bodies of the
// form {"message": "..."} or {"error": "..."} yield the inner text, other bodies are used as they
// are, and an empty body yields "Error <status>".
func messageOrDefault(body []byte, status int) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return fmt.Sprintf("Error %d", status)
	}
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	return text
}
