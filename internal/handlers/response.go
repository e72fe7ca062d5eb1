// Package handlers holds the gin HTTP handlers for the search API.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VonteruManoj/GenMan/internal/apierr"
)

// Error codes surfaced in the response envelope.
const (
	codePartialResults = 2001
	codeValidation     = 4220
	codeNotFound       = 4040
	codeInternal       = 5000
)

// Envelope is the common response shape: an error triple plus the
// payload.
type Envelope struct {
	Error     bool        `json:"error"`
	ErrorCode *int        `json:"error_code"`
	Message   *string     `json:"message"`
	Data      interface{} `json:"data"`
	Meta      interface{} `json:"meta,omitempty"`
}

func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Data: data})
}

func RespondOKWithMeta(c *gin.Context, data, meta interface{}) {
	c.JSON(http.StatusOK, Envelope{Data: data, Meta: meta})
}

// RespondPartial returns a 200 whose error triple marks the result set
// as incomplete. Decoded rows are still delivered.
func RespondPartial(c *gin.Context, data interface{}) {
	code := codePartialResults
	msg := "Partial results returned"
	c.JSON(http.StatusOK, Envelope{
		Error:     true,
		ErrorCode: &code,
		Message:   &msg,
		Data:      data,
	})
}

func RespondError(c *gin.Context, err error) {
	status := apierr.Status(err)

	code := codeInternal
	switch status {
	case http.StatusNotFound:
		code = codeNotFound
	case http.StatusUnprocessableEntity:
		code = codeValidation
	}

	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, Envelope{
		Error:     true,
		ErrorCode: &code,
		Message:   &msg,
	})
}

func RespondValidation(c *gin.Context, msg string) {
	code := codeValidation
	c.JSON(http.StatusUnprocessableEntity, Envelope{
		Error:     true,
		ErrorCode: &code,
		Message:   &msg,
	})
}
