package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erazemk/storeroom/internal/imaging"
	"github.com/erazemk/storeroom/internal/stock"
	"github.com/erazemk/storeroom/internal/store"
)

// StandardError is the body of every error response.
type StandardError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

var (
	errInvalidRequest  = errors.New("invalid request")
	errUnauthorized    = errors.New("unauthorized")
	errForbidden       = errors.New("insufficient permissions")
	errTooManyRequests = errors.New("too many requests")

	errDuplicateInFlight = errors.New("a request with this id is still being processed")
)

type errorKind struct {
	err    error
	code   string
	status int
}

// errorKinds is checked in order; the first match wins.
var errorKinds = []errorKind{
	{stock.ErrNotFound, "NotFound", http.StatusNotFound},
	{store.ErrNotFound, "NotFound", http.StatusNotFound},
	{stock.ErrInvalidQuantity, "InvalidQuantity", http.StatusBadRequest},
	{stock.ErrMissingReceiver, "MissingReceiver", http.StatusBadRequest},
	{stock.ErrMissingReturnDate, "MissingReturnDate", http.StatusBadRequest},
	{stock.ErrInvalidReturnDate, "InvalidReturnDate", http.StatusBadRequest},
	{stock.ErrNotesTooLong, "NotesTooLong", http.StatusBadRequest},
	{stock.ErrInsufficientStock, "InsufficientStock", http.StatusBadRequest},
	{stock.ErrInsufficientAvailableStock, "InsufficientAvailableStock", http.StatusBadRequest},
	{stock.ErrNotBorrowable, "NotBorrowable", http.StatusBadRequest},
	{stock.ErrInvalidBorrowReference, "InvalidBorrowReference", http.StatusBadRequest},
	{stock.ErrAlreadyReturned, "AlreadyReturned", http.StatusBadRequest},
	{errInvalidRequest, "InvalidRequest", http.StatusBadRequest},
	{imaging.ErrUnsupported, "InvalidRequest", http.StatusBadRequest},
	{imaging.ErrTooLarge, "InvalidRequest", http.StatusBadRequest},
	{stock.ErrConflict, "Conflict", http.StatusConflict},
	{store.ErrConflict, "Conflict", http.StatusConflict},
	{store.ErrDuplicate, "Conflict", http.StatusConflict},
	{errDuplicateInFlight, "Conflict", http.StatusConflict},
	{errUnauthorized, "Unauthorized", http.StatusUnauthorized},
	{errForbidden, "Forbidden", http.StatusForbidden},
	{errTooManyRequests, "TooManyRequests", http.StatusTooManyRequests},
}

// classify maps err to its response status and body. Unknown errors become
// a 500 without details.
func classify(err error) (int, StandardError) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			body := StandardError{Code: k.code, Message: k.err.Error()}
			if detail := err.Error(); detail != body.Message {
				body.Details = detail
			}
			return k.status, body
		}
	}
	return http.StatusInternalServerError, StandardError{Code: "InternalError", Message: "internal error"}
}

// abortWithError writes the mapped error body and stops the handler chain.
func abortWithError(c *gin.Context, log *zap.Logger, err error) {
	status, body := classify(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", requestID(c)),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

// invalid wraps a validation message as an InvalidRequest error.
func invalid(msg string) error {
	return fmt.Errorf("%w: %s", errInvalidRequest, msg)
}
