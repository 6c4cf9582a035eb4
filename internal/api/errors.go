package api

import (
	"errors"
	"fmt"

	"github.com/budgie-app/budgie/internal/model"
)

// Op is the kind of write a MutationError was raised for.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// AuthError is returned when login or logout is rejected by the server.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed (%d): %s", e.Status, e.Message)
}

// FetchError is returned when a collection read fails. Status is zero when
// the request never produced a response.
type FetchError struct {
	Resource model.Resource
	Key      string
	Status   int
	Err      error
}

func (e *FetchError) Error() string {
	target := string(e.Resource)
	if e.Key != "" {
		target += "?" + e.Key
	}
	if e.Status != 0 {
		return fmt.Sprintf("fetching %s: status %d: %v", target, e.Status, e.Err)
	}
	return fmt.Sprintf("fetching %s: %v", target, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MutationError is returned when a create, update or delete is rejected or
// cannot be sent.
type MutationError struct {
	Resource model.Resource
	Op       Op
	Status   int
	Message  string
	Err      error
}

func (e *MutationError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s %s failed (%d): %s", e.Op, e.Resource, e.Status, msg)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Op, e.Resource, msg)
}

func (e *MutationError) Unwrap() error { return e.Err }

// IsAuthError reports whether err is or wraps an AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsFetchError reports whether err is or wraps a FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// IsMutationError reports whether err is or wraps a MutationError.
func IsMutationError(err error) bool {
	var me *MutationError
	return errors.As(err, &me)
}
