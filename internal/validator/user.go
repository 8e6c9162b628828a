package validator

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/Xunop/bookshelf/internal/model"
	"github.com/Xunop/bookshelf/internal/util"
)

const minPasswordLength = 8

// UserFinder is the part of the store needed to check uniqueness.
type UserFinder interface {
	GetUser(ctx context.Context, find *model.FindUser) (*model.User, error)
}

// ValidateUsername checks format and that no other user than self owns the
// name. self is 0 for anonymous callers.
func ValidateUsername(ctx context.Context, users UserFinder, username string, self int32) error {
	errs := Errors{}
	username = strings.TrimSpace(username)
	switch {
	case username == "":
		errs.add("body", "username", "Username is required.", username)
	case GetValidator().Var(username, "alphanum") != nil:
		errs.add("body", "username", "Username must only contain alphanumeric characters (letters and numbers).", username)
	case !util.UsernameMatcher.MatchString(username):
		errs.add("body", "username", "Username must be between 4 and 30 characters.", username)
	default:
		existing, err := users.GetUser(ctx, &model.FindUser{Username: &username})
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != self {
			errs.add("body", "username", "User with username already exists.", username)
		}
	}
	return errs.orNil()
}

// ValidateEmail checks format and that no other user than self owns the
// address.
func ValidateEmail(ctx context.Context, users UserFinder, email string, self int32) error {
	errs := Errors{}
	email = strings.TrimSpace(email)
	switch {
	case email == "":
		errs.add("body", "email", "Email is required.", email)
	case GetValidator().Var(email, "email") != nil || !util.ValidateEmail(email):
		errs.add("body", "email", "Email must be a valid email address.", email)
	default:
		existing, err := users.GetUser(ctx, &model.FindUser{Email: &email})
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != self {
			errs.add("body", "email", "User with email already exists.", email)
		}
	}
	return errs.orNil()
}

// ValidatePassword checks a new password. field is the body field name the
// password came from.
func ValidatePassword(field, password string) error {
	errs := Errors{}
	switch {
	case strings.TrimSpace(password) == "":
		errs.add("body", field, "Password is required.", nil)
	case utf8.RuneCountInString(password) < minPasswordLength:
		errs.add("body", field, "Password must be at least 8 characters.", nil)
	}
	return errs.orNil()
}

func ValidateRegisterRequest(ctx context.Context, users UserFinder, req *model.UserRegisterRequest) error {
	var errs Errors
	for _, err := range []error{
		ValidateUsername(ctx, users, req.Username, 0),
		ValidateEmail(ctx, users, req.Email, 0),
		ValidatePassword("password", req.Password),
	} {
		if err := collect(&errs, err); err != nil {
			return err
		}
	}
	return errs.orNil()
}

func ValidateLoginRequest(req *model.UserLoginRequest) error {
	errs := Errors{}
	if strings.TrimSpace(req.Username) == "" {
		errs.add("body", "username", "Username is required.", nil)
	}
	if strings.TrimSpace(req.Password) == "" {
		errs.add("body", "password", "Password is required.", nil)
	}
	return errs.orNil()
}

func ValidateUpdateRequest(ctx context.Context, users UserFinder, self int32, req *model.UserUpdateRequest) error {
	var errs Errors
	checks := []error{
		ValidateUsername(ctx, users, req.Username, self),
		ValidateEmail(ctx, users, req.Email, self),
	}
	if strings.TrimSpace(req.OldPassword) == "" {
		checks = append(checks, Errors{{Field: "oldPassword", Message: "Password is required.", Location: "body"}})
	}
	if req.NewPassword != nil {
		checks = append(checks, ValidatePassword("newPassword", *req.NewPassword))
	}
	for _, err := range checks {
		if err := collect(&errs, err); err != nil {
			return err
		}
	}
	return errs.orNil()
}

// collect appends field errors to errs and returns any other error.
func collect(errs *Errors, err error) error {
	if err == nil {
		return nil
	}
	if fieldErrs, ok := err.(Errors); ok {
		*errs = append(*errs, fieldErrs...)
		return nil
	}
	return err
}

func (e Errors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
