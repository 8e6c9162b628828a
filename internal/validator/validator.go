// Package validator checks request bodies and query strings before they reach
// the bookshelf service. Struct rules run on go-playground/validator with a
// few custom tags for statuses, names and dates.
package validator // import "github.com/Xunop/bookshelf/internal/validator"

import (
	"reflect"
	"strings"
	"sync"

	playground "github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/Xunop/bookshelf/internal/model"
	"github.com/Xunop/bookshelf/internal/util"
)

var (
	validate     *playground.Validate
	validateOnce sync.Once
)

// FieldError describes one rejected field.
type FieldError struct {
	Field    string `json:"field"`
	Message  string `json:"message"`
	Value    any    `json:"value,omitempty"`
	Location string `json:"location"`
}

// Errors is returned when one or more fields are invalid.
type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	messages := make([]string, 0, len(e))
	for _, fe := range e {
		messages = append(messages, fe.Field+": "+fe.Message)
	}
	return strings.Join(messages, "; ")
}

func (e *Errors) add(location, field, message string, value any) {
	*e = append(*e, FieldError{Field: field, Message: message, Value: value, Location: location})
}

// messages maps a failed tag of a field to the message shown to clients.
var messages = map[string]map[string]string{
	"book_key": {
		"required": "Book key is required.",
	},
	"status": {
		"status": "Invalid status.",
	},
	"other_name": {
		"othername": "Name must only contain alphanumeric characters (letters and numbers).",
	},
	"date": {
		"bookdate": "Date must be in a valid date format.",
	},
}

// GetValidator returns the shared validator instance.
func GetValidator() *playground.Validate {
	validateOnce.Do(func() {
		validate = playground.New(playground.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})
		mustRegister("status", func(fl playground.FieldLevel) bool {
			_, err := model.ParseStatus(fl.Field().String())
			return err == nil
		})
		mustRegister("othername", func(fl playground.FieldLevel) bool {
			return util.OtherNameMatcher.MatchString(fl.Field().String())
		})
		mustRegister("bookdate", func(fl playground.FieldLevel) bool {
			_, err := model.ParseDate(fl.Field().String())
			return err == nil
		})
		mustRegister("username", func(fl playground.FieldLevel) bool {
			return util.UsernameMatcher.MatchString(fl.Field().String())
		})
	})
	return validate
}

func mustRegister(tag string, fn playground.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// validateStruct runs the struct tags of s and converts failures to Errors.
func validateStruct(s any) Errors {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrors playground.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return Errors{{Field: "body", Message: err.Error(), Location: "body"}}
	}
	result := Errors{}
	for _, fe := range fieldErrors {
		msg := "Invalid value."
		if byTag, ok := messages[fe.Field()]; ok {
			if m, ok := byTag[fe.Tag()]; ok {
				msg = m
			}
		}
		result.add("body", fe.Field(), msg, fe.Value())
	}
	return result
}
