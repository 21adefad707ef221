// Package validation turns binding failures into per-field, user-facing messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Summary is the message returned alongside field errors.
const Summary = "Please correct the highlighted fields."

// standalone validates structs outside of request binding using the same
// "binding" tags gin reads, so services and handlers share one rule set.
var standalone = func() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	v.RegisterTagNameFunc(jsonName)
	return v
}()

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonName)
	}
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// FieldMessages maps each failed field, by its JSON name, to a message.
// It returns nil when err carries no field errors (for example, malformed JSON).
func FieldMessages(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	label := Label(fe.Field())
	switch fe.Tag() {
	case "required":
		if fe.Kind() == reflect.Bool {
			return label + " must be accepted"
		}
		if fe.Kind() == reflect.Slice {
			return "Select at least one " + strings.ToLower(label)
		}
		return label + " is required"
	case "email":
		return "Enter a valid email address"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Select at least %s %s", fe.Param(), strings.ToLower(label))
		}
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Select at most %s %s", fe.Param(), strings.ToLower(label))
		}
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "url":
		return label + " must be a valid URL"
	}
	return label + " is invalid"
}

// Validate checks s against its binding tags and returns the failed fields,
// or nil when s is valid.
func Validate(s any) map[string]string {
	err := standalone.Struct(s)
	if err == nil {
		return nil
	}
	if msgs := FieldMessages(err); msgs != nil {
		return msgs
	}
	return map[string]string{"_": err.Error()}
}

// Label turns a JSON field name such as "full_name" into "Full name".
func Label(field string) string {
	s := strings.ReplaceAll(field, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
