package handlers

import (
	"errors"
	"reflect"
	"strings"

	"github.com/dimitrije/teamtasks-api/internal/apierror"
	"github.com/go-playground/validator/v10"
	"github.com/m1z23r/drift/pkg/drift"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationMessages renders one message per failed field, named by its JSON key.
func validationMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		param := fe.Param()

		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min":
			if fe.Kind() == reflect.String {
				msgs = append(msgs, field+" must be at least "+param+" characters")
			} else {
				msgs = append(msgs, field+" must be at least "+param)
			}
		case "max":
			if fe.Kind() == reflect.String {
				msgs = append(msgs, field+" must be at most "+param+" characters")
			} else {
				msgs = append(msgs, field+" must be at most "+param)
			}
		case "email":
			msgs = append(msgs, field+" must be a valid email")
		case "oneof":
			msgs = append(msgs, field+" must be one of: "+strings.ReplaceAll(param, " ", ", "))
		case "excludesall":
			msgs = append(msgs, field+" must not contain "+param)
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return msgs
}

// bind decodes the JSON body into req and validates it. On failure the error
// response is already written and false is returned.
func bind(c *drift.Context, req any) bool {
	if err := c.BindJSON(req); err != nil {
		apierror.BadRequest(c, "invalid request body")
		return false
	}
	if err := validate.Struct(req); err != nil {
		apierror.Validation(c, validationMessages(err))
		return false
	}
	return true
}
