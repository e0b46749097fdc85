package server

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"readinglog/internal/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("readdate", validateReadDate)
}

// validateReadDate accepts YYYY-MM-DD. An empty value clears the date on update.
func validateReadDate(fl validator.FieldLevel) bool {
	date := fl.Field().String()
	if date == "" {
		return true
	}

	_, err := time.Parse(time.DateOnly, date)
	return err == nil
}

// validateStruct turns validator failures into a single InvalidArgument error.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return types.InvalidArgument("%s", err.Error())
	}

	msgs := make([]string, 0, len(ves))
	for _, fe := range ves {
		field := fe.Field()

		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min", "max":
			if fe.Kind() == reflect.Int {
				msgs = append(msgs, field+" must be between 1 and 5")
			} else {
				msgs = append(msgs, field+" cannot be empty")
			}
		case "readdate":
			msgs = append(msgs, field+" must be a date in YYYY-MM-DD form")
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", field, fe.Tag()))
		}
	}

	return types.InvalidArgument("%s", strings.Join(msgs, "; "))
}
