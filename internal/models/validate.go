package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ValidationError is a schema violation with a client-facing message.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("calendardate", func(fl validator.FieldLevel) bool {
		_, ok := ParseCalendarDate(fl.Field().String())
		return ok
	})
	v.RegisterStructValidation(validateGeoPoint, GeoPoint{})
	return v
}

func validateGeoPoint(sl validator.StructLevel) {
	p := sl.Current().Interface().(GeoPoint)
	if len(p.Coordinates) != 2 {
		return
	}
	lng, lat := p.Coordinates[0], p.Coordinates[1]
	if lng < -180 || lng > 180 || lat < -90 || lat > 90 {
		sl.ReportError(p.Coordinates, "coordinates", "Coordinates", "lnglat", "")
	}
}

// ParseCalendarDate accepts a plain date (2006-01-02) or an RFC 3339
// timestamp.
func ParseCalendarDate(s string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Validate checks v against its struct tags.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return &ValidationError{Message: DescribeFieldErrors(fieldErrs)}
	}
	return err
}

// DescribeFieldErrors renders validator errors as one message, naming the
// offending field paths and values.
func DescribeFieldErrors(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return strings.Join(msgs, "; ")
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "calendardate":
		return fmt.Sprintf("%s: %q is not a valid date", field, fmt.Sprint(fe.Value()))
	case "oneof":
		return fmt.Sprintf("%s: %q must be one of [%s]", field, fmt.Sprint(fe.Value()), fe.Param())
	case "email":
		return fmt.Sprintf("%s: %q is not a valid email address", field, fmt.Sprint(fe.Value()))
	case "lnglat":
		return fmt.Sprintf("%s: %v is not a valid [longitude, latitude] pair", field, fe.Value())
	case "eq":
		return fmt.Sprintf("%s must be %s", field, fe.Param())
	case "max", "min", "len":
		return fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", field)
}
