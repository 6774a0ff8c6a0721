package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// requestValidator reports fields by their json (or query) name and knows
// the notblank rule used for product names.
func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "query"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return f.Name
		})
		_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	})
	return validate
}

// ReadAndValidateRequest binds the body (or query), applies defaults and
// validates. It returns nil or a []ValidationError.
func ReadAndValidateRequest(c echo.Context, req interface{}) interface{} {
	if err := c.Bind(req); err != nil {
		return bindErrors(err)
	}

	if err := defaults.Set(req); err != nil {
		return []ValidationError{{Code: "ERR_DEFAULTS", Message: err.Error()}}
	}

	if err := requestValidator().StructCtx(c.Request().Context(), req); err != nil {
		return validationErrors(err)
	}

	return nil
}

func bindErrors(err error) []ValidationError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		ve := ValidationError{
			Code:    "ERR_MALFORMED_BODY",
			Message: fmt.Sprintf("%v", he.Message),
		}
		if he.Internal != nil {
			ve.Params = map[string]interface{}{"cause": he.Internal.Error()}
		}
		return []ValidationError{ve}
	}
	return []ValidationError{{Code: "ERR_MALFORMED_BODY", Message: err.Error()}}
}

func validationErrors(err error) []ValidationError {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return []ValidationError{{Code: "ERR_UNKNOWN", Message: err.Error()}}
	}
	errs := make([]ValidationError, 0, len(ves))
	for _, e := range ves {
		errs = append(errs, ValidationError{
			Code:    "ERR_" + strings.ToUpper(e.Tag()),
			Field:   fieldPath(e),
			Message: errorMessage(e),
			Params:  errorParams(e),
		})
	}
	return errs
}

// fieldPath drops the root struct name: "items[2].productName".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// ruleText phrases each rule; %[1]s is the field path, %[2]s the rule param.
var ruleText = map[string]string{
	"required": "%[1]s is required",
	"notblank": "%[1]s must contain non-space characters",
	"gt":       "%[1]s must be > %[2]s",
	"gte":      "%[1]s must be >= %[2]s",
	"lt":       "%[1]s must be < %[2]s",
	"lte":      "%[1]s must be <= %[2]s",
	"oneof":    "%[1]s must be one of [%[2]s]",
}

// sizeUnit names what min and max count for a value of kind k.
func sizeUnit(k reflect.Kind) string {
	switch k {
	case reflect.String:
		return " characters"
	case reflect.Slice, reflect.Array, reflect.Map:
		return " items"
	}
	return ""
}

func errorMessage(fe validator.FieldError) string {
	field := fieldPath(fe)
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("%s needs at least %s%s", field, fe.Param(), sizeUnit(fe.Kind()))
	case "max":
		return fmt.Sprintf("%s allows at most %s%s", field, fe.Param(), sizeUnit(fe.Kind()))
	}
	if tmpl, ok := ruleText[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, field, fe.Param())
	}
	return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
}

func errorParams(fe validator.FieldError) map[string]interface{} {
	params := map[string]interface{}{}
	switch fe.Tag() {
	case "min", "gte":
		params["min"] = fe.Param()
	case "max", "lte":
		params["max"] = fe.Param()
	case "gt", "lt":
		params["value"] = fe.Param()
	}
	if v := fe.Value(); v != nil && fe.Kind() != reflect.Slice && fe.Kind() != reflect.Struct {
		params["got"] = v
	}
	return params
}
