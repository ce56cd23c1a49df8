package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// Validator adapts go-playground/validator to echo.Validator. Besides the
// built-in tags it knows "size", "location" and "clock" (HH:MM).
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("size", func(fl validator.FieldLevel) bool {
		_, err := model.ParseSizeClass(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("location", func(fl validator.FieldLevel) bool {
		_, err := model.ParseLocation(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := model.ParseTimeOfDay(fl.Field().String())
		return err == nil
	})
	v.RegisterTagNameFunc(jsonName)
	return &Validator{v: v}
}

func (cv *Validator) Validate(i any) error { return cv.v.Struct(i) }

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// bind decodes the body into req and validates it. On failure it writes the
// response and returns false; validation errors are grouped by field.
func bind(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		msg := any("invalid body")
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusBadRequest {
			msg = he.Message
		}
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	err := c.Validate(req)
	if err == nil {
		return true, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	fields := map[string][]string{}
	for _, fe := range verrs {
		fields[fe.Field()] = append(fields[fe.Field()], fieldMessage(fe))
	}
	return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": fields})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "size":
		return "must be SMALL, MEDIUM or LARGE"
	case "location":
		return "must be TERRACE, WINDOW or GENERAL"
	case "clock":
		return "must be HH:MM"
	case "min", "max", "gte", "lte":
		return fe.Tag() + " " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "failed " + fe.Tag()
}
