package controller

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/ikkim/candle-backend/internal/app/service"
	apperrors "github.com/ikkim/candle-backend/internal/errors"
	"github.com/ikkim/candle-backend/internal/middleware"
)

var registerTagNames sync.Once

// useJSONFieldNames makes validation errors name request fields the way
// clients send them.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})
	})
}

// fail hands err to the terminal error middleware.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
}

// bindJSON decodes the body into dst, turning binding failures into a 400
// that lists each offending field.
func bindJSON(c *gin.Context, dst interface{}) error {
	useJSONFieldNames()
	if err := c.ShouldBindJSON(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fieldPath(fe)] = validationMessage(fe)
			}
			return &apperrors.AppError{
				Status:  http.StatusBadRequest,
				Code:    apperrors.ValidationInvalidInput,
				Message: "Request data is invalid",
				Fields:  fields,
				Err:     err,
			}
		}
		var unknown *service.UnknownFieldError
		if errors.As(err, &unknown) {
			return &apperrors.AppError{
				Status:  http.StatusBadRequest,
				Code:    apperrors.ValidationInvalidInput,
				Message: "Request contains an unrecognised field: " + unknown.Field,
				Fields:  map[string]string{unknown.Field: unknown.Field + " is not a recognised field"},
				Err:     err,
			}
		}
		return &apperrors.AppError{
			Status:  http.StatusBadRequest,
			Code:    apperrors.ValidationInvalidInput,
			Message: "Request body must be valid JSON",
			Err:     err,
		}
	}
	return nil
}

// fieldPath drops the top level struct name, so ShippingAddress.city becomes
// shipping_address.city.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "gt", "gte", "min":
		return field + " must be at least " + fe.Param()
	case "lte", "max":
		return field + " must be at most " + fe.Param()
	case "len":
		return field + " must be " + fe.Param() + " characters"
	case "oneof":
		return field + " must be one of " + fe.Param()
	}
	return field + " is invalid"
}

// parseID reads a positive numeric path parameter.
func parseID(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, apperrors.FieldValidation(apperrors.ValidationInvalidID, name, name+" must be a positive integer")
	}
	return uint(id), nil
}

// queryInt reads an optional integer query parameter.
func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.FieldValidation(apperrors.ValidationInvalidFormat, name, name+" must be a non-negative integer")
	}
	return n, nil
}

func pagination(c *gin.Context) (limit, offset int, err error) {
	if limit, err = queryInt(c, "limit"); err != nil {
		return 0, 0, err
	}
	if offset, err = queryInt(c, "offset"); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

// cartOwner resolves who the request's cart belongs to: the authenticated
// user, otherwise the guest cookie token.
func cartOwner(c *gin.Context, cookieName string) (service.CartOwner, error) {
	if userID, ok := middleware.GetUserID(c); ok {
		return service.UserOwner(userID), nil
	}
	if token := middleware.GuestToken(c, cookieName); token != "" {
		return service.GuestOwner(token), nil
	}
	return service.CartOwner{}, apperrors.Unauthorized(apperrors.AuthUnauthorized, "A cart session is required")
}
