package handler

import (
	"errors"
	"net/http"

	"ucsattendance/internal/apierror"
	"ucsattendance/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validateAll runs go-playground/validator tags on the single-object form.
// Batch elements are validated per element by the service instead.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func validateAll[T any](c *gin.Context, reqs []T) bool {
	for i := range reqs {
		if err := validate.Struct(&reqs[i]); err != nil {
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				c.JSON(http.StatusBadRequest, apierror.New("Invalid request: "+err.Error()))
				return false
			}
			fields := make(map[string]string)
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
			return false
		}
	}
	return true
}

// statusFor maps a domain error onto the HTTP status of a single-item response.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrPersonNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrAlreadyCheckedIn),
		errors.Is(err, service.ErrNoActiveSession):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail reports a whole-request error: domain errors become a 4xx envelope,
// anything else is handed to middleware.ErrorHandler as a 500.
func fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		return
	}
	c.JSON(status, apierror.New(err.Error()))
}
