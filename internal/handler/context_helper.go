package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/roster-api/internal/middleware"
	"github.com/noah-isme/roster-api/internal/models"
	appErrors "github.com/noah-isme/roster-api/pkg/errors"
	"github.com/noah-isme/roster-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentTeacher(c)
	if !ok {
		return nil
	}
	return claims
}

// bindJSON decodes the request body into dst and validates it. On failure it
// writes the error response and returns false.
func bindJSON(c *gin.Context, validate *validator.Validate, dst interface{}, what string) bool {
	if !decodeJSON(c, dst, what) {
		return false
	}
	return validateStruct(c, validate, dst, what)
}

// decodeJSON only decodes; services validate their own requests.
func decodeJSON(c *gin.Context, dst interface{}, what string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Validation(err, fmt.Sprintf("invalid %s payload", what)))
		return false
	}
	return true
}

func validateStruct(c *gin.Context, validate *validator.Validate, dst interface{}, what string) bool {
	if validate == nil {
		return true
	}
	if err := validate.Struct(dst); err != nil {
		response.Error(c, appErrors.Validation(err, validationMessage(err, what)))
		return false
	}
	return true
}

// validationMessage names the failing fields, e.g.
// "invalid register payload: students[1] must be email".
func validationMessage(err error, what string) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Sprintf("invalid %s payload", what)
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
		parts = append(parts, fmt.Sprintf("%s must be %s", field, fe.Tag()))
	}
	return fmt.Sprintf("invalid %s payload: %s", what, strings.Join(parts, ", "))
}

// idParam parses a positive integer path parameter.
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be a positive integer", name)))
		return 0, false
	}
	return id, true
}
