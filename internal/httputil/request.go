package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/eel-studio/storefront/internal/errors"
)

const maxRequestBody = 1 << 20

var validate = validator.New()

// DecodeAndValidate decodes a JSON body into v and runs its `validate` tags.
// Failures are returned as INVALID_INPUT service errors.
func DecodeAndValidate(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.InvalidInput("empty request body")
	}
	body, err := ReadAllStrict(r.Body, maxRequestBody)
	if err != nil {
		return errors.InvalidInput("request body too large")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.InvalidInput("malformed JSON body").WithDetails("error", err.Error())
	}
	if err := validate.Struct(v); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) *errors.ServiceError {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.InvalidInput(err.Error())
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s:%s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return errors.InvalidInput("validation failed").WithDetails("fields", fields)
}
