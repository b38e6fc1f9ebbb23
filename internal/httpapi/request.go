package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

type createTeamRequest struct {
	Name string `json:"name" validate:"required,notblank,max=100"`
}

type newAuctionRequest struct {
	Name      string `json:"name" validate:"required,notblank,max=200"`
	ClassName string `json:"className" validate:"max=100"`
	BasePrice *int   `json:"basePrice" validate:"required,gte=0"`
}

type startAuctionRequest struct {
	BasePrice *int `json:"basePrice" validate:"required,gte=0"`
}

type bidRequest struct {
	TeamID    string `json:"teamId" validate:"required"`
	BidAmount *int   `json:"bidAmount" validate:"required"`
}

// decode reads a JSON body into dst and validates it. The returned message is
// safe to show to clients.
func (a *API) decode(r *http.Request, dst any) (string, bool) {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return "request body is required", false
		}
		return "invalid request body", false
	}
	if err := a.validate.Struct(dst); err != nil {
		return validationMessage(err), false
	}
	return "", true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "validation error: " + err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "notblank":
			msgs = append(msgs, fmt.Sprintf("%s must not be blank", fe.Field()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return "validation error: " + strings.Join(msgs, "; ")
}

// newValidator reports JSON field names in validation errors.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
}
