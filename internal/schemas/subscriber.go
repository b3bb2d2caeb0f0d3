package schemas

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"vetnux-newsletter/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON name so errors match the request body.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("mailbox", validateMailbox); err != nil {
		panic(err)
	}
	return v
}

const (
	maxLocalPartLen = 64
	maxLabelLen     = 63
)

// validateMailbox applies the length limits of RFC 5321 and rejects quoted
// local parts, which the email rule alone lets through.
func validateMailbox(fl validator.FieldLevel) bool {
	email := fl.Field().String()
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	local, domain := email[:at], email[at+1:]
	if strings.HasPrefix(local, `"`) || len(local) > maxLocalPartLen {
		return false
	}
	for _, label := range strings.Split(domain, ".") {
		if len(label) > maxLabelLen {
			return false
		}
	}
	return true
}

// ErrBodyTooLarge is returned when a request body exceeds the reader's limit.
var ErrBodyTooLarge = errors.New("request body too large")

// SubscriberCreate is the body of a subscribe request.
type SubscriberCreate struct {
	Email string `json:"email" validate:"required,max=254,email,mailbox"`
}

// SubscriberOut is the representation of a stored subscriber returned to callers.
type SubscriberOut struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// NewSubscriberOut converts a stored subscriber into its response form.
func NewSubscriberOut(s *models.Subscriber) SubscriberOut {
	return SubscriberOut{ID: s.ID, Email: s.Email}
}

// DecodeSubscriberCreate reads a JSON request body. Malformed bodies are
// reported as a *ValidationError, bodies cut off by http.MaxBytesReader as
// ErrBodyTooLarge.
func DecodeSubscriberCreate(r io.Reader) (SubscriberCreate, error) {
	var req SubscriberCreate
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return SubscriberCreate{}, ErrBodyTooLarge
		}
		return SubscriberCreate{}, decodeError(err)
	}
	return req, nil
}

// Validate checks the request against its schema and normalises the email's
// domain to lower case. The local part is kept as sent.
func (c *SubscriberCreate) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return newValidationError(fieldErrs)
		}
		return fmt.Errorf("validate subscriber: %w", err)
	}

	at := strings.LastIndex(c.Email, "@")
	c.Email = c.Email[:at] + "@" + strings.ToLower(c.Email[at+1:])
	return nil
}

// FieldError describes one rejected input location.
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationError is returned when a request does not match its schema.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, strings.Join(f.Loc, ".")+": "+f.Msg)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func newValidationError(errs validator.ValidationErrors) *ValidationError {
	verr := &ValidationError{}
	for _, fe := range errs {
		f := FieldError{Loc: []string{"body", fe.Field()}}
		switch fe.Tag() {
		case "required":
			f.Msg = "field required"
			f.Type = "missing"
		case "email", "max", "mailbox":
			f.Msg = "value is not a valid email address"
			f.Type = "value_error"
		default:
			f.Msg = fmt.Sprintf("failed on the %q rule", fe.Tag())
			f.Type = "value_error"
		}
		verr.Fields = append(verr.Fields, f)
	}
	return verr
}

func decodeError(err error) *ValidationError {
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return &ValidationError{Fields: []FieldError{{Loc: []string{"body"}, Msg: "field required", Type: "missing"}}}
	case errors.As(err, &typeErr):
		return &ValidationError{Fields: []FieldError{{
			Loc:  []string{"body", typeErr.Field},
			Msg:  fmt.Sprintf("input should be a valid %s", typeErr.Type),
			Type: typeErr.Type.Kind().String() + "_type",
		}}}
	default:
		return &ValidationError{Fields: []FieldError{{Loc: []string{"body"}, Msg: "JSON decode error", Type: "json_invalid"}}}
	}
}
