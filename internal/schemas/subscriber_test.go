package schemas

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetnux-newsletter/internal/models"
)

func TestSubscriberCreateValidate(t *testing.T) {
	local64 := strings.Repeat("a", 64)
	label63 := strings.Repeat("b", 63)

	tests := []struct {
		name     string
		email    string
		wantErr  bool
		wantType string
		want     string
	}{
		{name: "valid", email: "a@example.com", want: "a@example.com"},
		{name: "domain lower-cased", email: "Jane.Doe@Example.COM", want: "Jane.Doe@example.com"},
		{name: "plus tag", email: "a+news@example.com", want: "a+news@example.com"},
		{name: "empty", email: "", wantErr: true, wantType: "missing"},
		{name: "whitespace only", email: "   ", wantErr: true, wantType: "value_error"},
		{name: "missing at", email: "a.example.com", wantErr: true, wantType: "value_error"},
		{name: "missing local part", email: "@example.com", wantErr: true, wantType: "value_error"},
		{name: "surrounding whitespace", email: " a@example.com ", wantErr: true, wantType: "value_error"},
		{name: "two ats", email: "a@b@example.com", wantErr: true, wantType: "value_error"},
		{name: "quoted local part", email: `"a b"@example.com`, wantErr: true, wantType: "value_error"},
		{name: "quoted local part without space", email: `"ab"@example.com`, wantErr: true, wantType: "value_error"},
		{name: "local part at limit", email: local64 + "@example.com", want: local64 + "@example.com"},
		{name: "local part over limit", email: local64 + "a@example.com", wantErr: true, wantType: "value_error"},
		{name: "domain label at limit", email: "a@" + label63 + ".com", want: "a@" + label63 + ".com"},
		{name: "domain label over limit", email: "a@" + label63 + "b.com", wantErr: true, wantType: "value_error"},
		{
			name:     "address over 254 characters",
			email:    local64 + "@" + label63 + "." + label63 + "." + label63 + ".com",
			wantErr:  true,
			wantType: "value_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := SubscriberCreate{Email: tt.email}
			err := req.Validate()
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tt.want, req.Email)
				return
			}

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected *ValidationError, got %v", err)
			require.Len(t, verr.Fields, 1)
			assert.Equal(t, []string{"body", "email"}, verr.Fields[0].Loc)
			assert.Equal(t, tt.wantType, verr.Fields[0].Type)
		})
	}
}

func TestDecodeSubscriberCreate(t *testing.T) {
	req, err := DecodeSubscriberCreate(strings.NewReader(`{"email":"a@example.com","extra":true}`))
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", req.Email)

	t.Run("empty body", func(t *testing.T) {
		_, err := DecodeSubscriberCreate(strings.NewReader(""))
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"body"}, verr.Fields[0].Loc)
		assert.Equal(t, "missing", verr.Fields[0].Type)
	})

	t.Run("body over reader limit", func(t *testing.T) {
		rr := httptest.NewRecorder()
		body := http.MaxBytesReader(rr, io.NopCloser(strings.NewReader(`{"email":"`+strings.Repeat("a", 100)+`@example.com"}`)), 16)
		_, err := DecodeSubscriberCreate(body)
		assert.ErrorIs(t, err, ErrBodyTooLarge)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := DecodeSubscriberCreate(strings.NewReader(`{"email":`))
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "json_invalid", verr.Fields[0].Type)
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := DecodeSubscriberCreate(strings.NewReader(`{"email":42}`))
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"body", "email"}, verr.Fields[0].Loc)
		assert.Equal(t, "string_type", verr.Fields[0].Type)
	})
}

func TestValidationErrorMessage(t *testing.T) {
	err := (&SubscriberCreate{Email: "nope"}).Validate()
	require.Error(t, err)
	assert.Equal(t, "validation failed: body.email: value is not a valid email address", err.Error())
}

func TestNewSubscriberOut(t *testing.T) {
	out := NewSubscriberOut(&models.Subscriber{ID: 7, Email: "a@example.com"})
	assert.Equal(t, SubscriberOut{ID: 7, Email: "a@example.com"}, out)
}
