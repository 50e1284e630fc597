// File: internal/user/payload.go
package user

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CreateUserPayload is the payload of the createUser action.
type CreateUserPayload struct {
	Email      string  `json:"email" validate:"required,email"`
	Password   string  `json:"password" validate:"omitempty,min=6"`
	FullName   string  `json:"full_name" validate:"required"`
	Role       string  `json:"role" validate:"required,oneof=admin manager accountant staff"`
	Phone      *string `json:"phone"`
	OutletID   *string `json:"outlet_id"`
	IsActive   *bool   `json:"is_active"`
	SendInvite bool    `json:"send_invite"`
}

// Active applies the default of true when is_active was not sent.
func (p CreateUserPayload) Active() bool {
	return p.IsActive == nil || *p.IsActive
}

// UpdateUserPayload is the payload of the updateUser action.
type UpdateUserPayload struct {
	UserID  string      `json:"user_id" validate:"required"`
	Updates UserUpdates `json:"updates"`
}

// UserUpdates distinguishes an absent key from an explicit null through the Set flags.
type UserUpdates struct {
	FullName OptionalString `json:"full_name"`
	Role     OptionalString `json:"role"`
	Phone    OptionalString `json:"phone"`
	IsActive OptionalBool   `json:"is_active"`
	OutletID OptionalString `json:"outlet_id"`
}

// DeleteUserPayload is the payload of the deleteUser action.
type DeleteUserPayload struct {
	UserID string `json:"user_id" validate:"required"`
}

var jsonNull = []byte("null")

// OptionalString records whether a JSON key was present. Value is nil for an explicit null.
type OptionalString struct {
	Set   bool
	Value *string
}

func (o *OptionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), jsonNull) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// Trimmed returns the trimmed value, with "" for null.
func (o OptionalString) Trimmed() string {
	if o.Value == nil {
		return ""
	}
	return strings.TrimSpace(*o.Value)
}

// OptionalBool records whether a JSON key was present. Value is nil for an explicit null.
type OptionalBool struct {
	Set   bool
	Value *bool
}

func (o *OptionalBool) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), jsonNull) {
		o.Value = nil
		return nil
	}
	var v bool
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// newValidator reports field errors under their json names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
