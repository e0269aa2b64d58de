// ABOUTME: User identity record and closed role enumeration
// ABOUTME: Validate is the schema boundary for every user value entering the client

package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Role is the closed set of account roles known to the client
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// Roles lists every valid role
var Roles = []Role{RoleAdmin, RoleStudent}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStudent
}

// ParseRole converts a string to a Role, rejecting unknown values
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q (must be admin or student)", s)
	}
	return r, nil
}

// User is an account as returned by the backend.
// Profile fields after Role are passed through without interpretation.
type User struct {
	ID        string `json:"_id"`
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	StudentID string `json:"studentId,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Faculty   string `json:"faculty,omitempty"`
	Class     string `json:"class,omitempty"`
	IsActive  *bool  `json:"isActive,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// Validation errors for User
var (
	ErrMissingID       = errors.New("user is missing id")
	ErrMissingFullName = errors.New("user is missing fullName")
	ErrMissingEmail    = errors.New("user is missing email")
	ErrInvalidRole     = errors.New("user role is not admin or student")
)

// Validate checks the fields the session subsystem relies on
func (u *User) Validate() error {
	if u == nil {
		return errors.New("user is absent")
	}
	if u.ID == "" {
		return ErrMissingID
	}
	if u.FullName == "" {
		return ErrMissingFullName
	}
	if u.Email == "" {
		return ErrMissingEmail
	}
	if !u.Role.Valid() {
		return ErrInvalidRole
	}
	return nil
}

// UnmarshalJSON accepts both the backend's "_id" key and a plain "id" key.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	aux := struct {
		*plain
		AltID string `json:"id"`
	}{plain: (*plain)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if u.ID == "" {
		u.ID = aux.AltID
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate shared state
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.IsActive != nil {
		active := *u.IsActive
		c.IsActive = &active
	}
	return &c
}
