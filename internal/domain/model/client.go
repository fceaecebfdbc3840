// Package model contains domain models passed between layers.
package model

// ClientType is the service tier of a client. It selects which ranking and
// delivery target tables apply when an entry is scored.
type ClientType string

// Known client tiers.
const (
	ClientPremium  ClientType = "Premium"
	ClientStandard ClientType = "Standard"
)

// Valid reports whether t is a known tier.
func (t ClientType) Valid() bool {
	return t == ClientPremium || t == ClientStandard
}

// Client is the serviced account an entry is scored against.
type Client struct {
	ID     string     `json:"id" yaml:"id" db:"id"`
	Name   string     `json:"name" yaml:"name" db:"name" validate:"required"`
	Type   ClientType `json:"type" yaml:"type" db:"type" validate:"required,oneof=Premium Standard"`
	Active bool       `json:"active" yaml:"active" db:"active"`
}
