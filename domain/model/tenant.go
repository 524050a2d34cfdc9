package model

// Tenant scopes every persistence call to one customer schema.
type Tenant struct {
	Schema string `json:"schema"`
	Name   string `json:"name,omitempty"`
}

func (t Tenant) String() string { return t.Schema }
