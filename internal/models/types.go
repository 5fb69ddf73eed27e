package models

import "time"

// Namespace is a logical key table. Every key in a namespace uses the same
// scheme and length, fixed when the namespace is first used.
type Namespace struct {
	Name      string    `json:"name"`
	Scheme    string    `json:"scheme"`
	Length    int       `json:"length"`
	CreatedAt time.Time `json:"created_at"`
}

// Key is an allocated identifier as recorded in the key registry.
// Display is the scheme's textual form; the raw storage value is not exposed.
type Key struct {
	Namespace string    `json:"namespace"`
	Scheme    string    `json:"scheme"`
	Display   string    `json:"key"`
	Label     string    `json:"label,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Allocation is the result of an allocate-and-persist call.
type Allocation struct {
	Key
	// Attempts counts candidates drawn in the winning transaction.
	Attempts int `json:"attempts"`
	// Conflicts counts transactions rolled back because another writer
	// inserted the same key first.
	Conflicts int `json:"conflicts"`
	// Replayed is set when the key came from an earlier call with the same
	// request id rather than a fresh draw.
	Replayed bool `json:"replayed,omitempty"`
}
