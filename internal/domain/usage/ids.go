package usage

import (
	"github.com/oklog/ulid/v2"
)

// NewAccountID returns a sortable account identifier.
func NewAccountID() string {
	return "acct_" + ulid.Make().String()
}

// NewEventID returns an identifier for a single usage commit, used in logs.
func NewEventID() string {
	return "use_" + ulid.Make().String()
}
