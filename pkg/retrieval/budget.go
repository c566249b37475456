// Package retrieval turns stored memory into a bounded prompt fragment:
// semantic lookup over embedded content, token-budgeted context assembly,
// and categorized knowledge bundles for planning.
package retrieval

// Budget is a token budget with named reservations. Each section of the
// assembled context draws only from its own reservation; exhausting one
// section never eats into another.
type Budget struct {
	// Total is the model's full context window in tokens.
	Total int `json:"total"`

	// System is reserved for the system prompt.
	System int `json:"system"`

	// Recent is reserved for recent conversation turns.
	Recent int `json:"recent"`

	// Retrieved is reserved for retrieved memory content.
	Retrieved int `json:"retrieved"`

	// Learnings is reserved for extracted learnings.
	Learnings int `json:"learnings"`

	// Response is held back for the model's reply and is never assembled
	// into the context.
	Response int `json:"response"`
}

// Available is the number of tokens assembly may actually use.
func (b Budget) Available() int {
	return b.Total - b.Response
}

// DefaultBudget splits a context window into the standard reservations:
// a quarter held back for the response, and the rest split across system,
// recent, retrieved, and learnings sections.
func DefaultBudget(total int) Budget {
	return Budget{
		Total:     total,
		Response:  total / 4,
		System:    total / 10,
		Recent:    total * 3 / 10,
		Retrieved: total / 4,
		Learnings: total / 10,
	}
}
