package domain

import "strings"

const conversationSeparator = "_"

// ConversationID derives the canonical channel id for a pair of
// identities. It is order independent, so both parties address the
// same channel without any discovery round-trip.
func ConversationID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return strings.Join([]string{a, b}, conversationSeparator)
}

// ConversationParties splits a conversation id back into its two
// participant ids. Identity ids never contain the separator.
func ConversationParties(conversationID string) (string, string, bool) {
	a, b, found := strings.Cut(conversationID, conversationSeparator)
	if !found || a == "" || b == "" {
		return "", "", false
	}
	return a, b, true
}
