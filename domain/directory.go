package domain

// IncomingRequest pairs a pending relationship with the identity that
// sent it, ready for an accept/decline decision.
type IncomingRequest struct {
	From    Identity
	Request Relationship
}

// Directory is the total, disjoint partition of every other visible
// identity: each one lands in exactly one bucket.
type Directory struct {
	Contacts []Identity
	Incoming []IncomingRequest
	Others   []Identity
}

// Partition buckets the visible identities against the relationships
// involving meID. An accepted relationship makes a Contact, a pending
// one addressed to me an IncomingRequest, and everything else
// (no record, outgoing pending, rejected) lands in Others.
func Partition(meID string, visible []Identity, relationships []Relationship) Directory {
	byCounterpart := make(map[string]Relationship, len(relationships))
	for _, rel := range relationships {
		if rel.Involves(meID) {
			byCounterpart[rel.Counterpart(meID)] = rel
		}
	}

	var dir Directory
	for _, identity := range visible {
		if identity.ID == meID {
			continue
		}
		rel, known := byCounterpart[identity.ID]
		if !known {
			dir.Others = append(dir.Others, identity)
			continue
		}
		switch rel.Perspective(meID) {
		case PerspectiveAccepted:
			dir.Contacts = append(dir.Contacts, identity)
		case PerspectivePendingIncoming:
			dir.Incoming = append(dir.Incoming, IncomingRequest{From: identity, Request: rel})
		default:
			dir.Others = append(dir.Others, identity)
		}
	}
	return dir
}
