package collab

import "github.com/tanishk-sarode/codechill-v2/internal/domain"

// Proposal is a client's attempt to replace the document content, tagged
// with the version the client believed was current. It is consumed
// immediately by Resolve and never stored.
type Proposal struct {
	Content     string
	BaseVersion uint64
	AuthorID    string
	Cursor      *domain.CursorPosition
}

// Resolution is the outcome of resolving a proposal against the document.
type Resolution struct {
	Accepted bool

	// NewVersion is set on acceptance: the version the proposal committed.
	NewVersion uint64

	// CurrentContent/CurrentVersion are set on conflict: the authoritative
	// state the losing client must rebase onto.
	CurrentContent string
	CurrentVersion uint64
}

// Resolve applies last-committed-version-wins optimistic concurrency: a
// proposal is accepted iff its base version equals the document's current
// version, in which case the document is mutated and the new version
// returned. A stale proposal is rejected with the authoritative state so
// the client can rebase and resubmit; no text-level merge is attempted.
//
// A base version ahead of the document (possible only with a corrupted
// client) is treated exactly like a stale one.
func Resolve(doc *Document, p Proposal) Resolution {
	content, version := doc.Snapshot()
	if p.BaseVersion != version {
		return Resolution{
			Accepted:       false,
			CurrentContent: content,
			CurrentVersion: version,
		}
	}
	return Resolution{
		Accepted:   true,
		NewVersion: doc.applyAccepted(p.Content),
	}
}
