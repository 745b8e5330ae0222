package models

import "net/url"

// Story is the record stored under a story sort key. Title, GroupName and
// Body are percent-encoded at rest.
type Story struct {
	Title         string `json:"title"`
	GroupName     string `json:"groupName"`
	Body          string `json:"body"`
	ProposalCount int    `json:"proposals"`
}

// Decoded returns a copy with the text fields percent-decoded. Fields that
// fail to decode are kept as stored.
func (s Story) Decoded() Story {
	s.Title = decodeOr(s.Title)
	s.GroupName = decodeOr(s.GroupName)
	s.Body = decodeOr(s.Body)
	return s
}

// Proposal is one voteable continuation of a story.
type Proposal struct {
	Index      int    `json:"index"`
	Title      string `json:"title,omitempty"`
	Body       string `json:"body,omitempty"`
	Votes      int    `json:"votes,omitempty"`
	Unresolved bool   `json:"unresolved,omitempty"`
}

func (p Proposal) Decoded() Proposal {
	p.Title = decodeOr(p.Title)
	p.Body = decodeOr(p.Body)
	return p
}

// UnresolvedProposal is the placeholder used when no shard returned the
// proposal at index.
func UnresolvedProposal(index int) Proposal {
	return Proposal{Index: index, Unresolved: true}
}

type AssembledNarrative struct {
	Story     Story      `json:"story"`
	Proposals []Proposal `json:"proposals"`
}

// Decoded returns the narrative with every text field percent-decoded.
func (n AssembledNarrative) Decoded() AssembledNarrative {
	out := AssembledNarrative{Story: n.Story.Decoded(), Proposals: make([]Proposal, len(n.Proposals))}
	for i, p := range n.Proposals {
		out.Proposals[i] = p.Decoded()
	}
	return out
}

func decodeOr(s string) string {
	out, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return out
}
