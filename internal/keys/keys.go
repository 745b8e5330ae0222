// Package keys derives partition and sort keys for the story backend.
//
// Story keys look like author_<authorId>_story_<slug>, where the slug is
// percent-encoded. Every function here is pure.
package keys

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrMalformedKey = errors.New("malformed story key")
	ErrInvalidIndex = errors.New("proposal index must be a positive integer")
)

const (
	partitionPrefix = "user_"
	proposalPrefix  = "proposal_"
	proposalInfix   = "_for_"
)

// PartitionKeyOf returns user_<authorId> for a story key.
func PartitionKeyOf(storyKey string) (string, error) {
	parts := strings.SplitN(storyKey, "_", 3)
	if len(parts) < 3 || parts[1] == "" {
		return "", fmt.Errorf("%w: %q", ErrMalformedKey, storyKey)
	}
	return partitionPrefix + parts[1], nil
}

// ProposalKeyOf returns the sort key of the index-th proposal (1-based).
func ProposalKeyOf(storyKey string, index int) (string, error) {
	if index < 1 {
		return "", fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	return proposalPrefix + strconv.Itoa(index) + proposalInfix + EncodeComponent(storyKey), nil
}

// StoryKey builds author_<authorId>_story_<encoded slug>.
func StoryKey(authorID, slug string) string {
	return "author_" + authorID + "_story_" + EncodeComponent(slug)
}

// StoryKeyFromProposalKey splits a proposal key back into its story key and
// index.
func StoryKeyFromProposalKey(proposalKey string) (string, int, error) {
	rest, ok := strings.CutPrefix(proposalKey, proposalPrefix)
	if !ok {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedKey, proposalKey)
	}
	num, encoded, ok := strings.Cut(rest, proposalInfix)
	if !ok {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedKey, proposalKey)
	}
	index, err := strconv.Atoi(num)
	if err != nil || index < 1 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidIndex, num)
	}
	storyKey, err := DecodeComponent(encoded)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	return storyKey, index, nil
}
