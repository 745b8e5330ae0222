package models

// StoryText is the authored content of a ledger story.
type StoryText struct {
	Title   string  `json:"title"`
	Story   string  `json:"story"`
	Address *string `json:"address,omitempty"`
}

// StoryRecord is what the ledger story actor returns for get(storyId).
type StoryRecord struct {
	StoryID    uint64    `json:"storyId"`
	Author     string    `json:"author"`
	TotalVotes uint64    `json:"totalVotes"`
	Story      StoryText `json:"story"`
}
