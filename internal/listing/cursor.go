package listing

import "kontribute/pkg/models"

// Cursor tracks a viewer's position in a marketplace. Changing the author,
// the rarity or the price order always returns to page 0.
type Cursor struct {
	q Query
}

func NewCursor(authorID string) *Cursor {
	return &Cursor{q: Query{AuthorID: authorID, SortKey: AllRarities}}
}

func (c *Cursor) Query() Query { return c.q }

// Select switches author and rarity. It reports whether the page was reset.
func (c *Cursor) Select(authorID, sortKey string) bool {
	if sortKey == "" {
		sortKey = AllRarities
	}
	if authorID == c.q.AuthorID && sortKey == c.q.SortKey {
		return false
	}
	c.q.AuthorID = authorID
	c.q.SortKey = sortKey
	c.q.Page = 0
	return true
}

func (c *Cursor) SetOrder(o Order) bool {
	if o == c.q.Order {
		return false
	}
	c.q.Order = o
	c.q.Page = 0
	return true
}

// Next advances when last, the page currently shown, was full.
func (c *Cursor) Next(last models.Page) bool {
	if last.Index != c.q.Page || !last.HasNext {
		return false
	}
	c.q.Page++
	return true
}

func (c *Cursor) Prev() bool {
	if c.q.Page == 0 {
		return false
	}
	c.q.Page--
	return true
}
