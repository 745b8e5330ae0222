package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// PageSize is the fixed marketplace page length.
const PageSize = 8

// ListingEntry is one row of a per-author listing. On the wire it is a
// triple [tokenId, rarity_or_flag, price]. Price 0 means not for sale.
type ListingEntry struct {
	TokenID uint64 `json:"token_id"`
	Rarity  int    `json:"rarity"`
	Price   uint64 `json:"price"`
}

func (e ListingEntry) ForSale() bool { return e.Price > 0 }

// UnmarshalJSON accepts the triple form. Numbers may arrive as JSON numbers
// or as decimal strings.
func (e *ListingEntry) UnmarshalJSON(data []byte) error {
	var triple []json.RawMessage
	if err := json.Unmarshal(data, &triple); err != nil {
		return fmt.Errorf("listing entry: %w", err)
	}
	if len(triple) < 3 {
		return fmt.Errorf("listing entry: want 3 fields, got %d", len(triple))
	}

	token, err := parseUint(triple[0])
	if err != nil {
		return fmt.Errorf("listing entry token: %w", err)
	}
	rarity, err := parseInt(triple[1])
	if err != nil {
		return fmt.Errorf("listing entry rarity: %w", err)
	}
	price, err := parseUint(triple[2])
	if err != nil {
		return fmt.Errorf("listing entry price: %w", err)
	}

	e.TokenID = token
	e.Rarity = rarity
	e.Price = price
	return nil
}

// DecodeListing decodes a JSON array of triples. Rows that do not decode are
// dropped and counted; only a payload that is not an array is an error.
func DecodeListing(data []byte) ([]ListingEntry, int, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, 0, fmt.Errorf("listing: %w", err)
	}
	entries := make([]ListingEntry, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		var e ListingEntry
		if err := json.Unmarshal(row, &e); err != nil {
			skipped++
			continue
		}
		entries = append(entries, e)
	}
	return entries, skipped, nil
}

func parseUint(raw json.RawMessage) (uint64, error) {
	s := numberText(raw)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

// parseInt reads the rarity slot, which may hold a negative flag.
func parseInt(raw json.RawMessage) (int, error) {
	s := numberText(raw)
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func numberText(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	s = strings.Trim(s, `"`)
	if s == "null" {
		return ""
	}
	// tolerate float encodings of whole numbers, e.g. 5.0
	if i := strings.IndexByte(s, '.'); i >= 0 && strings.Trim(s[i+1:], "0") == "" {
		s = s[:i]
	}
	return s
}

// Page is a window over the filtered, ordered for-sale set.
type Page struct {
	Index   int            `json:"page"`
	Entries []ListingEntry `json:"entries"`
	HasNext bool           `json:"has_next"`
	HasPrev bool           `json:"has_prev"`
}
