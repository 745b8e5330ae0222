package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sync"

	"kontribute/pkg/models"
)

// StoryIDsPageSize is the number of ids GetStoryIDs returns per page.
const StoryIDsPageSize = 10

// Memory is an in-process story actor. It backs the development ledger
// server and tests.
type Memory struct {
	mu      sync.RWMutex
	stories map[uint64]models.StoryRecord
	nextID  uint64
}

func NewMemory() *Memory {
	return &Memory{stories: make(map[uint64]models.StoryRecord), nextID: 1}
}

// Add stores a record. A zero StoryID is assigned the next free id.
func (m *Memory) Add(rec models.StoryRecord) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.StoryID == 0 {
		rec.StoryID = m.nextID
	}
	if rec.StoryID >= m.nextID {
		m.nextID = rec.StoryID + 1
	}
	m.stories[rec.StoryID] = rec
	return rec.StoryID
}

// LoadSeed reads a JSON array of story records into m.
func (m *Memory) LoadSeed(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed: %w", err)
	}
	var recs []models.StoryRecord
	if err := json.Unmarshal(raw, &recs); err != nil {
		return 0, fmt.Errorf("decode seed %s: %w", path, err)
	}
	for _, r := range recs {
		m.Add(r)
	}
	return len(recs), nil
}

func (m *Memory) Get(ctx context.Context, req *GetRequest) (*models.Result[models.StoryRecord], error) {
	m.mu.RLock()
	rec, ok := m.stories[req.StoryID]
	m.mu.RUnlock()

	if !ok {
		res := models.Err[models.StoryRecord](fmt.Sprintf("story %d not found", req.StoryID))
		return &res, nil
	}
	res := models.Ok(rec)
	return &res, nil
}

func (m *Memory) GetStoryIDs(ctx context.Context, req *StoryIDsRequest) (*models.Result[[]uint64], error) {
	if req.Page < 0 {
		res := models.Err[[]uint64]("page must be >= 0")
		return &res, nil
	}
	ids := m.sortedIDs(func(models.StoryRecord) bool { return true })

	if len(ids) == 0 || req.Page > (len(ids)-1)/StoryIDsPageSize {
		res := models.Ok([]uint64{})
		return &res, nil
	}
	lo := req.Page * StoryIDsPageSize
	hi := min(lo+StoryIDsPageSize, len(ids))
	res := models.Ok(slices.Clone(ids[lo:hi]))
	return &res, nil
}

func (m *Memory) GetUserStories(ctx context.Context, req *UserStoriesRequest) (*models.Result[[]uint64], error) {
	if req.Principal == "" {
		res := models.Err[[]uint64]("principal required")
		return &res, nil
	}
	ids := m.sortedIDs(func(r models.StoryRecord) bool { return r.Author == req.Principal })
	res := models.Ok(ids)
	return &res, nil
}

func (m *Memory) sortedIDs(keep func(models.StoryRecord) bool) []uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]uint64, 0, len(m.stories))
	for id, r := range m.stories {
		if keep(r) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}
