package ledger

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"kontribute/pkg/models"
)

// ErrEmpty is returned when the actor answers ok without a record.
var ErrEmpty = errors.New("ledger: empty ok result")

// RemoteError carries the err tag of a story actor result.
type RemoteError struct {
	Method string
	Msg    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("ledger %s: %s", e.Method, e.Msg)
}

// DialOptions are the options every ledger connection needs. Extra options
// are appended.
func DialOptions(extra ...grpc.DialOption) []grpc.DialOption {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}
	return append(opts, extra...)
}

// Dial creates a lazy connection to a ledger at addr.
func Dial(addr string, extra ...grpc.DialOption) (*grpc.ClientConn, error) {
	cc, err := grpc.NewClient(addr, DialOptions(extra...)...)
	if err != nil {
		return nil, fmt.Errorf("ledger dial %s: %w", addr, err)
	}
	return cc, nil
}

type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Get returns the story with the given id. An err-tagged answer is returned
// as a *RemoteError.
func (c *Client) Get(ctx context.Context, storyID uint64) (models.StoryRecord, error) {
	var res models.Result[models.StoryRecord]
	if err := c.invoke(ctx, "Get", &GetRequest{StoryID: storyID}, &res); err != nil {
		return models.StoryRecord{}, err
	}
	if !res.IsOk() {
		return models.StoryRecord{}, &RemoteError{Method: "Get", Msg: res.Err}
	}
	rec, ok := res.Unwrap()
	if !ok {
		return models.StoryRecord{}, ErrEmpty
	}
	return rec, nil
}

// GetStoryIDs returns one page of story ids in ascending order.
func (c *Client) GetStoryIDs(ctx context.Context, page int) ([]uint64, error) {
	return c.ids(ctx, "GetStoryIDs", &StoryIDsRequest{Page: page})
}

// GetUserStories returns the ids of the stories authored by principal.
func (c *Client) GetUserStories(ctx context.Context, principal string) ([]uint64, error) {
	return c.ids(ctx, "GetUserStories", &UserStoriesRequest{Principal: principal})
}

func (c *Client) ids(ctx context.Context, method string, req any) ([]uint64, error) {
	var res models.Result[[]uint64]
	if err := c.invoke(ctx, method, req, &res); err != nil {
		return nil, err
	}
	if !res.IsOk() {
		return nil, &RemoteError{Method: method, Msg: res.Err}
	}
	// an empty id list arrives as an empty container
	ids, ok := res.Unwrap()
	if !ok || ids == nil {
		return []uint64{}, nil
	}
	return ids, nil
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, resp, grpc.CallContentSubtype(codecName)); err != nil {
		return fmt.Errorf("ledger %s: %w", method, err)
	}
	return nil
}
