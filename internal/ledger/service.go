// Package ledger is the client and server side of the story actor that
// keeps authored stories and their vote totals.
package ledger

import (
	"context"

	"google.golang.org/grpc"

	"kontribute/pkg/models"
)

const ServiceName = "kontribute.ledger.StoryActor"

type GetRequest struct {
	StoryID uint64 `json:"storyId"`
}

type StoryIDsRequest struct {
	Page int `json:"page"`
}

type UserStoriesRequest struct {
	Principal string `json:"principal"`
}

// StoryActorServer is implemented by anything that can answer story actor
// calls. Domain failures travel in the err tag of the result; a non-nil
// error is a transport-level failure.
type StoryActorServer interface {
	Get(ctx context.Context, req *GetRequest) (*models.Result[models.StoryRecord], error)
	GetStoryIDs(ctx context.Context, req *StoryIDsRequest) (*models.Result[[]uint64], error)
	GetUserStories(ctx context.Context, req *UserStoriesRequest) (*models.Result[[]uint64], error)
}

func RegisterStoryActorServer(s grpc.ServiceRegistrar, srv StoryActorServer) {
	s.RegisterService(&storyActorDesc, srv)
}

var storyActorDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StoryActorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Get", Handler: getHandler},
		{MethodName: "GetStoryIDs", Handler: storyIDsHandler},
		{MethodName: "GetUserStories", Handler: userStoriesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kontribute/ledger",
}

func unary[Req, Resp any](method string, call func(StoryActorServer, context.Context, *Req) (Resp, error)) grpc.MethodHandler {
	full := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(StoryActorServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(StoryActorServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var (
	getHandler = unary("Get", func(s StoryActorServer, ctx context.Context, in *GetRequest) (*models.Result[models.StoryRecord], error) {
		return s.Get(ctx, in)
	})
	storyIDsHandler = unary("GetStoryIDs", func(s StoryActorServer, ctx context.Context, in *StoryIDsRequest) (*models.Result[[]uint64], error) {
		return s.GetStoryIDs(ctx, in)
	})
	userStoriesHandler = unary("GetUserStories", func(s StoryActorServer, ctx context.Context, in *UserStoriesRequest) (*models.Result[[]uint64], error) {
		return s.GetUserStories(ctx, in)
	})
)
