package handler

import (
	"context"
	"encoding/json"
	"errors"
	"slices"

	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"github.com/segyhp/movie-rental/internal/domain"
	"github.com/segyhp/movie-rental/internal/service"
	customError "github.com/segyhp/movie-rental/pkg/errors"
)

// RentalServiceName is the fully qualified gRPC service name.
const RentalServiceName = "movierental.v1.RentalService"

// JSONCodecName is the content-subtype clients must request.
const JSONCodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                               { return JSONCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type RentalIDRequest struct {
	RentalID int64 `json:"rentalId" validate:"required,gt=0"`
}

type ListOverdueRequest struct{}

type RentalList struct {
	Rentals []domain.RentalView `json:"rentals"`
}

// RentalServiceServer is the server API of RentalServiceName.
type RentalServiceServer interface {
	Rent(ctx context.Context, req *domain.RentRequest) (*domain.Rental, error)
	Return(ctx context.Context, req *RentalIDRequest) (*domain.Rental, error)
	GetRental(ctx context.Context, req *RentalIDRequest) (*domain.RentalView, error)
	ListOverdue(ctx context.Context, req *ListOverdueRequest) (*RentalList, error)
}

// RentalServiceDesc describes the service for grpc.Server.RegisterService.
var RentalServiceDesc = grpc.ServiceDesc{
	ServiceName: RentalServiceName,
	HandlerType: (*RentalServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Rent", RentalServiceServer.Rent),
		unary("Return", RentalServiceServer.Return),
		unary("GetRental", RentalServiceServer.GetRental),
		unary("ListOverdue", RentalServiceServer.ListOverdue),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "movierental/v1/rental.proto",
}

func unary[Req, Resp any](method string, call func(RentalServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RentalServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + RentalServiceName + "/" + method,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(RentalServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// RegisterRentalServiceServer registers srv on s.
func RegisterRentalServiceServer(s grpc.ServiceRegistrar, srv RentalServiceServer) {
	s.RegisterService(&RentalServiceDesc, srv)
}

type GRPCHandler struct {
	ledger    *service.Ledger
	validator *validator.Validate
	now       Clock
}

func NewGRPCHandler(ledger *service.Ledger, clock Clock) *GRPCHandler {
	return &GRPCHandler{
		ledger:    ledger,
		validator: newValidator(),
		now:       orSystemClock(clock),
	}
}

func (h *GRPCHandler) Rent(ctx context.Context, req *domain.RentRequest) (*domain.Rental, error) {
	if err := h.validator.Struct(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	rental, err := h.ledger.Rent(ctx, req.MovieID, req.UserID, h.now())
	if err != nil {
		return nil, grpcError(err)
	}
	return rental, nil
}

func (h *GRPCHandler) Return(ctx context.Context, req *RentalIDRequest) (*domain.Rental, error) {
	if err := h.validator.Struct(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	rental, err := h.ledger.ReturnRental(ctx, req.RentalID, h.now())
	if err != nil {
		return nil, grpcError(err)
	}
	return rental, nil
}

func (h *GRPCHandler) GetRental(ctx context.Context, req *RentalIDRequest) (*domain.RentalView, error) {
	if err := h.validator.Struct(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	view, err := h.ledger.GetRental(ctx, req.RentalID, h.now())
	if err != nil {
		return nil, grpcError(err)
	}
	return view, nil
}

func (h *GRPCHandler) ListOverdue(ctx context.Context, _ *ListOverdueRequest) (*RentalList, error) {
	views, err := h.ledger.ListOverdue(ctx, h.now())
	if err != nil {
		return nil, grpcError(err)
	}
	return &RentalList{Rentals: nonNil(slices.Collect(views))}, nil
}

// grpcError maps the error taxonomy onto status codes. The message carries the reason.
func grpcError(err error) error {
	switch {
	case errors.Is(err, customError.ErrNotFound):
		return status.Error(codes.NotFound, customError.Reason(err))
	case errors.Is(err, customError.ErrInvalidOperation):
		return status.Error(codes.FailedPrecondition, customError.Reason(err))
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// RentalServiceClient calls RentalServiceName over conn with the JSON codec.
type RentalServiceClient struct {
	conn grpc.ClientConnInterface
}

func NewRentalServiceClient(conn grpc.ClientConnInterface) *RentalServiceClient {
	return &RentalServiceClient{conn: conn}
}

func (c *RentalServiceClient) Rent(ctx context.Context, movieID, userID int64) (*domain.Rental, error) {
	out := new(domain.Rental)
	err := c.invoke(ctx, "Rent", &domain.RentRequest{MovieID: movieID, UserID: userID}, out)
	return out, err
}

func (c *RentalServiceClient) Return(ctx context.Context, rentalID int64) (*domain.Rental, error) {
	out := new(domain.Rental)
	err := c.invoke(ctx, "Return", &RentalIDRequest{RentalID: rentalID}, out)
	return out, err
}

func (c *RentalServiceClient) GetRental(ctx context.Context, rentalID int64) (*domain.RentalView, error) {
	out := new(domain.RentalView)
	err := c.invoke(ctx, "GetRental", &RentalIDRequest{RentalID: rentalID}, out)
	return out, err
}

func (c *RentalServiceClient) ListOverdue(ctx context.Context) ([]domain.RentalView, error) {
	out := new(RentalList)
	if err := c.invoke(ctx, "ListOverdue", &ListOverdueRequest{}, out); err != nil {
		return nil, err
	}
	return out.Rentals, nil
}

func (c *RentalServiceClient) invoke(ctx context.Context, method string, in, out interface{}) error {
	return c.conn.Invoke(ctx, "/"+RentalServiceName+"/"+method, in, out, grpc.CallContentSubtype(JSONCodecName))
}
