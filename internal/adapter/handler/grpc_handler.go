package handler

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rl1809/flashsale-engine/internal/core/domain"
	"github.com/rl1809/flashsale-engine/internal/core/observer"
	"github.com/rl1809/flashsale-engine/internal/core/service"
	"github.com/rl1809/flashsale-engine/internal/pkg/clock"
	"github.com/rl1809/flashsale-engine/internal/pkg/countdown"
	"github.com/rl1809/flashsale-engine/internal/pkg/eventbus"
)

const FlashSaleServiceName = "flashsale.v1.FlashSaleService"

// FlashSaleServiceServer uses well-known message types so the service can be
// called without generated stubs.
type FlashSaleServiceServer interface {
	ListActive(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Purchase(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MarkExpired(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Watch(*emptypb.Empty, grpc.ServerStream) error
}

var FlashSaleServiceDesc = grpc.ServiceDesc{
	ServiceName: FlashSaleServiceName,
	HandlerType: (*FlashSaleServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListActive", Handler: listActiveHandler},
		{MethodName: "Purchase", Handler: purchaseHandler},
		{MethodName: "MarkExpired", Handler: markExpiredHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Watch", Handler: watchHandler, ServerStreams: true},
	},
	Metadata: "flashsale/v1/flash_sale.proto",
}

func RegisterFlashSaleServiceServer(s grpc.ServiceRegistrar, srv FlashSaleServiceServer) {
	s.RegisterService(&FlashSaleServiceDesc, srv)
}

type WatchOptions struct {
	PollInterval time.Duration
	Tick         time.Duration
}

type GRPCHandler struct {
	store       *service.FlashSaleStore
	checkout    *service.CheckoutService
	coordinator *service.ExpirationCoordinator
	bus         *eventbus.Bus
	clock       clock.Clock
	watch       WatchOptions
	logger      *zap.Logger
}

func NewGRPCHandler(
	store *service.FlashSaleStore,
	checkout *service.CheckoutService,
	coordinator *service.ExpirationCoordinator,
	bus *eventbus.Bus,
	clk clock.Clock,
	watch WatchOptions,
	logger *zap.Logger,
) *GRPCHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GRPCHandler{
		store:       store,
		checkout:    checkout,
		coordinator: coordinator,
		bus:         bus,
		clock:       clk,
		watch:       watch,
		logger:      logger,
	}
}

func (h *GRPCHandler) ListActive(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	now := h.clock.Now()
	sales := h.store.ListActive()
	entries := make([]observer.Entry, 0, len(sales))
	for _, sale := range sales {
		entries = append(entries, observer.Entry{Sale: sale, Countdown: countdown.DisplayAt(now, sale.EndTime)})
	}
	return toStruct(map[string]any{"sales": entries})
}

// Purchase reports sold out and duplicate requests in the response body, like
// the HTTP API. Malformed requests and unknown sales are status errors.
func (h *GRPCHandler) Purchase(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	quantity := fields["quantity"].GetNumberValue()
	if quantity != math.Trunc(quantity) || quantity > math.MaxInt32 {
		return nil, status.Error(codes.InvalidArgument, "quantity must be a whole number")
	}
	purchase := service.PurchaseRequest{
		RequestID:    fields["request_id"].GetStringValue(),
		CustomerID:   fields["customer_id"].GetStringValue(),
		CustomerName: fields["customer_name"].GetStringValue(),
		SaleID:       fields["sale_id"].GetStringValue(),
		Quantity:     int(quantity),
		Address:      fields["address"].GetStringValue(),
	}
	if purchase.SaleID == "" || purchase.CustomerID == "" || purchase.Quantity <= 0 {
		return nil, status.Error(codes.InvalidArgument, "missing required fields")
	}

	res, err := h.checkout.Purchase(ctx, purchase)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateRequest):
			return toStruct(PurchaseHTTPResponse{Success: false, Message: "duplicate request"})
		case errors.Is(err, domain.ErrInsufficientStock):
			return toStruct(PurchaseHTTPResponse{Success: false, Message: "sold out"})
		}
		return nil, grpcError(err)
	}

	return toStruct(PurchaseHTTPResponse{
		Success:    true,
		Message:    "order placed successfully",
		Sale:       &res.Sale,
		DeliveryID: res.DeliveryID,
	})
}

func (h *GRPCHandler) MarkExpired(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	saleID := req.GetFields()["sale_id"].GetStringValue()
	if saleID == "" {
		return nil, status.Error(codes.InvalidArgument, "sale_id is required")
	}
	if _, err := h.store.Get(saleID); err != nil {
		return nil, grpcError(err)
	}

	accepted := h.coordinator.MarkExpired(saleID)
	return toStruct(map[string]any{
		"accepted": accepted,
		"state":    h.coordinator.State(saleID),
	})
}

// Watch streams a fresh snapshot whenever the sale list changes. Snapshots the
// client has not read yet are replaced by newer ones.
func (h *GRPCHandler) Watch(_ *emptypb.Empty, stream grpc.ServerStream) error {
	updates := make(chan []observer.Entry, 1)
	push := func(entries []observer.Entry) {
		for {
			select {
			case updates <- entries:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	}

	view := observer.Open(h.store, h.bus, h.coordinator, h.clock, observer.Options{
		PollInterval: h.watch.PollInterval,
		Tick:         h.watch.Tick,
		OnChange:     push,
		Logger:       h.logger,
	})
	defer view.Close()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case entries := <-updates:
			msg, err := toStruct(map[string]any{"sales": entries})
			if err != nil {
				return err
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		}
	}
}

func grpcError(err error) error {
	switch {
	case errors.Is(err, service.ErrDuplicateRequest):
		return status.Error(codes.AlreadyExists, "duplicate request")
	case errors.Is(err, domain.ErrDuplicateSale):
		return status.Error(codes.AlreadyExists, "sale already exists")
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, "sale not found")
	case errors.Is(err, domain.ErrInsufficientStock):
		return status.Error(codes.FailedPrecondition, "sold out")
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidSale),
		errors.Is(err, domain.ErrInvalidSchedule):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, "failed to update inventory")
	}
}

// toStruct goes through JSON so the payload keeps the same field names the
// HTTP API uses.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	msg := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, msg); err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return msg, nil
}

func listActiveHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FlashSaleServiceServer).ListActive(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + FlashSaleServiceName + "/ListActive"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FlashSaleServiceServer).ListActive(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func purchaseHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FlashSaleServiceServer).Purchase(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + FlashSaleServiceName + "/Purchase"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FlashSaleServiceServer).Purchase(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func markExpiredHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FlashSaleServiceServer).MarkExpired(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + FlashSaleServiceName + "/MarkExpired"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FlashSaleServiceServer).MarkExpired(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(FlashSaleServiceServer).Watch(in, stream)
}

// LoggingInterceptor logs every unary call with its outcome.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc call",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start)),
		)
		return resp, err
	}
}
