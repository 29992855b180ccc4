package grpc

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"calbook/internal/domain"
	"calbook/internal/ratelimit"
	"calbook/internal/service/bookings"
	"calbook/internal/service/owners"
	"calbook/internal/store"
	"calbook/internal/store/bunstore"
)

type fakeBookingsService struct {
	createFn func(ctx context.Context, in bookings.CreateInput) (domain.Booking, error)
	getFn    func(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error)
	listFn   func(ctx context.Context, in bookings.ListInput) ([]domain.Booking, error)
	updateFn func(ctx context.Context, bookingID uuid.UUID, in bookings.UpdateInput) (domain.Booking, error)
	deleteFn func(ctx context.Context, bookingID uuid.UUID) error
}

func (f *fakeBookingsService) Create(ctx context.Context, in bookings.CreateInput) (domain.Booking, error) {
	if f.createFn == nil {
		panic("Create not configured")
	}
	return f.createFn(ctx, in)
}

func (f *fakeBookingsService) Get(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	if f.getFn == nil {
		panic("Get not configured")
	}
	return f.getFn(ctx, bookingID)
}

func (f *fakeBookingsService) List(ctx context.Context, in bookings.ListInput) ([]domain.Booking, error) {
	if f.listFn == nil {
		panic("List not configured")
	}
	return f.listFn(ctx, in)
}

func (f *fakeBookingsService) Update(ctx context.Context, bookingID uuid.UUID, in bookings.UpdateInput) (domain.Booking, error) {
	if f.updateFn == nil {
		panic("Update not configured")
	}
	return f.updateFn(ctx, bookingID, in)
}

func (f *fakeBookingsService) Delete(ctx context.Context, bookingID uuid.UUID) error {
	if f.deleteFn == nil {
		panic("Delete not configured")
	}
	return f.deleteFn(ctx, bookingID)
}

func mustStruct(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatalf("NewStruct error: %v", err)
	}
	return s
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func dial(t *testing.T, register func(s *grpc.Server), opts ...grpc.ServerOption) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(opts...)
	register(srv)
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func call(ctx context.Context, conn *grpc.ClientConn, service, method string, req *structpb.Struct) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, FullMethod(service, method), req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func wantCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	if got := status.Code(err); got != want {
		t.Fatalf("code = %v, want %v (err=%v)", got, want, err)
	}
}

func TestBookingsOverGRPC(t *testing.T) {
	db, err := bunstore.Open(bunstore.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "grpc.db"), bunstore.PoolConfig{})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = bunstore.Close(db)
	})
	if err := bunstore.Migrate(context.Background(), db, nil); err != nil {
		t.Fatalf("Migrate error: %v", err)
	}

	log := quietLogger()
	bookingSvc := bookings.NewService(bunstore.NewBookingRepo(db), bookings.WithLogger(log))
	ownerSvc := owners.NewService(bunstore.NewOwnerRepo(db), log)
	conn := dial(t, func(s *grpc.Server) {
		RegisterBookingsServer(s, NewBookingsServer(bookingSvc, log))
		RegisterOwnersServer(s, NewOwnersServer(ownerSvc, log))
	}, grpc.ChainUnaryInterceptor(DefaultRequestTimeout(5*time.Second)))

	ctx := context.Background()
	created, err := call(ctx, conn, OwnersServiceName, "CreateOwner", mustStruct(t, map[string]any{"name": "Ada", "email": "ada@example.com"}))
	if err != nil {
		t.Fatalf("CreateOwner error: %v", err)
	}
	ownerID := created.GetFields()["owner"].GetStructValue().GetFields()["id"].GetStringValue()

	_, err = call(ctx, conn, OwnersServiceName, "CreateOwner", mustStruct(t, map[string]any{"name": "Ada", "email": "ADA@example.com"}))
	wantCode(t, err, codes.AlreadyExists)

	book := func(start, end string) (*structpb.Struct, error) {
		return call(ctx, conn, BookingsServiceName, "CreateBooking", mustStruct(t, map[string]any{
			"owner_id":   ownerID,
			"title":      "sync",
			"start_time": start,
			"end_time":   end,
		}))
	}

	first, err := book("2030-01-01T09:00:00Z", "2030-01-01T10:00:00Z")
	if err != nil {
		t.Fatalf("first CreateBooking error: %v", err)
	}
	if _, err := book("2030-01-01T10:00:00Z", "2030-01-01T11:00:00Z"); err != nil {
		t.Fatalf("touching CreateBooking error: %v", err)
	}
	_, err = book("2030-01-01T09:30:00Z", "2030-01-01T10:30:00Z")
	wantCode(t, err, codes.FailedPrecondition)
	_, err = book("2030-01-01T11:00:00Z", "2030-01-01T11:00:00Z")
	wantCode(t, err, codes.InvalidArgument)

	listed, err := call(ctx, conn, BookingsServiceName, "ListBookings", mustStruct(t, map[string]any{"owner_id": ownerID}))
	if err != nil {
		t.Fatalf("ListBookings error: %v", err)
	}
	rows := listed.GetFields()["bookings"].GetListValue().GetValues()
	if len(rows) != 2 {
		t.Fatalf("len(bookings) = %d, want 2", len(rows))
	}
	if got := rows[0].GetStructValue().GetFields()["start_time"].GetStringValue(); got != "2030-01-01T09:00:00Z" {
		t.Fatalf("first start_time = %q, want %q", got, "2030-01-01T09:00:00Z")
	}

	firstID := first.GetFields()["booking"].GetStructValue().GetFields()["id"].GetStringValue()
	_, err = call(ctx, conn, BookingsServiceName, "UpdateBooking", mustStruct(t, map[string]any{
		"id":       firstID,
		"end_time": "2030-01-01T10:30:00Z",
	}))
	wantCode(t, err, codes.FailedPrecondition)

	if _, err := call(ctx, conn, BookingsServiceName, "DeleteBooking", mustStruct(t, map[string]any{"id": firstID})); err != nil {
		t.Fatalf("DeleteBooking error: %v", err)
	}
	_, err = call(ctx, conn, BookingsServiceName, "DeleteBooking", mustStruct(t, map[string]any{"id": firstID}))
	wantCode(t, err, codes.NotFound)
	_, err = call(ctx, conn, BookingsServiceName, "GetBooking", mustStruct(t, map[string]any{"id": firstID}))
	wantCode(t, err, codes.NotFound)

	if _, err := call(ctx, conn, OwnersServiceName, "DeleteOwner", mustStruct(t, map[string]any{"id": ownerID})); err != nil {
		t.Fatalf("DeleteOwner error: %v", err)
	}
	_, err = call(ctx, conn, OwnersServiceName, "GetOwner", mustStruct(t, map[string]any{"id": ownerID}))
	wantCode(t, err, codes.NotFound)
}

func TestCreateBooking_RejectsBadFields(t *testing.T) {
	srv := NewBookingsServer(&fakeBookingsService{}, quietLogger())
	cases := []struct {
		name   string
		fields map[string]any
	}{
		{name: "missing owner", fields: map[string]any{"title": "x", "start_time": "2030-01-01T09:00:00Z", "end_time": "2030-01-01T10:00:00Z"}},
		{name: "bad owner", fields: map[string]any{"owner_id": "nope", "title": "x", "start_time": "2030-01-01T09:00:00Z", "end_time": "2030-01-01T10:00:00Z"}},
		{name: "missing start", fields: map[string]any{"owner_id": uuid.NewString(), "title": "x", "end_time": "2030-01-01T10:00:00Z"}},
		{name: "bad end", fields: map[string]any{"owner_id": uuid.NewString(), "title": "x", "start_time": "2030-01-01T09:00:00Z", "end_time": "tomorrow"}},
		{name: "title not string", fields: map[string]any{"owner_id": uuid.NewString(), "title": 3, "start_time": "2030-01-01T09:00:00Z", "end_time": "2030-01-01T10:00:00Z"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := srv.CreateBooking(context.Background(), mustStruct(t, tc.fields))
			wantCode(t, err, codes.InvalidArgument)
		})
	}
}

func TestToStatus_MapsKinds(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{err: store.ErrSlotConflict, want: codes.FailedPrecondition},
		{err: store.ErrDuplicateIdentity, want: codes.AlreadyExists},
		{err: store.ErrOwnerNotFound, want: codes.NotFound},
		{err: store.ErrBookingNotFound, want: codes.NotFound},
		{err: domain.WrapValidationError("Start time must be before end time", domain.ErrInvalidInterval), want: codes.InvalidArgument},
		{err: errors.Join(store.ErrUnavailable, errors.New("conn reset")), want: codes.Unavailable},
		{err: errors.New("boom"), want: codes.Internal},
	}
	log := quietLogger()
	for _, tc := range cases {
		wantCode(t, toStatus(log, tc.err), tc.want)
	}
}

func TestListBookings_ParsesFilter(t *testing.T) {
	ownerID := uuid.New()
	var got bookings.ListInput
	srv := NewBookingsServer(&fakeBookingsService{
		listFn: func(ctx context.Context, in bookings.ListInput) ([]domain.Booking, error) {
			got = in
			return nil, nil
		},
	}, quietLogger())

	_, err := srv.ListBookings(context.Background(), mustStruct(t, map[string]any{
		"owner_id": ownerID.String(),
		"from":     "2030-01-01T00:00:00Z",
		"to":       "2030-01-02T00:00:00+02:00",
		"match":    "overlap",
	}))
	if err != nil {
		t.Fatalf("ListBookings error: %v", err)
	}
	if got.OwnerID == nil || *got.OwnerID != ownerID {
		t.Fatalf("owner = %v, want %v", got.OwnerID, ownerID)
	}
	if got.Match != store.MatchOverlap {
		t.Fatalf("match = %v, want %v", got.Match, store.MatchOverlap)
	}
	if got.From == nil || got.To == nil || !got.To.Equal(time.Date(2030, 1, 1, 22, 0, 0, 0, time.UTC)) {
		t.Fatalf("window = %v..%v", got.From, got.To)
	}

	_, err = srv.ListBookings(context.Background(), mustStruct(t, map[string]any{"match": "sideways"}))
	wantCode(t, err, codes.InvalidArgument)
}

func TestRateLimitInterceptor(t *testing.T) {
	rl := ratelimit.New(0.001, 1)
	conn := dial(t, func(s *grpc.Server) {
		RegisterBookingsServer(s, NewBookingsServer(&fakeBookingsService{
			getFn: func(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
				return domain.Booking{ID: bookingID}, nil
			},
		}, quietLogger()))
	}, grpc.ChainUnaryInterceptor(RateLimit(rl)))

	req := mustStruct(t, map[string]any{"id": uuid.NewString()})
	if _, err := call(context.Background(), conn, BookingsServiceName, "GetBooking", req); err != nil {
		t.Fatalf("first GetBooking error: %v", err)
	}
	_, err := call(context.Background(), conn, BookingsServiceName, "GetBooking", req)
	wantCode(t, err, codes.ResourceExhausted)
}

func TestDefaultRequestTimeout_SetsDeadline(t *testing.T) {
	interceptor := DefaultRequestTimeout(time.Minute)
	var hadDeadline bool
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{}, func(ctx context.Context, req any) (any, error) {
		_, hadDeadline = ctx.Deadline()
		return nil, nil
	})
	if err != nil {
		t.Fatalf("interceptor error: %v", err)
	}
	if !hadDeadline {
		t.Fatalf("expected handler context to carry a deadline")
	}
}
