package grpc

import (
	"bytes"
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/simaogato/networth-backend/internal/domain"
	"github.com/simaogato/networth-backend/internal/usecase/display"
	"github.com/simaogato/networth-backend/internal/usecase/pricing"
	"github.com/simaogato/networth-backend/internal/usecase/section"
	"github.com/simaogato/networth-backend/internal/usecase/snapshot"
	"github.com/simaogato/networth-backend/internal/usecase/transfer"
)

// Server implements the NetWorthService gRPC server
type Server struct {
	DisplayService  *display.DisplayService
	SectionService  *section.SectionService
	SnapshotService *snapshot.SnapshotService
	PricingService  *pricing.PricingService
	TransferService *transfer.TransferService
}

// NewServer creates a new gRPC server instance
func NewServer(
	displayService *display.DisplayService,
	sectionService *section.SectionService,
	snapshotService *snapshot.SnapshotService,
	pricingService *pricing.PricingService,
	transferService *transfer.TransferService,
) *Server {
	return &Server{
		DisplayService:  displayService,
		SectionService:  sectionService,
		SnapshotService: snapshotService,
		PricingService:  pricingService,
		TransferService: transferService,
	}
}

// Payloads carried inside google.protobuf.Struct messages

type TotalRequest struct {
	Page   domain.Page      `json:"page"`
	Date   string           `json:"date,omitempty"`
	Buffer []domain.Section `json:"buffer"` // non-null while editing
}

type TotalResponse struct {
	Total   string `json:"total"`
	Display string `json:"display"`
}

type SectionsResponse struct {
	Sections []domain.Section `json:"sections"`
}

type UpdateSectionRequest struct {
	ID string `json:"id"`
	domain.SectionPatch
}

type ChangeTypeRequest struct {
	ID        string           `json:"id"`
	AssetType domain.AssetType `json:"assetType"`
}

type RefreshRequest struct {
	ID     string           `json:"id"`
	Date   string           `json:"date,omitempty"`
	Buffer []domain.Section `json:"buffer"`
}

type RefreshResponse struct {
	section.RefreshResult
	Buffer []domain.Section `json:"buffer,omitempty"`
}

type SaveSnapshotRequest struct {
	Date     string           `json:"date,omitempty"`
	Sections []domain.Section `json:"sections"` // null for the live sections
}

type SnapshotsResponse struct {
	Snapshots []domain.Snapshot `json:"snapshots"`
}

type DeleteSnapshotRequest struct {
	Date    string `json:"date"`
	Confirm bool   `json:"confirm"`
}

type PriceRequest struct {
	Ticker string `json:"ticker"`
	Date   string `json:"date,omitempty"` // empty or "latest" for the latest price
}

type ClearCacheResponse struct {
	Cleared int `json:"cleared"`
}

// GetDisplayTotal handles the GetDisplayTotal RPC
func (s *Server) GetDisplayTotal(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in TotalRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	view, err := domain.NewView(in.Page, in.Date, in.Buffer)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	total, err := s.DisplayService.Total(ctx, view)
	if err != nil {
		return nil, mapError(err)
	}
	return respond(TotalResponse{Total: total.String(), Display: domain.FormatMoney(total)})
}

// ListSections handles the ListSections RPC
func (s *Server) ListSections(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	sections, err := s.SectionService.List(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return respond(SectionsResponse{Sections: sections})
}

// AddSection handles the AddSection RPC
func (s *Server) AddSection(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	sec, err := s.SectionService.Add(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return respond(sec)
}

// UpdateSection handles the UpdateSection RPC
func (s *Server) UpdateSection(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in UpdateSectionRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	id, err := parseID(in.ID)
	if err != nil {
		return nil, err
	}

	res, err := s.SectionService.Edit(ctx, id, in.SectionPatch)
	if err != nil {
		return nil, mapError(err)
	}
	return respond(res)
}

// ChangeSectionType handles the ChangeSectionType RPC
func (s *Server) ChangeSectionType(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in ChangeTypeRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	id, err := parseID(in.ID)
	if err != nil {
		return nil, err
	}

	sec, err := s.SectionService.ChangeType(ctx, id, in.AssetType)
	if err != nil {
		return nil, mapError(err)
	}
	return respond(sec)
}

// RemoveSection handles the RemoveSection RPC
func (s *Server) RemoveSection(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	id, err := parseID(req.GetValue())
	if err != nil {
		return nil, err
	}
	if err := s.SectionService.Remove(ctx, id); err != nil {
		return nil, mapError(err)
	}
	return &emptypb.Empty{}, nil
}

// RefreshSection handles the RefreshSection RPC. With a buffer the refresh
// applies to the buffer, which is returned; otherwise to the live section.
func (s *Server) RefreshSection(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in RefreshRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	id, err := parseID(in.ID)
	if err != nil {
		return nil, err
	}

	if in.Buffer != nil {
		buffer, res, err := s.SectionService.RefreshBuffer(ctx, in.Buffer, id, in.Date)
		if err != nil {
			return nil, mapError(err)
		}
		return respond(RefreshResponse{RefreshResult: *res, Buffer: buffer})
	}

	res, err := s.SectionService.Refresh(ctx, id, in.Date)
	if err != nil {
		return nil, mapError(err)
	}
	return respond(RefreshResponse{RefreshResult: *res})
}

// SaveSnapshot handles the SaveSnapshot RPC
func (s *Server) SaveSnapshot(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in SaveSnapshotRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	snap, err := s.SnapshotService.Save(ctx, in.Date, in.Sections)
	if err != nil {
		return nil, mapError(err)
	}
	return respond(snap)
}

// GetSnapshot handles the GetSnapshot RPC
func (s *Server) GetSnapshot(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	snap, err := s.SnapshotService.Get(ctx, req.GetValue())
	if err != nil {
		return nil, mapError(err)
	}
	return respond(snap)
}

// ListSnapshots handles the ListSnapshots RPC
func (s *Server) ListSnapshots(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snaps, err := s.SnapshotService.List(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return respond(SnapshotsResponse{Snapshots: snaps})
}

// DeleteSnapshot handles the DeleteSnapshot RPC
func (s *Server) DeleteSnapshot(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	var in DeleteSnapshotRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	if err := s.SnapshotService.Delete(ctx, in.Date, in.Confirm); err != nil {
		return nil, mapError(err)
	}
	return &emptypb.Empty{}, nil
}

// GetHistory handles the GetHistory RPC
func (s *Server) GetHistory(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	h, err := s.SnapshotService.History(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return respond(h)
}

// ResolvePrice handles the ResolvePrice RPC. Resolution failures are part of
// the response, not RPC errors.
func (s *Server) ResolvePrice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in PriceRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	return respond(s.PricingService.Resolve(ctx, in.Ticker, in.Date))
}

// ClearPriceCache handles the ClearPriceCache RPC; the request carries the confirmation
func (s *Server) ClearPriceCache(ctx context.Context, req *wrapperspb.BoolValue) (*structpb.Struct, error) {
	n, err := s.PricingService.ClearCache(ctx, req.GetValue())
	if err != nil {
		return nil, mapError(err)
	}
	return respond(ClearCacheResponse{Cleared: n})
}

// Export handles the Export RPC and returns the export file content
func (s *Server) Export(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BytesValue, error) {
	var buf bytes.Buffer
	if _, err := s.TransferService.WriteExport(ctx, &buf); err != nil {
		return nil, mapError(err)
	}
	return wrapperspb.Bytes(buf.Bytes()), nil
}

// Import handles the Import RPC
func (s *Server) Import(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	summary, err := s.TransferService.Import(ctx, req.GetValue())
	if err != nil {
		return nil, mapError(err)
	}
	return respond(summary)
}

func respond(v any) (*structpb.Struct, error) {
	out, err := toStruct(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "%v", err)
	}
	return out, nil
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid section id format: %v", err)
	}
	return id, nil
}

// parseTotal reads a decimal total from a response
func parseTotal(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, status.Errorf(codes.Internal, "invalid total %q: %v", raw, err)
	}
	return d, nil
}

// mapError maps domain errors to gRPC status codes
func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrSectionNotFound), errors.Is(err, domain.ErrSnapshotNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrInvalidAssetType),
		errors.Is(err, domain.ErrNegativeAmount),
		errors.Is(err, domain.ErrFieldNotApplicable),
		errors.Is(err, domain.ErrInvalidImport):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrConfirmationRequired):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrRefreshInProgress):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
