package grpc

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/simaogato/networth-backend/internal/domain"
	"github.com/simaogato/networth-backend/internal/usecase/snapshot"
	"github.com/simaogato/networth-backend/internal/usecase/transfer"
)

// Client is a typed client of the NetWorthService
type Client struct {
	cc    grpc.ClientConnInterface
	token string
}

// NewClient creates a client that authenticates every call with token
func NewClient(cc grpc.ClientConnInterface, token string) *Client {
	return &Client{cc: cc, token: token}
}

func (c *Client) invoke(ctx context.Context, method string, in, out proto.Message) error {
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out)
}

// call sends req as a Struct and decodes the Struct response into out
func (c *Client) call(ctx context.Context, method string, req proto.Message, out any) error {
	resp := &structpb.Struct{}
	if err := c.invoke(ctx, method, req, resp); err != nil {
		return err
	}
	return fromStruct(resp, out)
}

func (c *Client) callJSON(ctx context.Context, method string, req, out any) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	return c.call(ctx, method, in, out)
}

// DisplayTotal returns the header total for page. A non-nil buffer means the page is being edited.
func (c *Client) DisplayTotal(ctx context.Context, page domain.Page, date string, buffer []domain.Section) (decimal.Decimal, error) {
	var out TotalResponse
	if err := c.callJSON(ctx, "GetDisplayTotal", TotalRequest{Page: page, Date: date, Buffer: buffer}, &out); err != nil {
		return decimal.Zero, err
	}
	return parseTotal(out.Total)
}

func (c *Client) ListSections(ctx context.Context) ([]domain.Section, error) {
	var out SectionsResponse
	if err := c.call(ctx, "ListSections", &emptypb.Empty{}, &out); err != nil {
		return nil, err
	}
	return out.Sections, nil
}

func (c *Client) AddSection(ctx context.Context) (*domain.Section, error) {
	var out domain.Section
	if err := c.call(ctx, "AddSection", &emptypb.Empty{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateSection(ctx context.Context, id uuid.UUID, patch domain.SectionPatch) (*RefreshResponse, error) {
	var out RefreshResponse
	if err := c.callJSON(ctx, "UpdateSection", UpdateSectionRequest{ID: id.String(), SectionPatch: patch}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ChangeSectionType(ctx context.Context, id uuid.UUID, assetType domain.AssetType) (*domain.Section, error) {
	var out domain.Section
	if err := c.callJSON(ctx, "ChangeSectionType", ChangeTypeRequest{ID: id.String(), AssetType: assetType}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RemoveSection(ctx context.Context, id uuid.UUID) error {
	return c.invoke(ctx, "RemoveSection", wrapperspb.String(id.String()), &emptypb.Empty{})
}

func (c *Client) RefreshSection(ctx context.Context, id uuid.UUID, date string, buffer []domain.Section) (*RefreshResponse, error) {
	var out RefreshResponse
	if err := c.callJSON(ctx, "RefreshSection", RefreshRequest{ID: id.String(), Date: date, Buffer: buffer}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveSnapshot snapshots sections for date, or the live sections when sections is nil
func (c *Client) SaveSnapshot(ctx context.Context, date string, sections []domain.Section) (*domain.Snapshot, error) {
	var out domain.Snapshot
	if err := c.callJSON(ctx, "SaveSnapshot", SaveSnapshotRequest{Date: date, Sections: sections}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetSnapshot(ctx context.Context, date string) (*domain.Snapshot, error) {
	var out domain.Snapshot
	if err := c.call(ctx, "GetSnapshot", wrapperspb.String(date), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListSnapshots(ctx context.Context) ([]domain.Snapshot, error) {
	var out SnapshotsResponse
	if err := c.call(ctx, "ListSnapshots", &emptypb.Empty{}, &out); err != nil {
		return nil, err
	}
	return out.Snapshots, nil
}

func (c *Client) DeleteSnapshot(ctx context.Context, date string, confirm bool) error {
	in, err := toStruct(DeleteSnapshotRequest{Date: date, Confirm: confirm})
	if err != nil {
		return err
	}
	return c.invoke(ctx, "DeleteSnapshot", in, &emptypb.Empty{})
}

func (c *Client) History(ctx context.Context) (*snapshot.History, error) {
	var out snapshot.History
	if err := c.call(ctx, "GetHistory", &emptypb.Empty{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResolvePrice resolves ticker as of date, or the latest price when date is empty
func (c *Client) ResolvePrice(ctx context.Context, ticker, date string) (domain.PriceResult, error) {
	var out domain.PriceResult
	err := c.callJSON(ctx, "ResolvePrice", PriceRequest{Ticker: ticker, Date: date}, &out)
	return out, err
}

func (c *Client) ClearPriceCache(ctx context.Context, confirm bool) (int, error) {
	var out ClearCacheResponse
	if err := c.call(ctx, "ClearPriceCache", wrapperspb.Bool(confirm), &out); err != nil {
		return 0, err
	}
	return out.Cleared, nil
}

// Export returns the export file content
func (c *Client) Export(ctx context.Context) ([]byte, error) {
	out := &wrapperspb.BytesValue{}
	if err := c.invoke(ctx, "Export", &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return out.GetValue(), nil
}

func (c *Client) Import(ctx context.Context, data []byte) (*transfer.ImportSummary, error) {
	var out transfer.ImportSummary
	if err := c.call(ctx, "Import", wrapperspb.Bytes(data), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
