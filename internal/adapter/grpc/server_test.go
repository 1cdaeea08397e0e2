package grpc

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/simaogato/networth-backend/internal/adapter/repository/memory"
	"github.com/simaogato/networth-backend/internal/adapter/repository/record"
	"github.com/simaogato/networth-backend/internal/domain"
	"github.com/simaogato/networth-backend/internal/usecase/display"
	"github.com/simaogato/networth-backend/internal/usecase/pricing"
	"github.com/simaogato/networth-backend/internal/usecase/section"
	"github.com/simaogato/networth-backend/internal/usecase/snapshot"
	"github.com/simaogato/networth-backend/internal/usecase/transfer"
)

const testToken = "test-token-123"

// fixedSource prices every ticker at a constant close
type fixedSource struct {
	price decimal.Decimal
}

func (f fixedSource) Name() string { return "fixed" }

func (f fixedSource) HistoricalBars(_ context.Context, _ string, from, to time.Time) ([]domain.Bar, error) {
	p := f.price
	return []domain.Bar{{Time: from.AddDate(0, 0, 7), Close: &p}}, nil
}

func (f fixedSource) Latest(context.Context, string) (*domain.LatestQuote, error) {
	p := f.price
	return &domain.LatestQuote{RegularMarketPrice: &p}, nil
}

func newTestServer() *Server {
	store := memory.NewKeyValueStore()
	sectionRepo := record.NewSectionRepository(store, nil)
	snapshotRepo := record.NewSnapshotRepository(store, nil)
	priceCache := record.NewPriceCacheRepository(store, nil)

	prices := pricing.NewPricingService(priceCache, []domain.PriceSource{fixedSource{price: decimal.NewFromInt(100)}}, nil)
	sections := section.NewSectionService(sectionRepo, prices, nil)
	snapshots := snapshot.NewSnapshotService(snapshotRepo, sections, prices, nil)
	return NewServer(
		display.NewDisplayService(snapshotRepo, sections),
		sections,
		snapshots,
		prices,
		transfer.NewTransferService(sections, snapshotRepo, nil),
	)
}

// dial starts srv on an in-memory listener and returns a client for it
func dial(t *testing.T, srv NetWorthServiceServer, token string) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	s := grpclib.NewServer(grpclib.UnaryInterceptor(AuthInterceptor(testToken)))
	RegisterNetWorthServiceServer(s, srv)
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	conn, err := grpclib.NewClient("passthrough:///bufnet",
		grpclib.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpclib.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewClient(conn, token)
}

func strPtr(s string) *string { return &s }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestServer_SectionsAndSnapshots(t *testing.T) {
	ctx := context.Background()
	c := dial(t, newTestServer(), testToken)

	// Setup: one cash account and one stock position
	cash, err := c.AddSection(ctx)
	require.NoError(t, err)
	_, err = c.UpdateSection(ctx, cash.ID, domain.SectionPatch{AccountName: strPtr("Checking"), ValueDollars: decPtr("1500.25")})
	require.NoError(t, err)

	stock, err := c.AddSection(ctx)
	require.NoError(t, err)
	_, err = c.ChangeSectionType(ctx, stock.ID, domain.AssetTypeStock)
	require.NoError(t, err)
	updated, err := c.UpdateSection(ctx, stock.ID, domain.SectionPatch{StockTicker: strPtr("VTI"), Shares: decPtr("3")})
	require.NoError(t, err)
	assert.Equal(t, "300", updated.Section.ValueDollars.String())

	sections, err := c.ListSections(ctx)
	require.NoError(t, err)
	require.Len(t, sections, 2)

	// New page shows the live total
	total, err := c.DisplayTotal(ctx, domain.PageNew, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "1800.25", total.String())

	// Current page shows 0 until a snapshot exists
	total, err = c.DisplayTotal(ctx, domain.PageCurrent, "", nil)
	require.NoError(t, err)
	assert.True(t, total.IsZero())

	snap, err := c.SaveSnapshot(ctx, "2024-01-05", nil)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-05", snap.Date)
	assert.Equal(t, "1800.25", snap.TotalNetWorth.String())

	total, err = c.DisplayTotal(ctx, domain.PageCurrent, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "1800.25", total.String())

	// Editing the current snapshot shows the buffer total
	total, err = c.DisplayTotal(ctx, domain.PageCurrent, "", snap.Sections[:1])
	require.NoError(t, err)
	assert.Equal(t, "1500.25", total.String())

	got, err := c.GetSnapshot(ctx, "2024-01-05")
	require.NoError(t, err)
	assert.Len(t, got.Sections, 2)

	h, err := c.History(ctx)
	require.NoError(t, err)
	require.Len(t, h.Points, 1)

	// Delete needs confirmation
	err = c.DeleteSnapshot(ctx, "2024-01-05", false)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	require.NoError(t, c.DeleteSnapshot(ctx, "2024-01-05", true))

	_, err = c.GetSnapshot(ctx, "2024-01-05")
	assert.Equal(t, codes.NotFound, status.Code(err))

	require.NoError(t, c.RemoveSection(ctx, cash.ID))
	sections, err = c.ListSections(ctx)
	require.NoError(t, err)
	assert.Len(t, sections, 1)
}

func TestServer_RefreshBuffer(t *testing.T) {
	ctx := context.Background()
	c := dial(t, newTestServer(), testToken)

	sec := domain.NewSection(time.Now())
	sec.AssetType = domain.AssetTypeStock
	sec.StockTicker = "AAPL"
	sec.Shares = decimal.NewFromInt(2)

	res, err := c.RefreshSection(ctx, sec.ID, "2024-01-05", []domain.Section{sec})

	require.NoError(t, err)
	assert.Equal(t, "200", res.Section.ValueDollars.String())
	require.Len(t, res.Buffer, 1)
	assert.Equal(t, "200", res.Buffer[0].ValueDollars.String())

	live, err := c.ListSections(ctx)
	require.NoError(t, err)
	assert.Empty(t, live)
}

func TestServer_Prices(t *testing.T) {
	ctx := context.Background()
	c := dial(t, newTestServer(), testToken)

	res, err := c.ResolvePrice(ctx, "aapl", "")
	require.NoError(t, err)
	require.NotNil(t, res.Price)
	assert.Equal(t, "100", res.Price.String())

	res, err = c.ResolvePrice(ctx, "", "")
	require.NoError(t, err)
	assert.Nil(t, res.Price)
	assert.Equal(t, "No ticker", res.Error)

	_, err = c.ClearPriceCache(ctx, false)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	n, err := c.ClearPriceCache(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestServer_ExportImport(t *testing.T) {
	ctx := context.Background()
	src := dial(t, newTestServer(), testToken)
	_, err := src.AddSection(ctx)
	require.NoError(t, err)
	_, err = src.SaveSnapshot(ctx, "2024-02-01", nil)
	require.NoError(t, err)

	data, err := src.Export(ctx)
	require.NoError(t, err)
	var doc domain.ExportDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, 1, doc.Version)

	dst := dial(t, newTestServer(), testToken)
	summary, err := dst.Import(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sections)
	assert.Equal(t, 1, summary.Snapshots)

	_, err = dst.Import(ctx, []byte("{broken"))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	snaps, err := dst.ListSnapshots(ctx)
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestServer_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("bad token", func(t *testing.T) {
		c := dial(t, newTestServer(), "wrong")
		_, err := c.ListSections(ctx)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("invalid page", func(t *testing.T) {
		c := dial(t, newTestServer(), testToken)
		_, err := c.DisplayTotal(ctx, domain.Page("settings"), "", nil)
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("invalid date", func(t *testing.T) {
		c := dial(t, newTestServer(), testToken)
		_, err := c.SaveSnapshot(ctx, "tomorrow", nil)
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{domain.ErrSectionNotFound, codes.NotFound},
		{domain.ErrSnapshotNotFound, codes.NotFound},
		{domain.ErrInvalidImport, codes.InvalidArgument},
		{domain.ErrFieldNotApplicable, codes.InvalidArgument},
		{domain.ErrConfirmationRequired, codes.FailedPrecondition},
		{domain.ErrRefreshInProgress, codes.Aborted},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{assert.AnError, codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.code, status.Code(mapError(tt.err)))
		})
	}
	assert.NoError(t, mapError(nil))
}

func TestStructKeepsDecimalPrecision(t *testing.T) {
	type payload struct {
		Value  decimal.Decimal   `json:"value"`
		Shares decimal.Decimal   `json:"shares"`
		Count  int               `json:"count"`
		Items  []decimal.Decimal `json:"items"`
	}
	in := payload{
		Value:  decimal.RequireFromString("12345678901234567.89"),
		Shares: decimal.RequireFromString("0.1"),
		Count:  3,
		Items:  []decimal.Decimal{decimal.RequireFromString("98765432109876543210.5"), decimal.NewFromInt(7)},
	}

	s, err := toStruct(in)
	require.NoError(t, err)

	// Exact numbers stay numbers on the wire
	assert.Equal(t, float64(3), s.Fields["count"].GetNumberValue())
	assert.Equal(t, 0.1, s.Fields["shares"].GetNumberValue())
	assert.Equal(t, "12345678901234567.89", s.Fields["value"].GetStringValue())

	var out payload
	require.NoError(t, fromStruct(s, &out))
	assert.Equal(t, "12345678901234567.89", out.Value.String())
	assert.Equal(t, "0.1", out.Shares.String())
	assert.Equal(t, 3, out.Count)
	require.Len(t, out.Items, 2)
	assert.Equal(t, "98765432109876543210.5", out.Items[0].String())
	assert.Equal(t, "7", out.Items[1].String())
}
