package grpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "networth.v1.NetWorthService"

// NetWorthServiceServer is the server API of the NetWorthService.
// Messages are protobuf well-known types; structured payloads travel as
// google.protobuf.Struct holding the JSON form of the domain types.
type NetWorthServiceServer interface {
	GetDisplayTotal(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListSections(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	AddSection(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	UpdateSection(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ChangeSectionType(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RemoveSection(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	RefreshSection(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SaveSnapshot(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSnapshot(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ListSnapshots(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	DeleteSnapshot(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	GetHistory(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ResolvePrice(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ClearPriceCache(context.Context, *wrapperspb.BoolValue) (*structpb.Struct, error)
	Export(context.Context, *emptypb.Empty) (*wrapperspb.BytesValue, error)
	Import(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error)
}

// RegisterNetWorthServiceServer registers srv on s
func RegisterNetWorthServiceServer(s grpc.ServiceRegistrar, srv NetWorthServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc describes the NetWorthService for grpc.Server
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*NetWorthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method("GetDisplayTotal", newStruct, NetWorthServiceServer.GetDisplayTotal),
		method("ListSections", newEmpty, NetWorthServiceServer.ListSections),
		method("AddSection", newEmpty, NetWorthServiceServer.AddSection),
		method("UpdateSection", newStruct, NetWorthServiceServer.UpdateSection),
		method("ChangeSectionType", newStruct, NetWorthServiceServer.ChangeSectionType),
		method("RemoveSection", newString, NetWorthServiceServer.RemoveSection),
		method("RefreshSection", newStruct, NetWorthServiceServer.RefreshSection),
		method("SaveSnapshot", newStruct, NetWorthServiceServer.SaveSnapshot),
		method("GetSnapshot", newString, NetWorthServiceServer.GetSnapshot),
		method("ListSnapshots", newEmpty, NetWorthServiceServer.ListSnapshots),
		method("DeleteSnapshot", newStruct, NetWorthServiceServer.DeleteSnapshot),
		method("GetHistory", newEmpty, NetWorthServiceServer.GetHistory),
		method("ResolvePrice", newStruct, NetWorthServiceServer.ResolvePrice),
		method("ClearPriceCache", newBool, NetWorthServiceServer.ClearPriceCache),
		method("Export", newEmpty, NetWorthServiceServer.Export),
		method("Import", newBytes, NetWorthServiceServer.Import),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "networth/v1/networth.proto",
}

func newStruct() *structpb.Struct { return &structpb.Struct{} }
func newEmpty() *emptypb.Empty { return &emptypb.Empty{} }
func newString() *wrapperspb.StringValue { return &wrapperspb.StringValue{} }
func newBool() *wrapperspb.BoolValue { return &wrapperspb.BoolValue{} }
func newBytes() *wrapperspb.BytesValue { return &wrapperspb.BytesValue{} }

// method builds the descriptor of one unary method the same way generated
// code does: decode, then call through the interceptor when one is set
func method[Req, Resp proto.Message](name string, newReq func() Req, call func(NetWorthServiceServer, context.Context, Req) (Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(NetWorthServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(NetWorthServiceServer), ctx, req.(Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// toStruct converts a JSON-encodable value into a protobuf Struct.
// Struct numbers are float64; a number float64 cannot carry exactly travels
// as its decimal string instead, which decimal.Decimal fields decode as is.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	d := json.NewDecoder(bytes.NewReader(data))
	d.UseNumber()
	var fields map[string]any
	if err := d.Decode(&fields); err != nil {
		return nil, fmt.Errorf("failed to build message: %w", err)
	}
	out, err := structpb.NewStruct(exactNumbers(fields).(map[string]any))
	if err != nil {
		return nil, fmt.Errorf("failed to build message: %w", err)
	}
	return out, nil
}

// exactNumbers replaces every json.Number in v with a float64 when the
// conversion is lossless, else with the number's string form
func exactNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if t == nil {
			return map[string]any{}
		}
		for k, e := range t {
			t[k] = exactNumbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = exactNumbers(e)
		}
		return t
	case json.Number:
		if f, ok := losslessFloat(t); ok {
			return f
		}
		return t.String()
	default:
		return v
	}
}

func losslessFloat(n json.Number) (float64, bool) {
	want, err := decimal.NewFromString(n.String())
	if err != nil {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	got, err := decimal.NewFromString(strconv.FormatFloat(f, 'g', -1, 64))
	return f, err == nil && got.Equal(want)
}

// fromStruct decodes a protobuf Struct into out through its JSON form
func fromStruct(s *structpb.Struct, out any) error {
	if s == nil {
		return nil
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to read message: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}
	return nil
}
