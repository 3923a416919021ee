package render

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// The renderer contract is compiled in as proto source and parsed at
// runtime. Requests and responses are dynamic messages built against
// the parsed descriptor, so no generated stubs are needed on either
// side of the wire.
const rendererProtoName = "renderer.proto"

const rendererProto = `
syntax = "proto3";

package solidscript.render.v1;

message Vec3 {
  double x = 1;
  double y = 2;
  double z = 3;
}

message Bounds {
  Vec3 min = 1;
  Vec3 max = 2;
}

message Arg {
  string name = 1;
  string value = 2;
}

message GeometryNode {
  string id = 1;
  string type = 2;
  string module = 3;
  repeated Arg args = 4;
  Bounds bounds = 5;
}

message RenderBatchRequest {
  repeated GeometryNode nodes = 1;
}

message RenderBatchResponse {
  int32 accepted = 1;
  string message = 2;
}

service Renderer {
  rpc RenderBatch(RenderBatchRequest) returns (RenderBatchResponse);
}
`

const rendererServiceName = "solidscript.render.v1.Renderer"

var (
	rendererOnce sync.Once
	rendererFD   *desc.FileDescriptor
	rendererErr  error
)

// RendererDescriptor parses the compiled-in proto once and returns its
// file descriptor. Loopback test servers build their service
// registration from the same descriptor the client invokes against.
func RendererDescriptor() (*desc.FileDescriptor, error) {
	rendererOnce.Do(func() {
		parser := protoparse.Parser{
			Accessor: protoparse.FileContentsFromMap(map[string]string{
				rendererProtoName: rendererProto,
			}),
		}
		fds, err := parser.ParseFiles(rendererProtoName)
		if err != nil {
			rendererErr = fmt.Errorf("failed to parse renderer proto: %w", err)
			return
		}
		rendererFD = fds[0]
	})
	return rendererFD, rendererErr
}

// GRPCSink ships summaries to a remote renderer with unary RenderBatch
// calls. It holds one client connection for its lifetime.
type GRPCSink struct {
	conn   *grpc.ClientConn
	method *desc.MethodDescriptor
}

// DialRenderer connects to a renderer service at target. The connection
// is plaintext; renderers are expected to sit on a trusted local
// network or behind their own transport.
func DialRenderer(target string) (*GRPCSink, error) {
	fd, err := RendererDescriptor()
	if err != nil {
		return nil, err
	}
	svc := fd.FindService(rendererServiceName)
	if svc == nil {
		return nil, fmt.Errorf("service %s not found in renderer proto", rendererServiceName)
	}
	method := svc.FindMethodByName("RenderBatch")
	if method == nil {
		return nil, fmt.Errorf("method RenderBatch not found on %s", rendererServiceName)
	}
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to renderer at %s: %w", target, err)
	}
	return &GRPCSink{conn: conn, method: method}, nil
}

func (s *GRPCSink) Consume(ctx context.Context, batch []Summary) error {
	if len(batch) == 0 {
		return nil
	}
	req := dynamic.NewMessage(s.method.GetInputType())
	nodesFD := s.method.GetInputType().FindFieldByName("nodes")
	nodeMD := nodesFD.GetMessageType()

	nodes := make([]interface{}, 0, len(batch))
	for _, sum := range batch {
		msg, err := summaryMessage(nodeMD, sum)
		if err != nil {
			return err
		}
		nodes = append(nodes, msg)
	}
	req.SetField(nodesFD, nodes)

	resp := dynamic.NewMessage(s.method.GetOutputType())
	methodPath := "/" + s.method.GetService().GetFullyQualifiedName() + "/" + s.method.GetName()
	if err := s.conn.Invoke(ctx, methodPath, req, resp); err != nil {
		return fmt.Errorf("render RPC failed: %w", err)
	}

	if accepted, ok := resp.GetFieldByName("accepted").(int32); ok && int(accepted) != len(batch) {
		note := ""
		if m, ok := resp.GetFieldByName("message").(string); ok && m != "" {
			note = ": " + m
		}
		return fmt.Errorf("renderer accepted %d of %d nodes%s", accepted, len(batch), note)
	}
	return nil
}

func (s *GRPCSink) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// summaryMessage builds one GeometryNode message. Args are emitted in
// name order so the wire content is deterministic.
func summaryMessage(md *desc.MessageDescriptor, sum Summary) (*dynamic.Message, error) {
	msg := dynamic.NewMessage(md)
	if sum.ID != "" {
		msg.SetField(md.FindFieldByName("id"), sum.ID)
	}
	if sum.Type != "" {
		msg.SetField(md.FindFieldByName("type"), sum.Type)
	}
	if sum.Module != "" {
		msg.SetField(md.FindFieldByName("module"), sum.Module)
	}

	if len(sum.Args) > 0 {
		argsFD := md.FindFieldByName("args")
		argMD := argsFD.GetMessageType()
		names := make([]string, 0, len(sum.Args))
		for name := range sum.Args {
			names = append(names, name)
		}
		sort.Strings(names)
		args := make([]interface{}, 0, len(names))
		for _, name := range names {
			arg := dynamic.NewMessage(argMD)
			arg.SetField(argMD.FindFieldByName("name"), name)
			arg.SetField(argMD.FindFieldByName("value"), sum.Args[name])
			args = append(args, arg)
		}
		msg.SetField(argsFD, args)
	}

	if sum.Bounds != nil {
		boundsFD := md.FindFieldByName("bounds")
		boundsMD := boundsFD.GetMessageType()
		bounds := dynamic.NewMessage(boundsMD)
		bounds.SetField(boundsMD.FindFieldByName("min"), vecMessage(boundsMD.FindFieldByName("min").GetMessageType(), sum.Bounds.Min))
		bounds.SetField(boundsMD.FindFieldByName("max"), vecMessage(boundsMD.FindFieldByName("max").GetMessageType(), sum.Bounds.Max))
		msg.SetField(boundsFD, bounds)
	}
	return msg, nil
}

func vecMessage(md *desc.MessageDescriptor, v [3]float64) *dynamic.Message {
	msg := dynamic.NewMessage(md)
	msg.SetField(md.FindFieldByName("x"), v[0])
	msg.SetField(md.FindFieldByName("y"), v[1])
	msg.SetField(md.FindFieldByName("z"), v[2])
	return msg
}
