// Package qdrant stores vectors in a Qdrant server over gRPC.
package qdrant

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"

	pb "github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/spigell/skillbridge-matcher/internal/logger"
	"github.com/spigell/skillbridge-matcher/internal/vectorindex"
)

const scrollPage = 256

// Config describes how to reach Qdrant.
type Config struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	APIKey string `mapstructure:"-"`
	UseTLS bool   `mapstructure:"use-tls"`
	// Prefix is prepended to collection names, e.g. "skillbridge_".
	Prefix string `mapstructure:"collection-prefix"`
}

// Backend talks to Qdrant through the generated gRPC clients.
type Backend struct {
	collections pb.CollectionsClient
	points      pb.PointsClient
	conn        io.Closer
	prefix      string
	logger      *zap.Logger
}

var _ vectorindex.Backend = (*Backend)(nil)

// Dial connects to Qdrant. The connection is established lazily by gRPC.
func Dial(cfg Config, l *zap.Logger) (*Backend, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("qdrant host is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 6334
	}

	creds := insecure.NewCredentials()
	if cfg.UseTLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if cfg.APIKey != "" {
		opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: connect to qdrant at %s: %v", vectorindex.ErrStorageUnavailable, addr, err)
	}
	logger.OrNop(l).Debug("qdrant client created", zap.String("address", addr), zap.Bool("tls", cfg.UseTLS))
	return NewWithClients(pb.NewCollectionsClient(conn), pb.NewPointsClient(conn), conn, cfg.Prefix, l), nil
}

// NewWithClients builds a backend over existing gRPC clients. conn may be nil.
func NewWithClients(collections pb.CollectionsClient, points pb.PointsClient, conn io.Closer, prefix string, l *zap.Logger) *Backend {
	return &Backend{
		collections: collections,
		points:      points,
		conn:        conn,
		prefix:      prefix,
		logger:      logger.OrNop(l),
	}
}

func apiKeyInterceptor(key string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", key)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

func (b *Backend) Name() string { return "qdrant" }

func (b *Backend) name(c vectorindex.Collection) string {
	return b.prefix + string(c)
}

// Recreate drops the collection when present and creates it with cosine distance.
func (b *Backend) Recreate(ctx context.Context, c vectorindex.Collection, dimension int) error {
	name := b.name(c)
	list, err := b.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return mapError(err, name)
	}
	for _, existing := range list.GetCollections() {
		if existing.GetName() != name {
			continue
		}
		if _, err := b.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: name}); err != nil {
			return mapError(err, name)
		}
		logger.WithFields(b.logger, logger.CollectionFields(b.Name(), name)...).Info("collection dropped")
	}

	_, err = b.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return mapError(err, name)
	}
	return nil
}

func (b *Backend) Upsert(ctx context.Context, c vectorindex.Collection, record vectorindex.Record) error {
	payload, err := toValues(record.Payload)
	if err != nil {
		return err
	}
	wait := true
	_, err = b.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: b.name(c),
		Wait:           &wait,
		Points: []*pb.PointStruct{{
			Id: uuidID(record.ID),
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: record.Vector}},
			},
			Payload: payload,
		}},
	})
	if err != nil {
		return mapError(err, b.name(c))
	}
	return nil
}

func (b *Backend) Search(ctx context.Context, c vectorindex.Collection, query []float32, filter vectorindex.Filter, limit int) ([]vectorindex.Hit, error) {
	resp, err := b.points.Search(ctx, &pb.SearchPoints{
		CollectionName: b.name(c),
		Vector:         query,
		Filter:         toFilter(filter),
		Limit:          uint64(limit),
		WithPayload:    withPayload(),
	})
	if err != nil {
		return nil, mapError(err, b.name(c))
	}
	hits := make([]vectorindex.Hit, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		hits = append(hits, vectorindex.Hit{
			VectorID: pointID(p.GetId()),
			Score:    float64(p.GetScore()),
			Payload:  fromValues(p.GetPayload()),
		})
	}
	return hits, nil
}

func (b *Backend) Scan(ctx context.Context, c vectorindex.Collection, filter vectorindex.Filter, limit int) ([]vectorindex.Hit, error) {
	hits := []vectorindex.Hit{}
	var offset *pb.PointId
	for len(hits) < limit {
		page := uint32(min(limit-len(hits), scrollPage))
		resp, err := b.points.Scroll(ctx, &pb.ScrollPoints{
			CollectionName: b.name(c),
			Filter:         toFilter(filter),
			Offset:         offset,
			Limit:          &page,
			WithPayload:    withPayload(),
		})
		if err != nil {
			return nil, mapError(err, b.name(c))
		}
		for _, p := range resp.GetResult() {
			hits = append(hits, vectorindex.Hit{VectorID: pointID(p.GetId()), Payload: fromValues(p.GetPayload())})
		}
		offset = resp.GetNextPageOffset()
		if offset == nil || len(resp.GetResult()) == 0 {
			break
		}
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (b *Backend) Delete(ctx context.Context, c vectorindex.Collection, vectorID string) error {
	wait := true
	_, err := b.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: b.name(c),
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{Ids: []*pb.PointId{uuidID(vectorID)}},
			},
		},
	})
	if err != nil {
		return mapError(err, b.name(c))
	}
	return nil
}

func (b *Backend) Info(ctx context.Context, c vectorindex.Collection) (vectorindex.Info, error) {
	resp, err := b.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: b.name(c)})
	if err != nil {
		return vectorindex.Info{}, mapError(err, b.name(c))
	}
	info := resp.GetResult()
	points := info.GetPointsCount()
	return vectorindex.Info{
		Name:         b.name(c),
		Status:       info.GetStatus().String(),
		PointsCount:  points,
		VectorsCount: points,
		Dimension:    int(info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()),
	}, nil
}

func (b *Backend) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}

func withPayload() *pb.WithPayloadSelector {
	return &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}}
}

func uuidID(id string) *pb.PointId {
	return &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id}}
}

func pointID(id *pb.PointId) string {
	if u := id.GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

func mapError(err error, collection string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", vectorindex.ErrStorageUnavailable, collection, err)
	}
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %s: %v", vectorindex.ErrCollectionNotInitialized, collection, err)
	case codes.InvalidArgument:
		return fmt.Errorf("qdrant rejected request for %s: %w", collection, err)
	default:
		return fmt.Errorf("%w: %s: %v", vectorindex.ErrStorageUnavailable, collection, err)
	}
}
