package vector

import (
	"context"
	"fmt"
	"strings"

	"github.com/pinecone-io/go-pinecone/v2/pinecone"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// PineconeConfig holds configuration for the Pinecone index.
type PineconeConfig struct {
	APIKey string
	// IndexHost is the data plane host of the index. An http:// host (local emulator) is dialed without TLS.
	IndexHost string
	Namespace string
}

// PineconeIndex implements Index for Pinecone.
type PineconeIndex struct {
	conn *pinecone.IndexConnection
}

// NewPineconeIndex connects to a Pinecone index.
func NewPineconeIndex(cfg PineconeConfig) (*PineconeIndex, error) {
	if cfg.APIKey == "" || cfg.IndexHost == "" {
		return nil, fmt.Errorf("pinecone api key and index host are required")
	}

	client, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create pinecone client: %w", err)
	}

	var dialOpts []grpc.DialOption
	if strings.HasPrefix(cfg.IndexHost, "http://") {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := client.Index(pinecone.NewIndexConnParams{
		Host:      cfg.IndexHost,
		Namespace: cfg.Namespace,
	}, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("connect to pinecone index: %w", err)
	}

	return NewPineconeIndexWithConn(conn), nil
}

// NewPineconeIndexWithConn wraps an existing index connection.
func NewPineconeIndexWithConn(conn *pinecone.IndexConnection) *PineconeIndex {
	return &PineconeIndex{conn: conn}
}

// Upsert implements Index.
func (p *PineconeIndex) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	vectors := make([]*pinecone.Vector, len(records))
	for i, r := range records {
		metadata, err := toPineconeStruct(r.Metadata)
		if err != nil {
			return fmt.Errorf("metadata of %s: %w", r.ID, err)
		}
		vectors[i] = &pinecone.Vector{
			Id:       r.ID,
			Values:   r.Values,
			Metadata: metadata,
		}
	}

	_, err := p.conn.UpsertVectors(ctx, vectors)
	return err
}

// Query implements Index.
func (p *PineconeIndex) Query(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]Match, error) {
	req := &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(topK),
		IncludeMetadata: true,
	}

	if len(filter) > 0 {
		filterStruct, err := pineconeFilter(filter)
		if err != nil {
			return nil, err
		}
		req.MetadataFilter = filterStruct
	}

	resp, err := p.conn.QueryByVectorValues(ctx, req)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m == nil || m.Vector == nil {
			continue
		}
		var metadata map[string]any
		if m.Vector.Metadata != nil {
			metadata = m.Vector.Metadata.AsMap()
		}
		matches = append(matches, Match{
			ID:       m.Vector.Id,
			Score:    m.Score,
			Metadata: metadata,
		})
	}
	return matches, nil
}

// Delete implements Index.
func (p *PineconeIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return p.conn.DeleteVectorsById(ctx, ids)
}

// Close closes the index connection.
func (p *PineconeIndex) Close() error {
	return p.conn.Close()
}

// pineconeFilter builds an equality filter: {"field": {"$eq": value}}.
func pineconeFilter(filter map[string]any) (*pinecone.MetadataFilter, error) {
	clauses := make(map[string]any, len(filter))
	for k, v := range filter {
		clauses[k] = map[string]any{"$eq": protoCompatible(v)}
	}
	return structpb.NewStruct(clauses)
}

func toPineconeStruct(metadata map[string]any) (*pinecone.Metadata, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	converted := make(map[string]any, len(metadata))
	for k, v := range metadata {
		converted[k] = protoCompatible(v)
	}
	return structpb.NewStruct(converted)
}

// protoCompatible converts values structpb cannot represent directly.
func protoCompatible(v any) any {
	switch val := v.(type) {
	case []string:
		list := make([]any, len(val))
		for i, s := range val {
			list[i] = s
		}
		return list
	case []any:
		list := make([]any, len(val))
		for i, item := range val {
			list[i] = protoCompatible(item)
		}
		return list
	default:
		return v
	}
}

var _ Index = (*PineconeIndex)(nil)
