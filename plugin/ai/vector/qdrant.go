package vector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// qdrantIDField stores the namespaced id; Qdrant point ids must be UUIDs or integers.
const qdrantIDField = "entity_id"

// pointNamespace derives deterministic point ids from namespaced ids.
var pointNamespace = uuid.MustParse("6f1c2a0e-8c57-4d0a-9b1e-3a4d2c7e5f10")

// QdrantConfig holds configuration for the Qdrant index.
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	Dimensions int
}

// QdrantIndex implements Index for Qdrant.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantIndex connects to Qdrant and creates the collection (cosine distance) when missing.
func NewQdrantIndex(ctx context.Context, cfg QdrantConfig) (*QdrantIndex, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	exists, err := client.CollectionExists(ctx, cfg.Collection)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("check qdrant collection: %w", err)
	}
	if !exists {
		err = client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: cfg.Collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(cfg.Dimensions),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("create qdrant collection: %w", err)
		}
	}

	return &QdrantIndex{client: client, collection: cfg.Collection}, nil
}

// Upsert implements Index.
func (q *QdrantIndex) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		payload := toQdrantPayload(r.Metadata)
		payload[qdrantIDField] = qdrant.NewValueString(r.ID)
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID(r.ID)),
			Vectors: qdrant.NewVectors(r.Values...),
			Payload: payload,
		}
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	return err
}

// Query implements Index.
func (q *QdrantIndex) Query(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]Match, error) {
	req := &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if len(filter) > 0 {
		req.Filter = qdrantFilter(filter)
	}

	resp, err := q.client.Query(ctx, req)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(resp))
	for _, scored := range resp {
		metadata := fromQdrantPayload(scored.Payload)
		id, _ := metadata[qdrantIDField].(string)
		if id == "" {
			continue
		}
		delete(metadata, qdrantIDField)
		matches = append(matches, Match{ID: id, Score: scored.Score, Metadata: metadata})
	}
	return matches, nil
}

// Delete implements Index.
func (q *QdrantIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewID(pointID(id))
	}

	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
		Wait:           qdrant.PtrOf(true),
	})
	return err
}

// Close closes the client connection.
func (q *QdrantIndex) Close() error {
	return q.client.Close()
}

func pointID(indexID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(indexID)).String()
}

func qdrantFilter(filter map[string]any) *qdrant.Filter {
	conditions := make([]*qdrant.Condition, 0, len(filter))
	for k, v := range filter {
		switch val := v.(type) {
		case string:
			conditions = append(conditions, qdrant.NewMatchKeyword(k, val))
		case bool:
			conditions = append(conditions, qdrant.NewMatchBool(k, val))
		case int:
			conditions = append(conditions, qdrant.NewMatchInt(k, int64(val)))
		case int64:
			conditions = append(conditions, qdrant.NewMatchInt(k, val))
		default:
			conditions = append(conditions, qdrant.NewMatchKeyword(k, fmt.Sprint(val)))
		}
	}
	return &qdrant.Filter{Must: conditions}
}

func toQdrantPayload(m map[string]any) map[string]*qdrant.Value {
	payload := make(map[string]*qdrant.Value, len(m)+1)
	for k, v := range m {
		payload[k] = toQdrantValue(v)
	}
	return payload
}

func toQdrantValue(v any) *qdrant.Value {
	switch val := v.(type) {
	case nil:
		return qdrant.NewValueNull()
	case string:
		return qdrant.NewValueString(val)
	case bool:
		return qdrant.NewValueBool(val)
	case int:
		return qdrant.NewValueInt(int64(val))
	case int64:
		return qdrant.NewValueInt(val)
	case float64:
		return qdrant.NewValueDouble(val)
	case []string:
		values := make([]*qdrant.Value, len(val))
		for i, s := range val {
			values[i] = qdrant.NewValueString(s)
		}
		return qdrant.NewValueList(&qdrant.ListValue{Values: values})
	case []any:
		values := make([]*qdrant.Value, len(val))
		for i, item := range val {
			values[i] = toQdrantValue(item)
		}
		return qdrant.NewValueList(&qdrant.ListValue{Values: values})
	default:
		data, _ := json.Marshal(v)
		return qdrant.NewValueString(string(data))
	}
}

func fromQdrantPayload(payload map[string]*qdrant.Value) map[string]any {
	m := make(map[string]any, len(payload))
	for k, v := range payload {
		m[k] = fromQdrantValue(v)
	}
	return m
}

func fromQdrantValue(v *qdrant.Value) any {
	switch v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return v.GetStringValue()
	case *qdrant.Value_DoubleValue:
		return v.GetDoubleValue()
	case *qdrant.Value_IntegerValue:
		return v.GetIntegerValue()
	case *qdrant.Value_BoolValue:
		return v.GetBoolValue()
	case *qdrant.Value_ListValue:
		list := v.GetListValue()
		result := make([]any, len(list.GetValues()))
		for i, item := range list.GetValues() {
			result[i] = fromQdrantValue(item)
		}
		return result
	default:
		return nil
	}
}

var _ Index = (*QdrantIndex)(nil)
