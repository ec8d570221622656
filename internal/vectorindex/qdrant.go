package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog"

	"tonelearn/internal/config"
	"tonelearn/internal/models"
)

// Payload keys used for filtering. The full record is stored alongside them.
const (
	fieldUserID           = "user_id"
	fieldRecipientEmail   = "recipient_email"
	fieldRelationshipType = "relationship_type"
	fieldMessageID        = "message_id"
	fieldSentAtUnix       = "sent_at_unix"
	fieldUsage            = "usage"

	scrollPageSize = 256
)

var keywordFields = []string{fieldUserID, fieldRecipientEmail, fieldRelationshipType, fieldMessageID}

// QdrantIndex is the production Index backed by a Qdrant collection over gRPC
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	dimensions uint64
	logger     zerolog.Logger

	mu    sync.Mutex
	ready bool
}

// NewQdrantIndex connects to Qdrant. The collection is created on first use.
func NewQdrantIndex(cfg *config.Config, logger zerolog.Logger) (*QdrantIndex, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.QdrantHost,
		Port:   cfg.QdrantPort,
		APIKey: cfg.QdrantAPIKey,
		UseTLS: cfg.QdrantUseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &QdrantIndex{
		client:     client,
		collection: cfg.QdrantCollection,
		dimensions: uint64(cfg.EmbeddingDimensions),
		logger: logger.With().
			Str("component", "vectorindex").
			Str("collection", cfg.QdrantCollection).
			Logger(),
	}, nil
}

// Init creates the collection and its payload indexes when missing.
// It is safe to call concurrently and is retried on the next call after a failure.
func (q *QdrantIndex) Init(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ready {
		return nil
	}

	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		q.logger.Info().Uint64("dimensions", q.dimensions).Msg("Creating collection")
		err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: q.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     q.dimensions,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}

		for _, field := range keywordFields {
			if _, err := q.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
				CollectionName: q.collection,
				Wait:           qdrant.PtrOf(true),
				FieldName:      field,
				FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
			}); err != nil {
				return fmt.Errorf("failed to index %s: %w", field, err)
			}
		}
		if _, err := q.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: q.collection,
			Wait:           qdrant.PtrOf(true),
			FieldName:      fieldSentAtUnix,
			FieldType:      qdrant.FieldType_FieldTypeFloat.Enum(),
		}); err != nil {
			return fmt.Errorf("failed to index %s: %w", fieldSentAtUnix, err)
		}
	}

	q.ready = true
	return nil
}

func (q *QdrantIndex) Upsert(ctx context.Context, point Point) error {
	return q.UpsertBatch(ctx, []Point{point})
}

func (q *QdrantIndex) UpsertBatch(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	if err := q.Init(ctx); err != nil {
		return err
	}

	structs := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		if q.dimensions > 0 && uint64(len(p.Vector)) != q.dimensions {
			return ErrDimensionMismatch
		}
		payload, err := encodePayload(p.Record)
		if err != nil {
			return fmt.Errorf("failed to encode payload for %s: %w", p.Record.ID, err)
		}
		structs = append(structs, &qdrant.PointStruct{
			Id:      qdrant.NewID(p.Record.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: payload,
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(structs), err)
	}
	return nil
}

func (q *QdrantIndex) Search(ctx context.Context, query SearchQuery) ([]Hit, error) {
	if query.Filter.UserID == "" {
		return nil, ErrUserRequired
	}
	if err := q.Init(ctx); err != nil {
		return nil, err
	}

	req := &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(query.Vector...),
		Filter:         buildFilter(query.Filter),
		ScoreThreshold: query.ScoreThreshold,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if query.Limit > 0 {
		req.Limit = qdrant.PtrOf(uint64(query.Limit))
	}

	points, err := q.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	hits := make([]Hit, 0, len(points))
	for _, p := range points {
		record, err := decodePayload(p.GetPayload())
		if err != nil {
			q.logger.Warn().Err(err).Str("point_id", p.GetId().GetUuid()).Msg("Skipping undecodable point")
			continue
		}
		hits = append(hits, Hit{
			ID:     p.GetId().GetUuid(),
			Score:  float64(p.GetScore()),
			Record: record,
		})
	}
	return hits, nil
}

func (q *QdrantIndex) ScrollAll(ctx context.Context, filter Filter) ([]models.IndexedExampleRecord, error) {
	if err := q.Init(ctx); err != nil {
		return nil, err
	}

	var records []models.IndexedExampleRecord
	var offset *qdrant.PointId
	for {
		points, next, err := q.client.ScrollAndOffset(ctx, &qdrant.ScrollPoints{
			CollectionName: q.collection,
			Filter:         buildFilter(filter),
			Offset:         offset,
			Limit:          qdrant.PtrOf(uint32(scrollPageSize)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll: %w", err)
		}
		for _, p := range points {
			record, err := decodePayload(p.GetPayload())
			if err != nil {
				q.logger.Warn().Err(err).Str("point_id", p.GetId().GetUuid()).Msg("Skipping undecodable point")
				continue
			}
			records = append(records, record)
		}
		if next == nil || len(points) == 0 {
			break
		}
		offset = next
	}
	return records, nil
}

func (q *QdrantIndex) DeleteByUser(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUserRequired
	}
	if err := q.Init(ctx); err != nil {
		return err
	}

	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Wait:           qdrant.PtrOf(true),
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(fieldUserID, userID)},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to delete points for user %s: %w", userID, err)
	}
	return nil
}

func (q *QdrantIndex) UpdateUsage(ctx context.Context, id string, usage models.UsageStats) error {
	if err := q.Init(ctx); err != nil {
		return err
	}

	value, err := toAny(usage)
	if err != nil {
		return err
	}
	payload, err := qdrant.TryValueMap(map[string]any{fieldUsage: value})
	if err != nil {
		return fmt.Errorf("failed to encode usage: %w", err)
	}

	_, err = q.client.SetPayload(ctx, &qdrant.SetPayloadPoints{
		CollectionName: q.collection,
		Wait:           qdrant.PtrOf(true),
		Payload:        payload,
		PointsSelector: qdrant.NewPointsSelector(qdrant.NewID(id)),
	})
	if err != nil {
		return fmt.Errorf("failed to update usage for %s: %w", id, err)
	}
	return nil
}

// HealthCheck pings the Qdrant server
func (q *QdrantIndex) HealthCheck(ctx context.Context) error {
	_, err := q.client.HealthCheck(ctx)
	return err
}

func (q *QdrantIndex) Close() error {
	return q.client.Close()
}

func buildFilter(f Filter) *qdrant.Filter {
	filter := &qdrant.Filter{}
	if f.UserID != "" {
		filter.Must = append(filter.Must, qdrant.NewMatch(fieldUserID, f.UserID))
	}
	if f.RecipientEmail != "" {
		filter.Must = append(filter.Must, qdrant.NewMatch(fieldRecipientEmail, models.NormalizeEmail(f.RecipientEmail)))
	}
	if f.RelationshipType != "" {
		filter.Must = append(filter.Must, qdrant.NewMatch(fieldRelationshipType, f.RelationshipType))
	}
	if f.DateRange != nil {
		r := &qdrant.Range{}
		if !f.DateRange.Start.IsZero() {
			r.Gte = qdrant.PtrOf(float64(f.DateRange.Start.Unix()))
		}
		if !f.DateRange.End.IsZero() {
			r.Lte = qdrant.PtrOf(float64(f.DateRange.End.Unix()))
		}
		filter.Must = append(filter.Must, qdrant.NewRange(fieldSentAtUnix, r))
	}
	if f.ExcludeRecipientEmail != "" {
		filter.MustNot = append(filter.MustNot, qdrant.NewMatch(fieldRecipientEmail, models.NormalizeEmail(f.ExcludeRecipientEmail)))
	}
	if len(f.ExcludeIDs) > 0 {
		ids := make([]*qdrant.PointId, len(f.ExcludeIDs))
		for i, id := range f.ExcludeIDs {
			ids[i] = qdrant.NewID(id)
		}
		filter.MustNot = append(filter.MustNot, qdrant.NewHasID(ids...))
	}
	return filter
}

// encodePayload flattens the record to JSON-compatible values plus the
// top-level keys that filters and payload indexes work on.
func encodePayload(r models.IndexedExampleRecord) (map[string]*qdrant.Value, error) {
	value, err := toAny(r)
	if err != nil {
		return nil, err
	}
	fields, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("record encoded to %T", value)
	}
	fields[fieldRecipientEmail] = models.NormalizeEmail(r.RecipientEmail)
	fields[fieldRelationshipType] = r.Relationship.Type
	fields[fieldSentAtUnix] = float64(r.SentAt.Unix())
	return qdrant.TryValueMap(fields)
}

func decodePayload(payload map[string]*qdrant.Value) (models.IndexedExampleRecord, error) {
	fields := make(map[string]any, len(payload))
	for k, v := range payload {
		fields[k] = fromValue(v)
	}
	var record models.IndexedExampleRecord
	data, err := json.Marshal(fields)
	if err != nil {
		return record, err
	}
	err = json.Unmarshal(data, &record)
	return record, err
}

// toAny converts v to maps, slices and scalars through its JSON encoding
func toAny(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func fromValue(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		values := kind.ListValue.GetValues()
		list := make([]any, len(values))
		for i, item := range values {
			list[i] = fromValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		fields := kind.StructValue.GetFields()
		m := make(map[string]any, len(fields))
		for k, item := range fields {
			m[k] = fromValue(item)
		}
		return m
	default:
		return nil
	}
}
