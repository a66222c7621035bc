package firestore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"

	pfirestore "github.com/primemart/api/internal/platform/firestore"
)

// countAll runs a server-side count aggregation over the provided query.
func countAll(ctx context.Context, q firestore.Query, op string) (int64, error) {
	results, err := q.NewAggregationQuery().WithCount("count").Get(ctx)
	if err != nil {
		return 0, pfirestore.WrapError(op, err)
	}
	value, ok := results["count"]
	if !ok {
		return 0, pfirestore.WrapError(op, errors.New("aggregation result missing count"))
	}
	pb, ok := value.(*firestorepb.Value)
	if !ok {
		return 0, pfirestore.WrapError(op, fmt.Errorf("unexpected aggregation value %T", value))
	}
	return pb.GetIntegerValue(), nil
}

// sumField runs a server-side sum aggregation over a numeric field.
func sumField(ctx context.Context, q firestore.Query, field string, op string) (float64, error) {
	results, err := q.NewAggregationQuery().WithSum(field, "total").Get(ctx)
	if err != nil {
		return 0, pfirestore.WrapError(op, err)
	}
	value, ok := results["total"]
	if !ok {
		return 0, pfirestore.WrapError(op, errors.New("aggregation result missing total"))
	}
	pb, ok := value.(*firestorepb.Value)
	if !ok {
		return 0, pfirestore.WrapError(op, fmt.Errorf("unexpected aggregation value %T", value))
	}
	if _, isInt := pb.ValueType.(*firestorepb.Value_IntegerValue); isInt {
		return float64(pb.GetIntegerValue()), nil
	}
	return pb.GetDoubleValue(), nil
}

// encodeListToken builds an opaque cursor from the sort timestamp and document ID.
func encodeListToken(at time.Time, docID string) string {
	payload := fmt.Sprintf("%s|%s", at.UTC().Format(time.RFC3339Nano), docID)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// decodeListToken reverses encodeListToken.
func decodeListToken(token string) (time.Time, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return time.Time{}, "", err
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", errors.New("malformed page token")
	}
	at, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", err
	}
	docID := strings.TrimSpace(parts[1])
	if docID == "" {
		return time.Time{}, "", errors.New("page token missing document id")
	}
	return at, docID, nil
}
