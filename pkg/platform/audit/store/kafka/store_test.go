package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "civicledger/pkg/platform/audit"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	f.records = append(f.records, rs...)
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

func (f *fakeProducer) Close() {}

func TestStore_Append(t *testing.T) {
	t.Run("keys record by subject and encodes payload", func(t *testing.T) {
		fp := &fakeProducer{}
		s := &Store{client: fp, topic: "civic.audit"}
		ts := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

		err := s.Append(context.Background(), audit.Event{
			ID:        "evt-1",
			Category:  audit.CategoryLedger,
			Timestamp: ts,
			Subject:   "REQ-12",
			Action:    string(audit.EventRequestAccepted),
			ActorID:   "0xabc",
			TxHash:    "0xdead",
		})
		require.NoError(t, err)
		require.Len(t, fp.records, 1)

		rec := fp.records[0]
		assert.Equal(t, "civic.audit", rec.Topic)
		assert.Equal(t, "REQ-12", string(rec.Key))

		var got payload
		require.NoError(t, json.Unmarshal(rec.Value, &got))
		assert.Equal(t, "request_accepted", got.Action)
		assert.Equal(t, "ledger", got.Category)
		assert.Equal(t, "2025-05-01T09:30:00Z", got.Timestamp)
		assert.Equal(t, "0xdead", got.TxHash)
	})

	t.Run("surfaces broker errors", func(t *testing.T) {
		fp := &fakeProducer{err: errors.New("not leader for partition")}
		s := &Store{client: fp, topic: "civic.audit"}

		err := s.Append(context.Background(), audit.Event{Action: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not leader for partition")
	})
}

func TestNew_Validation(t *testing.T) {
	_, err := New(context.Background(), nil, "topic")
	assert.Error(t, err)

	_, err = New(context.Background(), []string{"localhost:9092"}, "")
	assert.Error(t, err)
}
