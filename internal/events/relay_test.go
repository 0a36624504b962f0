package events

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/smallbiznis/tradebook/internal/clock"
	"github.com/smallbiznis/tradebook/internal/testing/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	published []Record
	failFor   map[string]error
}

func (p *recordingPublisher) Publish(_ context.Context, record Record) error {
	if err := p.failFor[record.DedupeKey]; err != nil {
		return err
	}
	p.published = append(p.published, record)
	return nil
}

func TestOutboxPublishTxIsIdempotent(t *testing.T) {
	conn := dbtest.Open(t, &Record{})
	clk := clock.NewFakeClock(time.Date(2025, 10, 17, 8, 0, 0, 0, time.UTC))
	outbox := NewOutbox(dbtest.Node(t), clk)
	ctx := context.Background()

	evt := Event{
		Type:        EventSettlementCompleted,
		AggregateID: 42,
		DedupeKey:   "settlement:42",
		Payload:     map[string]any{"ledger_number": "SL-251017-001"},
	}
	for i := 0; i < 2; i++ {
		require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
			return outbox.PublishTx(ctx, tx, evt)
		}))
	}

	var count int64
	require.NoError(t, conn.Model(&Record{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestOutboxRollsBackWithTransaction(t *testing.T) {
	conn := dbtest.Open(t, &Record{})
	outbox := NewOutbox(dbtest.Node(t), clock.NewFakeClock(time.Now()))

	boom := errors.New("boom")
	err := conn.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, outbox.PublishTx(context.Background(), tx, Event{
			Type:      EventPaymentRecorded,
			DedupeKey: "payment:1",
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, conn.Model(&Record{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestOutboxRejectsIncompleteEvent(t *testing.T) {
	conn := dbtest.Open(t, &Record{})
	outbox := NewOutbox(dbtest.Node(t), clock.NewFakeClock(time.Now()))
	err := outbox.PublishTx(context.Background(), conn, Event{Type: EventPaymentRecorded})
	assert.Error(t, err)
}

func TestRelayRunOncePublishesPendingInOrder(t *testing.T) {
	conn := dbtest.Open(t, &Record{})
	clk := clock.NewFakeClock(time.Date(2025, 10, 17, 8, 0, 0, 0, time.UTC))
	outbox := NewOutbox(dbtest.Node(t), clk)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, outbox.PublishTx(ctx, conn, Event{Type: EventSettlementCompleted, DedupeKey: key}))
		clk.Advance(time.Second)
	}

	publisher := &recordingPublisher{failFor: map[string]error{"b": errors.New("stream down")}}
	relay := NewRelay(RelayParams{DB: conn, Log: zap.NewNop(), Clock: clk, Publisher: publisher})

	n, err := relay.RunOnce(ctx, 10)
	assert.Error(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, publisher.published, 2)
	assert.Equal(t, "a", publisher.published[0].DedupeKey)
	assert.Equal(t, "c", publisher.published[1].DedupeKey)

	var failed Record
	require.NoError(t, conn.Where("dedupe_key = ?", "b").First(&failed).Error)
	assert.Nil(t, failed.PublishedAt)
	assert.Equal(t, 1, failed.Attempts)
	assert.Equal(t, "stream down", failed.LastError)

	delete(publisher.failFor, "b")
	n, err = relay.RunOnce(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = relay.RunOnce(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNewPublisherFallsBackToLog(t *testing.T) {
	publisher := NewPublisher(nil, zap.NewNop())
	_, ok := publisher.(*LogPublisher)
	assert.True(t, ok)
	assert.NoError(t, publisher.Publish(context.Background(), Record{EventType: EventPaymentRecorded}))
}

func TestRelayTruncatesLastErrorOnRuneBoundary(t *testing.T) {
	conn := dbtest.Open(t, &Record{})
	clk := clock.NewFakeClock(time.Date(2025, 10, 17, 8, 0, 0, 0, time.UTC))
	outbox := NewOutbox(dbtest.Node(t), clk)
	ctx := context.Background()
	require.NoError(t, outbox.PublishTx(ctx, conn, Event{Type: EventSettlementCompleted, DedupeKey: "wide"}))

	// 3-byte runes put the 512th byte mid-rune.
	long := "x" + strings.Repeat("€", 300)
	publisher := &recordingPublisher{failFor: map[string]error{"wide": errors.New(long)}}
	relay := NewRelay(RelayParams{DB: conn, Log: zap.NewNop(), Clock: clk, Publisher: publisher})

	_, err := relay.RunOnce(ctx, 10)
	require.Error(t, err)

	var failed Record
	require.NoError(t, conn.Where("dedupe_key = ?", "wide").First(&failed).Error)
	assert.True(t, utf8.ValidString(failed.LastError))
	assert.LessOrEqual(t, len(failed.LastError), maxErrorLength)
	assert.Equal(t, 511, len(failed.LastError))
	assert.True(t, strings.HasPrefix(long, failed.LastError))
}

func TestTruncateErrorKeepsShortMessages(t *testing.T) {
	assert.Equal(t, "boom", truncateError("boom", maxErrorLength))
	assert.Equal(t, "ab", truncateError("ab€", 4))
	assert.Equal(t, "", truncateError("€", 2))
}
