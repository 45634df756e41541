// Package events publishes payout lifecycle events to Kafka. Publishing is
// best-effort; a broker failure never fails the saga that produced the
// event.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	TopicPayoutCompleted = "payouts.completed"
	TopicOrderRefunded   = "orders.refunded"
)

type PayoutCompleted struct {
	Reference   string `json:"reference"`
	VendorID    string `json:"vendor_id"`
	Amount      int64  `json:"amount"`
	AccountName string `json:"account_name"`
	BankName    string `json:"bank_name"`
	TsUnixMs    int64  `json:"ts_unix_ms"`
}

type OrderRefunded struct {
	ProviderReference string `json:"provider_reference"`
	OrdersRefunded    int    `json:"orders_refunded"`
	TsUnixMs          int64  `json:"ts_unix_ms"`
}

type KafkaPublisher struct {
	Writer *kafka.Writer
}

func NewKafkaPublisher(w *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{Writer: w}
}

func (p *KafkaPublisher) PublishPayoutCompleted(ctx context.Context, e PayoutCompleted) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(e)
	return p.Writer.WriteMessages(ctx, kafka.Message{Topic: TopicPayoutCompleted, Key: []byte(e.VendorID), Value: b})
}

func (p *KafkaPublisher) PublishOrderRefunded(ctx context.Context, e OrderRefunded) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(e)
	return p.Writer.WriteMessages(ctx, kafka.Message{Topic: TopicOrderRefunded, Key: []byte(e.ProviderReference), Value: b})
}
