// internal/service/pricing/infrastructure/adapter/redemption_kafka_adapter.go
package adapter

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"bazaar/internal/pkg/logger"
	"bazaar/internal/pkg/mq"
	"bazaar/internal/service/pricing/port"
)

// RedemptionProducerAdapter 把核销事件发到 Kafka。
// key 取券码 ID，同一张券的事件保持分区内有序。
type RedemptionProducerAdapter struct {
	writer *kafka.Writer
}

func NewRedemptionProducerAdapter(writer *kafka.Writer) *RedemptionProducerAdapter {
	return &RedemptionProducerAdapter{writer: writer}
}

// PublishRedemption 实现 port.RedemptionEventProducer。
func (p *RedemptionProducerAdapter) PublishRedemption(ctx context.Context, ev *port.RedemptionEvent) error {
	eventBytes, err := json.Marshal(ev)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("failed to marshal redemption event")
		return err
	}
	if err := mq.ProduceMessage(ctx, p.writer, []byte(ev.CouponCodeID), eventBytes); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("failed to produce redemption event")
		return err
	}
	return nil
}
