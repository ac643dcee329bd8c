// internal/service/provisioning/infrastructure/kafka_alert_sink.go
package infrastructure

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"bazaar/internal/pkg/mq"
	"bazaar/internal/service/provisioning/port"
)

// KafkaAlertSink 把对账告警发到 Kafka，由运维网关消费后推给值班前端。
// key 取资源定位串，同一孤儿资源的重复告警保持有序。
type KafkaAlertSink struct {
	writer *kafka.Writer
}

func NewKafkaAlertSink(writer *kafka.Writer) *KafkaAlertSink {
	return &KafkaAlertSink{writer: writer}
}

// Publish 实现 port.AlertSink。
func (s *KafkaAlertSink) Publish(ctx context.Context, alert port.ReconcileAlert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	return mq.ProduceMessage(ctx, s.writer, []byte(alert.Locator), payload)
}
