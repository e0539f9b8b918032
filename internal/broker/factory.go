package broker

import (
	"github.com/Minglarn/trafikinfo-sub001/internal/config"
	"github.com/Minglarn/trafikinfo-sub001/internal/logger"
)

func NewProducer(cfg config.BrokerConfig, log logger.Logger) Producer {
	return NewKafkaProducer(cfg.Kafka, log)
}

func NewConsumer(cfg config.BrokerConfig, log logger.Logger) Consumer {
	return NewKafkaConsumer(cfg.Kafka, log)
}
