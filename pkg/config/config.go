package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port              string `envconfig:"PORT" default:"8080"`
	AWSRegion         string `envconfig:"AWS_REGION" default:"eu-west-1"`
	OrderTableName    string `envconfig:"ORDER_TABLE_NAME" default:"orders"`
	ProfileTableName  string `envconfig:"PROFILE_TABLE_NAME" default:"photographer-profiles"`
	CatalogTableName  string `envconfig:"CATALOG_TABLE_NAME" default:"photos"`
	KafkaBrokers      string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	NotificationTopic string `envconfig:"NOTIFICATION_TOPIC" default:"marketplace-events"`
	PaymentGatewayURL string `envconfig:"PAYMENT_GATEWAY_URL" default:"http://localhost:9090"`
	PaymentTimeoutSec int    `envconfig:"PAYMENT_TIMEOUT_SEC" default:"30"`
	InvoiceBaseURL    string `envconfig:"INVOICE_BASE_URL" default:"https://invoices.pourier.local"`
	LogLevel          string `envconfig:"LOG_LEVEL" default:"info"`
	DynamoDBEndpoint  string `envconfig:"DYNAMODB_ENDPOINT" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
