package gateway

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	BaseURL        string        `envconfig:"GATEWAY_BASE_URL" default:"http://ib-gateway:5000"`
	StreamURL      string        `envconfig:"GATEWAY_STREAM_URL" default:"ws://ib-gateway:5000/v1/stream"`
	RequestTimeout time.Duration `envconfig:"GATEWAY_REQUEST_TIMEOUT" default:"15s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
