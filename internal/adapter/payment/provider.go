package payment

import (
	"fmt"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/config"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/ports"
)

// New picks the provider named in configuration.
func New(cfg config.PaymentConfig) (ports.PaymentProvider, error) {
	switch cfg.Provider {
	case "", "sandbox":
		return NewSandbox(), nil
	case "gateway":
		if cfg.GatewayURL == "" {
			return nil, fmt.Errorf("payment gateway url is required")
		}
		return NewGateway(GatewayConfig{
			BaseURL: cfg.GatewayURL,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported payment provider: %s", cfg.Provider)
	}
}
