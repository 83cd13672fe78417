package components

import (
	"log/slog"

	paymentgw "ticketing/internal/gateway/payment"
	"ticketing/internal/infra/holdstore"
	"ticketing/internal/pkg/config"
	"ticketing/internal/ticket"
	"ticketing/internal/usecase/commands"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var GatewayModule = fx.Module("gateway",
	fx.Provide(
		NewPaymentRegistry,
		NewHoldStore,
		fx.Annotate(
			ticket.NewOpaqueRenderer,
			fx.As(new(ticket.Renderer)),
		),
		ticket.NewIssuer,
	),
)

func NewPaymentRegistry(cfg config.PaymentConfig) *paymentgw.Registry {
	return paymentgw.NewRegistry(
		paymentgw.NewPaystackGateway(cfg.PaystackSecret, cfg.PaystackBaseURL, cfg.ProviderTimeout),
		paymentgw.NewFlutterwaveGateway(cfg.FlutterwaveSecret, cfg.FlutterwaveURL, cfg.ProviderTimeout),
	)
}

func NewHoldStore(client *redis.Client, cfg config.BookingConfig, logger *slog.Logger) commands.HoldStore {
	return holdstore.New(client, cfg.HoldDuration, logger)
}
