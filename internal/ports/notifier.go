package ports

import (
	"context"

	"github.com/alejandrodnm/tradewatch/internal/domain"
)

// Notifier publica eventos del tracker hacia fuera (consola, Redis, Kafka...).
// Es fire-and-forget: el tracker registra el error y sigue.
type Notifier interface {
	Publish(ctx context.Context, event domain.Event) error
}
