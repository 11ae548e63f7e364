package ports

import (
	"context"

	"github.com/alejandrodnm/tradewatch/internal/domain"
)

// FrameClassifier captura un frame y lo clasifica dentro de la región dada.
// Si devuelve error, el tracker usa domain.FailedFrame en su lugar.
type FrameClassifier interface {
	Classify(ctx context.Context, region domain.Region) (domain.FrameResult, error)
}
