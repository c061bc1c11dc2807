package tracking

import (
	"context"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/sse"
)

// Sender delivers one sample to the remote collector. A nil error means the
// collector confirmed receipt.
type Sender interface {
	Send(ctx context.Context, sample LocationSample) error
}

// CollectorService handles samples received by the collector.
type CollectorService interface {
	// Record stores an uploaded sample on behalf of the authenticated operator.
	Record(ctx context.Context, email string, req UploadSampleRequest) (SampleResponse, bool, error)

	// ListMine returns recent samples for the authenticated operator.
	ListMine(ctx context.Context, email string, filter SampleFilter) ([]SampleResponse, error)

	// Subscribe streams newly recorded samples for one operator.
	Subscribe(ctx context.Context, email string) (<-chan sse.Event, func())
}
