package ports

import (
	"context"

	"github.com/fatumlabs/fatum/internal/application/domain"
)

// EntropyStore is the narrow persistence contract the harvester and the
// batch endpoints need. Transactional safety is the store's own
// concern; callers treat it as safely concurrent.
type EntropyStore interface {
	CreateBatch(ctx context.Context, name string) (int64, error)
	GetBatch(ctx context.Context, id int64) (domain.HarvestBatch, error)
	ListBatches(ctx context.Context) ([]domain.HarvestBatch, error)
	UpdateBatchStatus(ctx context.Context, id int64, status domain.BatchStatus) error
	InsertEntropy(ctx context.Context, batchID int64, round *uint64, hexValue string) error
	GetBatchEntropy(ctx context.Context, batchID int64) ([]domain.EntropyRecord, error)
	GetBatchSize(ctx context.Context, batchID int64) (int, error)
}
