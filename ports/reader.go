package ports

import (
	"context"

	"wastedash/domain/waste"
)

// TableReader reads one flat source file into a wide table.
// Implementations must fail with a core.DataSourceError when the file is
// missing or cannot be parsed under any candidate encoding.
type TableReader interface {
	ReadTable(ctx context.Context, src waste.Source) (*waste.WideTable, error)
}

// TableLoader is the read-through view of a TableReader used by the views.
type TableLoader interface {
	Load(ctx context.Context, src waste.Source) (*waste.WideTable, error)
}
