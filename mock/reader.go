package mock

import (
	"context"

	"github.com/fwojciec/raftspec"
)

var _ raftspec.BlockReader = (*BlockReader)(nil)

// BlockReader is a mock implementation of raftspec.BlockReader.
type BlockReader struct {
	ReadBlocksFn func(ctx context.Context, path string) ([]*raftspec.RawBlock, error)
}

func (r *BlockReader) ReadBlocks(ctx context.Context, path string) ([]*raftspec.RawBlock, error) {
	return r.ReadBlocksFn(ctx, path)
}
