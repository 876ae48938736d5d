package storage

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ScanFunc is called once per row group with a decoder owned by the call.
type ScanFunc func(ctx context.Context, index int, d *RowGroupDecoder) error

// Scan decodes every row group and passes it to fn, running at most
// Options.Parallelism calls at once. The first error cancels the rest.
func (r *Reader) Scan(ctx context.Context, fn ScanFunc) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Parallelism)

	for i := range r.groups {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d, err := r.RowGroup(i)
			if err != nil {
				return err
			}
			return fn(gctx, i, d)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
