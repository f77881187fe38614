// Package asyncx holds the small set of concurrency helpers the broker
// needs: settled fan-out for health checks and a bounded worker pool for
// operator probes that hit the ERP.
//
// # Fan-out
//
// [AllSettled] runs every function and returns one [Result] per function in
// input order. It never short-circuits, so one failing backend does not hide
// the state of the others.
//
//	results := asyncx.AllSettled(ctx,
//	    func(ctx context.Context) (string, error) { return "store", store.Ping(ctx) },
//	    func(ctx context.Context) (string, error) { return "redis", rdb.Ping(ctx).Err() },
//	)
//
// # Worker pool
//
// [Pool] processes items with at most n goroutines. Use it when every item
// costs an external call and unbounded concurrency would hammer the remote
// side.
//
//	results := asyncx.Pool(ctx, 4, memberships, probe)
//	for i, r := range results {
//	    if !r.OK() { ... }
//	}
package asyncx
