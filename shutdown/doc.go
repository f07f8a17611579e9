// Package shutdown coordinates graceful stop: the first of several triggers
// (an interruption signal by default, plus any the caller attaches) stops
// the target, and the remaining triggers are ignored.
//
//	err := shutdown.New(shutdown.WithTrigger(shutdown.Channel("admin", quit))).
//		Run(ctx, srv.Handle())
package shutdown
