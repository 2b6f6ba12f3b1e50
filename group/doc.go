// Package group provides ProcessGroup implementations.
//
// A process group gives every worker a rank and a barrier. Gather relies on the
// barrier to order "every rank has written its views" before "any rank reads
// them back".
//
//   - Local: N ranks running as goroutines of one process
//   - NATS: Ranks in separate processes coordinating through a JetStream KV bucket
//
// Every member must call Barrier the same number of times. A barrier abandoned
// through context cancellation returns types.ErrBarrierAborted and leaves the
// group unusable for further collective calls.
package group
