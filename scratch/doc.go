// Package scratch provides ScratchStore implementations for the gather handoff.
//
// During a gather every rank writes the frames of the views it owns under
// Key(root, index), meets the other ranks at a barrier, then reads all frames
// back in index order. A store therefore only has to be reachable by every rank
// and durable for the length of one gather.
//
// Available stores:
//
//   - Memory: Process-local map for ranks running as goroutines of one process
//   - Dir: Directory on a filesystem shared by all ranks
//   - NATS: JetStream key-value bucket
//   - Minio: MinIO or any S3-compatible bucket
//
// Every store reports a missing key as types.ErrScratchEntryMissing.
package scratch
