// Package testing provides test utilities for the atomenv library.
//
// It follows the net/http/httptest convention of shipping test helpers as a
// regular package so that downstream code can reuse them.
//
// Key utilities:
//   - StartEmbeddedNATS: Single NATS server with JetStream
//   - CreateJetStreamKV: In-memory KV bucket for scratch and barrier tests
//   - NewTestLogger: Logger writing through t.Logf
//   - WarnRecorder: Logger capturing warnings for assertions
//
// Example usage:
//
//	import (
//	    "testing"
//	    atomtest "github.com/arloliu/atomenv/testing"
//	)
//
//	func TestGather(t *testing.T) {
//	    _, nc := atomtest.StartEmbeddedNATS(t)
//	    kv := atomtest.CreateJetStreamKV(t, nc, "atoms")
//	}
package testing
