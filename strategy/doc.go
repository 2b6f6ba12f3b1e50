// Package strategy decides which worker rank owns which atom.
//
// Two strategies are provided:
//
//   - Balancer: Greedy, species-aware running-count assignment across configurations
//   - StaticPartition: Contiguous near-equal ranges over one configuration, optionally shuffled
//
// # Strategy Selection Guide
//
// Balancer:
//   - Use when many configurations are spread over the same workers
//   - Keeps per-rank totals within one atom of each other
//   - Spreads every species evenly so species-specific work is balanced too
//   - Ranks are stored on the configuration and survive later partitions
//
// StaticPartition:
//   - Use for a single configuration without stored ranks
//   - Stateless: every rank computes its own share independently
//   - Randomization needs an identically seeded source on every rank
//
// ExplicitPartition turns stored per-atom ranks into the indices owned by one rank.
package strategy
