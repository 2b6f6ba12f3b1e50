// Package checkpoint records which configurations of a source were sampled.
//
// A checkpoint is a two-line text file: the first line names the source, the
// second holds the sampled indices separated by spaces. Reading a checkpoint
// and loading the same indices from the same source reproduces the sample.
package checkpoint

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/arloliu/atomenv/types"
)

// Reference identifies a sample of a source.
type Reference struct {
	Source  string
	Indices []int
}

// Validate checks that every index addresses one of total items.
//
// Returns ErrLengthMismatch when an index is outside [0, total).
func (r Reference) Validate(total int) error {
	for _, i := range r.Indices {
		if i < 0 || i >= total {
			return fmt.Errorf("%w: checkpoint index %d outside source %s of %d items",
				types.ErrLengthMismatch, i, r.Source, total)
		}
	}

	return nil
}

// Write encodes ref in checkpoint format.
func Write(w io.Writer, ref Reference) error {
	if ref.Source == "" || strings.ContainsAny(ref.Source, "\r\n") {
		return fmt.Errorf("%w: source %q", types.ErrMalformedCheckpoint, ref.Source)
	}

	bw := bufio.NewWriter(w)
	_, _ = bw.WriteString(ref.Source)
	_ = bw.WriteByte('\n')
	for k, i := range ref.Indices {
		if k > 0 {
			_ = bw.WriteByte(' ')
		}
		_, _ = bw.WriteString(strconv.Itoa(i))
	}
	_ = bw.WriteByte('\n')

	return bw.Flush()
}

// Read decodes a checkpoint.
//
// Returns ErrMalformedCheckpoint when the source line is missing or empty or an
// index is not an integer. A missing index line reads as an empty sample.
func Read(r io.Reader) (Reference, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return Reference{}, fmt.Errorf("read checkpoint: %w", err)
		}
		return Reference{}, fmt.Errorf("%w: empty checkpoint", types.ErrMalformedCheckpoint)
	}
	ref := Reference{Source: strings.TrimSpace(sc.Text())}
	if ref.Source == "" {
		return Reference{}, fmt.Errorf("%w: missing source", types.ErrMalformedCheckpoint)
	}

	if sc.Scan() {
		for _, field := range strings.Fields(sc.Text()) {
			i, err := strconv.Atoi(field)
			if err != nil {
				return Reference{}, fmt.Errorf("%w: index %q", types.ErrMalformedCheckpoint, field)
			}
			ref.Indices = append(ref.Indices, i)
		}
	}
	if err := sc.Err(); err != nil {
		return Reference{}, fmt.Errorf("read checkpoint: %w", err)
	}

	return ref, nil
}

// Save writes ref to the file at path.
func Save(path string, ref Reference) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create checkpoint: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	return Write(f, ref)
}

// Load reads the checkpoint file at path.
func Load(path string) (Reference, error) {
	f, err := os.Open(path)
	if err != nil {
		return Reference{}, fmt.Errorf("open checkpoint: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Sample draws size distinct indices out of total in random order.
//
// A negative size selects every index. When size exceeds total all indices
// are returned and short reports the shortfall so the caller can warn.
//
// Returns:
//   - []int: Sampled indices
//   - bool: true when fewer than size indices were available
func Sample(total, size int, rng *rand.Rand) ([]int, bool) {
	perm := rng.Perm(total)
	if size < 0 || size >= total {
		return perm, size > total
	}

	return perm[:size], false
}
