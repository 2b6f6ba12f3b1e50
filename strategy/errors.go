package strategy

import "github.com/arloliu/atomenv/types"

// ErrNoWorkers indicates that a strategy was asked to split work across zero workers.
var ErrNoWorkers = types.ErrNoWorkers
