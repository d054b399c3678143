package politeness

import "time"

// pruneThreshold is the tracked-host-count above which Gate attempts a prune.
const pruneThreshold = 1000

// pruneMaxAge is how stale a host's last fetch must be to be dropped once
// pruneThreshold is exceeded.
const pruneMaxAge = 10 * time.Minute
