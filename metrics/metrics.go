package metrics

import "time"

// Recorder receives lifecycle counters and call latencies. Labels carry the
// network name under "network".
type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
