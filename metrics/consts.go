package metrics

const (
	prefix = "ll_rollup_"

	prefixEvent       = prefix + "event_"
	metricEventCount  = prefixEvent + "count"
	metricEventAmount = prefixEvent + "amount_total"
	labelEventType    = "type"

	prefixRequest        = prefix + "request_"
	metricRequestCount   = prefixRequest + "count"
	metricRequestLatency = prefixRequest + "latency_seconds"
	labelRoute           = "route"
	labelCode            = "code"

	prefixKeeper       = prefix + "keeper_"
	metricKeeperActs   = prefixKeeper + "actions_count"
	metricKeeperHeight = prefixKeeper + "last_height"
	labelKeeper        = "keeper"
	labelResult        = "result"
)
