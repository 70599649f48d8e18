package metrics

// Stats 指标快照
//
// 计数为进程启动以来的累计值，EmitRate 为最近 60 秒的平均每秒发射次数。
type Stats struct {
	Emits         int64   `json:"emits"`
	Deliveries    int64   `json:"deliveries"`
	HandlerPanics int64   `json:"handlerPanics"`
	EmitRate      float64 `json:"emitRate"`

	Fetches       int64 `json:"fetches"`
	FetchFailures int64 `json:"fetchFailures"`

	ModuleLoads    int64 `json:"moduleLoads"`
	ModuleFailures int64 `json:"moduleFailures"`

	VersionConflicts int64 `json:"versionConflicts"`
}
