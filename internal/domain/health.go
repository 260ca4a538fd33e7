package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// CarteiraMetrics is returned by GET /v1/metrics/carteira.
type CarteiraMetrics struct {
	ReceiptsApplied    int64            `json:"receiptsApplied"`
	ExtensionsApplied  int64            `json:"extensionsApplied"`
	ReceiptsReversed   int64            `json:"receiptsReversed"`
	StatusTransitions  map[string]int64 `json:"statusTransitions"`
	StoreErrors        int64            `json:"storeErrors"`
	SnapshotCacheRatio float64          `json:"snapshotCacheHitRate"`
}
