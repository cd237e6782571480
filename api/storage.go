package api

type StorageEstimate struct {
	Usage      int64  `json:"usage"`
	Quota      int64  `json:"quota"`
	UsageLabel string `json:"usage_label"`
	QuotaLabel string `json:"quota_label"`
}
