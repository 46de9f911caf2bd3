package shared

// DefaultBatchSize is used by keyset scans when no size is configured.
const DefaultBatchSize = 500

// BatchSize clamps a requested keyset page size.
func BatchSize(requested int) int {
	if requested <= 0 {
		return DefaultBatchSize
	}
	if requested > 5000 {
		return 5000
	}
	return requested
}
