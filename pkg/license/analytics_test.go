package license

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeEmpty(t *testing.T) {
	a := Analyze(nil, 1000)
	assert.Equal(t, 0, a.TotalLicenses)
	assert.Equal(t, 0.0, a.AverageUsage)
}

func TestAnalyzeCountsActiveExpiredAndUsage(t *testing.T) {
	expiredAt := uint32(500)
	futureAt := uint32(5000)
	records := []TokenRecord{
		{Token: "a", IsActive: true, UsageCount: 10},
		{Token: "b", IsActive: false, UsageCount: 0},
		{Token: "c", IsActive: true, RecordExpiresAt: &expiredAt, UsageCount: 4},
		{Token: "d", IsActive: true, RecordExpiresAt: &futureAt, UsageCount: 6},
	}

	a := Analyze(records, 1000)
	assert.Equal(t, 4, a.TotalLicenses)
	assert.Equal(t, 3, a.ActiveLicenses)
	assert.Equal(t, 1, a.ExpiredLicenses)
	assert.Equal(t, uint64(20), a.TotalUsage)
	assert.InDelta(t, 5.0, a.AverageUsage, 0.0001)
}
