package license

// Analytics summarizes a slice of TokenRecord, mirroring the original's
// LicenseManager.get_license_analytics (models.py). It is a pure
// function over already-loaded records rather than a new store method,
// since §6 deliberately keeps TokenRecordStore narrow (load/save by
// token); any listing/aggregation concern belongs to the caller's
// persistence layer, which hands the records here.
type Analytics struct {
	TotalLicenses   int
	ActiveLicenses  int
	ExpiredLicenses int
	TotalUsage      uint64
	AverageUsage    float64
}

// Analyze computes Analytics over the given records as of now (an epoch
// second reading from the caller's Clock). Expiry here is the
// administrative RecordExpiresAt, matching the original's
// expires_at__lt=timezone.now() filter; a record with no expiry is never
// counted as expired.
func Analyze(records []TokenRecord, now uint32) Analytics {
	var a Analytics
	a.TotalLicenses = len(records)

	for _, r := range records {
		if r.IsActive {
			a.ActiveLicenses++
		}
		if r.RecordExpiresAt != nil && *r.RecordExpiresAt < now {
			a.ExpiredLicenses++
		}
		a.TotalUsage += uint64(r.UsageCount)
	}

	if a.TotalLicenses > 0 {
		a.AverageUsage = float64(a.TotalUsage) / float64(a.TotalLicenses)
	}
	return a
}
