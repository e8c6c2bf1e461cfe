package artifact

// NetworkRecord is one completed (or in-flight) request seen by a tab.
// Times are seconds on the browser's monotonic clock.
type NetworkRecord struct {
	URL          string  `json:"url"`
	MIMEType     string  `json:"mime_type"`
	ResourceType string  `json:"resource_type"`
	TransferSize int64   `json:"transfer_size"`
	StartTime    float64 `json:"start_time"`
	EndTime      float64 `json:"end_time"`
}

// Duration returns the request duration in milliseconds, or 0 while the
// request is unfinished.
func (r NetworkRecord) Duration() float64 {
	if r.EndTime <= r.StartTime {
		return 0
	}
	return (r.EndTime - r.StartTime) * 1000
}

// FindRecord returns the last record for url.
func FindRecord(records []NetworkRecord, url string) (NetworkRecord, bool) {
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].URL == url {
			return records[i], true
		}
	}
	return NetworkRecord{}, false
}
