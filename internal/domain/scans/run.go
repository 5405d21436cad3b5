package scans

// ScanRequest untuk Engine
type ScanRequest struct {
	ScanID   ScanID
	Filename string
	PCIDSS   bool
}

// ScanOutcome hasil dari a finished engine run
type ScanOutcome struct {
	Risk       RiskLevel
	Findings   SeverityCounts
	DurationMS int64
}

// SeverityCounts value object
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Total    int `json:"total"`
}

// Risk maps severity counts to the single risk level recorded on the job.
func (c SeverityCounts) Risk() RiskLevel {
	switch {
	case c.Critical > 0:
		return RiskCritical
	case c.High > 0:
		return RiskHigh
	case c.Medium > 0:
		return RiskMedium
	default:
		return RiskLow
	}
}
