package types

// Summary is the headline figure set for the latest period of a filtered view.
// TotalReceived is derived so that TotalReceived == PendingCount +
// TotalGranted + TotalDenied holds exactly.
type Summary struct {
	TotalReceived  int64   `json:"totalReceived"`
	TotalProcessed int64   `json:"totalProcessed"`
	TotalGranted   int64   `json:"totalGranted"`
	TotalDenied    int64   `json:"totalDenied"`
	ApprovalRate   float64 `json:"approvalRate"`
	PendingCount   int64   `json:"pendingCount"`
	LatestPeriod   string  `json:"latestPeriod"`
}

// MonthlyPoint is one period of the monthly series.
type MonthlyPoint struct {
	Period         string `json:"period"`
	Carryover      int64  `json:"carryover"`
	NewReceived    int64  `json:"newReceived"`
	Granted        int64  `json:"granted"`
	Denied         int64  `json:"denied"`
	TotalProcessed int64  `json:"totalProcessed"`
	TotalReceived  int64  `json:"totalReceived"`
}

// RegionTotal is one region's total workload (carryover + new received).
type RegionTotal struct {
	Region string `json:"region"`
	Label  string `json:"label"`
	Value  int64  `json:"value"`
}

// BacklogPoint is the carryover of one period broken out by category code.
type BacklogPoint struct {
	Period     string           `json:"period"`
	ByCategory map[string]int64 `json:"byCategory"`
}

// RegionApproval is one ranked region in the approval-rate view.
type RegionApproval struct {
	Region       string  `json:"region"`
	RegionCode   string  `json:"regionCode"`
	ApprovalRate float64 `json:"approvalRate"`
	Granted      int64   `json:"granted"`
	Processed    int64   `json:"processed"`
}

// ApprovalRanking is the approval-rate view: ranked regions plus the regions
// left out for low volume.
type ApprovalRanking struct {
	Data            []RegionApproval `json:"data"`
	PeriodStart     string           `json:"periodStart"`
	PeriodEnd       string           `json:"periodEnd"`
	Threshold       int64            `json:"threshold"`
	ExcludedRegions []string         `json:"excludedRegions"`
}

// EstimationRequest identifies one pending application.
type EstimationRequest struct {
	ApplicationDate string `json:"applicationDate"` // YYYY-MM-DD
	Region          string `json:"region"`
	Category        string `json:"category"`
}

// EstimationResult is the forecast for one application. ConfidenceLevel is a
// data-availability heuristic in [0, 100], not a statistical interval.
type EstimationResult struct {
	EstimatedDate       string  `json:"estimatedDate"`
	OptimisticDate      string  `json:"optimisticDate"`
	PessimisticDate     string  `json:"pessimisticDate"`
	QueuePosition       int64   `json:"queuePosition"`
	DailyProcessingRate float64 `json:"dailyProcessingRate"`
	ConfidenceLevel     int     `json:"confidenceLevel"`
	RegionEfficiency    float64 `json:"regionEfficiency"`
	DaysRemaining       int     `json:"daysRemaining"`
	AlreadyProcessed    bool    `json:"alreadyProcessed"`
}
