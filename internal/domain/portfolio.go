package domain

// ============================================================
// Portfolio snapshot (derived, never persisted)
// ============================================================

// DueBucket classifies an active operation by how soon it is due.
type DueBucket string

const (
	BucketOverdue  DueBucket = "overdue"
	BucketToday    DueBucket = "today"
	BucketThisWeek DueBucket = "this-week"
	BucketUpcoming DueBucket = "upcoming"
)

// Snapshot is the dashboard view over the full operation and receipt sets.
type Snapshot struct {
	Today             Date                  `json:"today"`
	ActiveCapital     Money                 `json:"activeCapital"`
	InterestToReceive Money                 `json:"interestToReceive"`
	TotalReceivables  Money                 `json:"totalReceivables"`
	DelinquencyValue  Money                 `json:"delinquencyValue"`
	ActiveCount       int                   `json:"activeCount"`
	OverdueCount      int                   `json:"overdueCount"`
	Distribution      []StatusSlice         `json:"distribution"`
	Reminders         []Reminder            `json:"reminders"`
	Buckets           map[DueBucket][]int64 `json:"buckets"`
	Exposure          []ClientExposure      `json:"exposure"`
}

// StatusSlice is one entry of the status distribution chart.
type StatusSlice struct {
	Status      Status `json:"status"`
	Count       int    `json:"count"`
	CurrentDebt Money  `json:"currentDebt"`
}

// Reminder is an active operation falling due within the reminder window.
type Reminder struct {
	OperationID int64  `json:"operationId"`
	ClientID    int64  `json:"clientId"`
	TitleNumber string `json:"titleNumber"`
	DueDate     Date   `json:"dueDate"`
	DaysLeft    int    `json:"daysLeft"`
	CurrentDebt Money  `json:"currentDebt"`
	Status      Status `json:"status"`
}

// ClientExposure compares what a client owes with its credit limit.
type ClientExposure struct {
	ClientID        int64  `json:"clientId"`
	ClientName      string `json:"clientName"`
	LimiteCredito   Money  `json:"limiteCredito"`
	CurrentDebt     Money  `json:"currentDebt"`
	OverdueDebt     Money  `json:"overdueDebt"`
	AvailableCredit Money  `json:"availableCredit"`
	OverLimit       bool   `json:"overLimit"`
}
