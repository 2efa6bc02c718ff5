package model

import "time"

// Queue identifies a service point within a department. The static fields
// come from the directory; the live counters (active tickets, numbering,
// rotation cursor) are owned by the ledger.
type Queue struct {
	ID            int64   `json:"id"`
	DepartmentID  int64   `json:"department_id"`
	BranchID      int64   `json:"branch_id"`
	InstitutionID int64   `json:"institution_id"`
	Name          string  `json:"name"`
	Service       string  `json:"service,omitempty"`
	Prefix        string  `json:"prefix"` // single display letter
	DailyLimit    int     `json:"daily_limit"`
	NumCounters   int     `json:"num_counters"`
	AvgServiceMin float64 `json:"avg_service_minutes"`
}

// Branch is a physical service location.
type Branch struct {
	ID            int64   `json:"id"`
	InstitutionID int64   `json:"institution_id"`
	Name          string  `json:"name"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
}

// Schedule is one weekday row of a queue's operating hours. Times are wall
// clock "HH:MM" strings. A queue with no row for the current weekday is
// treated as closed.
type Schedule struct {
	QueueID  int64        `json:"queue_id"`
	Weekday  time.Weekday `json:"weekday"`
	OpenTime string       `json:"open_time"`
	EndTime  string       `json:"end_time"`
	IsClosed bool         `json:"is_closed"`
}

// QueueSnapshot is the display-board view of a queue's live state.
type QueueSnapshot struct {
	QueueID       int64 `json:"queue_id"`
	CurrentTicket int   `json:"current_ticket"`
	ActiveTickets int   `json:"active_tickets"`
	LastNumber    int   `json:"last_number"`
	DailyLimit    int   `json:"daily_limit"`
	Open          bool  `json:"open"`
}
