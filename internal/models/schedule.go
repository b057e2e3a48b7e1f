package models

import "time"

// Shift is one scheduled work block. Date is YYYY-MM-DD; StartTime and
// EndTime are zero-padded HH:MM so lexicographic comparison matches
// chronological order within a day.
type Shift struct {
	ID        string    `json:"id"`
	StaffID   string    `json:"staffId"`
	Date      string    `json:"date"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	Role      string    `json:"role"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Overlaps reports whether the shift overlaps the given time range on the
// same date. Back-to-back shifts do not overlap.
func (s *Shift) Overlaps(date, start, end string) bool {
	return s.Date == date && s.StartTime < end && start < s.EndTime
}

// TimeOffStatus is the lifecycle state of a time-off request.
type TimeOffStatus string

const (
	TimeOffPending  TimeOffStatus = "pending"
	TimeOffApproved TimeOffStatus = "approved"
	TimeOffDenied   TimeOffStatus = "denied"
)

// TimeOffRequest covers whole days from StartDate through EndDate
// inclusive, both YYYY-MM-DD.
type TimeOffRequest struct {
	ID        string        `json:"id"`
	StaffID   string        `json:"staffId"`
	StartDate string        `json:"startDate"`
	EndDate   string        `json:"endDate"`
	Reason    string        `json:"reason,omitempty"`
	Status    TimeOffStatus `json:"status"`
	DecidedBy string        `json:"decidedBy,omitempty"`
	DecidedAt *time.Time    `json:"decidedAt,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Covers reports whether the request spans the given date.
func (r *TimeOffRequest) Covers(date string) bool {
	return r.StartDate <= date && date <= r.EndDate
}

// SwapStatus is the lifecycle state of a shift-swap offer.
type SwapStatus string

const (
	SwapOpen      SwapStatus = "open"
	SwapAccepted  SwapStatus = "accepted"
	SwapCancelled SwapStatus = "cancelled"
)

// ShiftSwap offers a shift to colleagues; accepting reassigns the shift
// after the acceptor passes a conflict check.
type ShiftSwap struct {
	ID          string     `json:"id"`
	ShiftID     string     `json:"shiftId"`
	FromStaffID string     `json:"fromStaffId"`
	ToStaffID   string     `json:"toStaffId,omitempty"`
	Note        string     `json:"note,omitempty"`
	Status      SwapStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	ResolvedAt  *time.Time `json:"resolvedAt,omitempty"`
}

// ConflictType distinguishes what a proposed shift collides with.
type ConflictType string

const (
	ConflictShiftOverlap ConflictType = "overlap"
	ConflictTimeOff      ConflictType = "time_off"
)

// ShiftConflict describes one collision found by the conflict checker.
type ShiftConflict struct {
	Type        ConflictType `json:"type"`
	ShiftID     string       `json:"shiftId,omitempty"`
	TimeOffID   string       `json:"timeOffId,omitempty"`
	Description string       `json:"description"`
}
