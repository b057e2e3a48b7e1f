package service

import (
	"context"
	"fmt"
	"time"

	"reefops/internal/errors"
	"reefops/internal/models"
	"reefops/internal/validation"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ShiftInput is the caller's input for creating or updating a shift.
type ShiftInput struct {
	StaffID   string `json:"staffId"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Role      string `json:"role"`
	Notes     string `json:"notes,omitempty"`
}

// TimeOffInput is the caller's input for requesting time off.
type TimeOffInput struct {
	StaffID   string `json:"staffId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Reason    string `json:"reason,omitempty"`
}

// ScheduleService manages staff shifts, time-off requests and shift swaps.
// Every path that would put a staff member on the roster runs through the
// conflict checker first.
type ScheduleService interface {
	CheckShiftConflicts(ctx context.Context, staffID, date, start, end, excludeShiftID string) ([]models.ShiftConflict, error)
	CreateShift(ctx context.Context, in ShiftInput) (*models.Shift, error)
	UpdateShift(ctx context.Context, id string, in ShiftInput) (*models.Shift, error)
	DeleteShift(ctx context.Context, id string) error
	ShiftsBetween(ctx context.Context, startDate, endDate string) ([]models.Shift, error)
	RequestTimeOff(ctx context.Context, in TimeOffInput) (*models.TimeOffRequest, error)
	DecideTimeOff(ctx context.Context, id string, approve bool, deciderID string) (*models.TimeOffRequest, error)
	StaffTimeOff(ctx context.Context, staffID string) ([]models.TimeOffRequest, error)
	OfferSwap(ctx context.Context, shiftID, staffID, note string) (*models.ShiftSwap, error)
	AcceptSwap(ctx context.Context, swapID, staffID string) (*models.ShiftSwap, error)
	CancelSwap(ctx context.Context, swapID, staffID string) error
	OpenSwaps(ctx context.Context) ([]models.ShiftSwap, error)
}

type scheduleService struct {
	logger   *logrus.Logger
	store    ScheduleStore
	scopes   ScopeStore
	notifier Notifier
	now      func() time.Time
}

func NewScheduleService(logger *logrus.Logger, store ScheduleStore, scopes ScopeStore, notifier Notifier) ScheduleService {
	return &scheduleService{
		logger:   logger,
		store:    store,
		scopes:   scopes,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CheckShiftConflicts reports every overlapping shift and every approved
// time-off request the proposed block collides with. excludeShiftID lets an
// update skip the shift being edited.
func (s *scheduleService) CheckShiftConflicts(ctx context.Context, staffID, date, start, end, excludeShiftID string) ([]models.ShiftConflict, error) {
	existing, err := s.store.StaffShiftsOn(ctx, staffID, date)
	if err != nil {
		return nil, errors.ClassifyStoreError("load shifts", err)
	}

	conflicts := make([]models.ShiftConflict, 0)
	for i := range existing {
		shift := existing[i]
		if shift.ID == excludeShiftID {
			continue
		}
		if shift.Overlaps(date, start, end) {
			conflicts = append(conflicts, models.ShiftConflict{
				Type:        models.ConflictShiftOverlap,
				ShiftID:     shift.ID,
				Description: fmt.Sprintf("overlaps existing shift %s-%s", shift.StartTime, shift.EndTime),
			})
		}
	}

	timeOff, err := s.store.ApprovedTimeOffCovering(ctx, staffID, date)
	if err != nil {
		return nil, errors.ClassifyStoreError("load time off", err)
	}
	for i := range timeOff {
		req := timeOff[i]
		conflicts = append(conflicts, models.ShiftConflict{
			Type:        models.ConflictTimeOff,
			TimeOffID:   req.ID,
			Description: fmt.Sprintf("approved time off %s to %s", req.StartDate, req.EndDate),
		})
	}
	return conflicts, nil
}

func (s *scheduleService) validateShiftInput(in ShiftInput) error {
	if in.StaffID == "" {
		return errors.NewValidationError("staffId", "staffId is required")
	}
	if err := validation.ValidateDate("date", in.Date); err != nil {
		return err
	}
	return validation.ValidateTimeRange(in.StartTime, in.EndTime)
}

func (s *scheduleService) CreateShift(ctx context.Context, in ShiftInput) (*models.Shift, error) {
	if err := s.validateShiftInput(in); err != nil {
		return nil, err
	}

	conflicts, err := s.CheckShiftConflicts(ctx, in.StaffID, in.Date, in.StartTime, in.EndTime, "")
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, conflictError(conflicts)
	}

	now := s.now()
	shift := &models.Shift{
		ID:        uuid.NewString(),
		StaffID:   in.StaffID,
		Date:      in.Date,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Role:      in.Role,
		Notes:     in.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertShift(ctx, shift); err != nil {
		return nil, errors.ClassifyStoreError("insert shift", err)
	}
	return shift, nil
}

func (s *scheduleService) UpdateShift(ctx context.Context, id string, in ShiftInput) (*models.Shift, error) {
	if err := s.validateShiftInput(in); err != nil {
		return nil, err
	}

	shift, err := s.store.GetShift(ctx, id)
	if err != nil {
		return nil, errors.ClassifyStoreError("load shift", err)
	}
	if shift == nil {
		return nil, errors.NewNotFoundError("shift", id)
	}

	conflicts, err := s.CheckShiftConflicts(ctx, in.StaffID, in.Date, in.StartTime, in.EndTime, id)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, conflictError(conflicts)
	}

	shift.StaffID = in.StaffID
	shift.Date = in.Date
	shift.StartTime = in.StartTime
	shift.EndTime = in.EndTime
	shift.Role = in.Role
	shift.Notes = in.Notes
	shift.UpdatedAt = s.now()
	if err := s.store.UpdateShift(ctx, shift); err != nil {
		return nil, errors.ClassifyStoreError("update shift", err)
	}
	return shift, nil
}

func (s *scheduleService) DeleteShift(ctx context.Context, id string) error {
	shift, err := s.store.GetShift(ctx, id)
	if err != nil {
		return errors.ClassifyStoreError("load shift", err)
	}
	if shift == nil {
		return errors.NewNotFoundError("shift", id)
	}
	if err := s.store.DeleteShift(ctx, id); err != nil {
		return errors.ClassifyStoreError("delete shift", err)
	}
	return nil
}

func (s *scheduleService) ShiftsBetween(ctx context.Context, startDate, endDate string) ([]models.Shift, error) {
	if err := validation.ValidateDateRange(startDate, endDate); err != nil {
		return nil, err
	}
	shifts, err := s.store.ShiftsBetween(ctx, startDate, endDate)
	if err != nil {
		return nil, errors.ClassifyStoreError("load shifts", err)
	}
	return shifts, nil
}

func (s *scheduleService) RequestTimeOff(ctx context.Context, in TimeOffInput) (*models.TimeOffRequest, error) {
	if in.StaffID == "" {
		return nil, errors.NewValidationError("staffId", "staffId is required")
	}
	if err := validation.ValidateDateRange(in.StartDate, in.EndDate); err != nil {
		return nil, err
	}

	req := &models.TimeOffRequest{
		ID:        uuid.NewString(),
		StaffID:   in.StaffID,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Reason:    in.Reason,
		Status:    models.TimeOffPending,
		CreatedAt: s.now(),
	}
	if err := s.store.InsertTimeOff(ctx, req); err != nil {
		return nil, errors.ClassifyStoreError("insert time off", err)
	}
	return req, nil
}

// DecideTimeOff approves or denies a pending request. Only managers may
// decide, and a request cannot be decided twice.
func (s *scheduleService) DecideTimeOff(ctx context.Context, id string, approve bool, deciderID string) (*models.TimeOffRequest, error) {
	decider, err := s.scopes.GetUser(ctx, deciderID)
	if err != nil {
		return nil, errors.ClassifyStoreError("resolve decider", err)
	}
	if decider == nil || decider.Role != "manager" {
		return nil, errors.NewPermissionError("only managers may decide time-off requests")
	}

	req, err := s.store.GetTimeOff(ctx, id)
	if err != nil {
		return nil, errors.ClassifyStoreError("load time off", err)
	}
	if req == nil {
		return nil, errors.NewNotFoundError("time-off request", id)
	}
	if req.Status != models.TimeOffPending {
		return nil, errors.NewValidationError("id", fmt.Sprintf("request is already %s", req.Status))
	}

	status := models.TimeOffDenied
	if approve {
		status = models.TimeOffApproved
	}
	at := s.now()
	if err := s.store.DecideTimeOff(ctx, id, status, deciderID, at); err != nil {
		return nil, errors.ClassifyStoreError("decide time off", err)
	}

	req.Status = status
	req.DecidedBy = deciderID
	req.DecidedAt = &at
	s.notifier.TimeOffDecided(ctx, req)
	return req, nil
}

func (s *scheduleService) StaffTimeOff(ctx context.Context, staffID string) ([]models.TimeOffRequest, error) {
	reqs, err := s.store.StaffTimeOff(ctx, staffID)
	if err != nil {
		return nil, errors.ClassifyStoreError("load time off", err)
	}
	return reqs, nil
}

func (s *scheduleService) OfferSwap(ctx context.Context, shiftID, staffID, note string) (*models.ShiftSwap, error) {
	shift, err := s.store.GetShift(ctx, shiftID)
	if err != nil {
		return nil, errors.ClassifyStoreError("load shift", err)
	}
	if shift == nil {
		return nil, errors.NewNotFoundError("shift", shiftID)
	}
	if shift.StaffID != staffID {
		return nil, errors.NewPermissionError("only the assigned staff member may offer their shift")
	}

	swap := &models.ShiftSwap{
		ID:          uuid.NewString(),
		ShiftID:     shiftID,
		FromStaffID: staffID,
		Note:        note,
		Status:      models.SwapOpen,
		CreatedAt:   s.now(),
	}
	if err := s.store.InsertSwap(ctx, swap); err != nil {
		return nil, errors.ClassifyStoreError("insert swap", err)
	}
	s.notifier.SwapOffered(ctx, swap, shift)
	return swap, nil
}

// AcceptSwap reassigns the underlying shift to the acceptor, provided the
// swap is still open, the acceptor is not the offerer, and the shift would
// not conflict with the acceptor's schedule.
func (s *scheduleService) AcceptSwap(ctx context.Context, swapID, staffID string) (*models.ShiftSwap, error) {
	swap, err := s.store.GetSwap(ctx, swapID)
	if err != nil {
		return nil, errors.ClassifyStoreError("load swap", err)
	}
	if swap == nil {
		return nil, errors.NewNotFoundError("swap", swapID)
	}
	if swap.Status != models.SwapOpen {
		return nil, errors.NewValidationError("id", fmt.Sprintf("swap is already %s", swap.Status))
	}
	if swap.FromStaffID == staffID {
		return nil, errors.NewValidationError("staffId", "cannot accept your own swap offer")
	}

	shift, err := s.store.GetShift(ctx, swap.ShiftID)
	if err != nil {
		return nil, errors.ClassifyStoreError("load shift", err)
	}
	if shift == nil {
		return nil, errors.NewNotFoundError("shift", swap.ShiftID)
	}

	conflicts, err := s.CheckShiftConflicts(ctx, staffID, shift.Date, shift.StartTime, shift.EndTime, "")
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, conflictError(conflicts)
	}

	at := s.now()
	if err := s.store.ResolveSwap(ctx, swapID, models.SwapAccepted, staffID, at); err != nil {
		return nil, errors.ClassifyStoreError("resolve swap", err)
	}

	shift.StaffID = staffID
	shift.UpdatedAt = at
	if err := s.store.UpdateShift(ctx, shift); err != nil {
		return nil, errors.ClassifyStoreError("reassign shift", err)
	}

	swap.Status = models.SwapAccepted
	swap.ToStaffID = staffID
	swap.ResolvedAt = &at
	return swap, nil
}

func (s *scheduleService) CancelSwap(ctx context.Context, swapID, staffID string) error {
	swap, err := s.store.GetSwap(ctx, swapID)
	if err != nil {
		return errors.ClassifyStoreError("load swap", err)
	}
	if swap == nil {
		return errors.NewNotFoundError("swap", swapID)
	}
	if swap.FromStaffID != staffID {
		return errors.NewPermissionError("only the offerer may cancel a swap")
	}
	if swap.Status != models.SwapOpen {
		return errors.NewValidationError("id", fmt.Sprintf("swap is already %s", swap.Status))
	}
	if err := s.store.ResolveSwap(ctx, swapID, models.SwapCancelled, "", s.now()); err != nil {
		return errors.ClassifyStoreError("cancel swap", err)
	}
	return nil
}

func (s *scheduleService) OpenSwaps(ctx context.Context) ([]models.ShiftSwap, error) {
	swaps, err := s.store.OpenSwaps(ctx)
	if err != nil {
		return nil, errors.ClassifyStoreError("load open swaps", err)
	}
	return swaps, nil
}

func conflictError(conflicts []models.ShiftConflict) error {
	first := conflicts[0]
	return errors.NewValidationError("schedule", first.Description)
}
