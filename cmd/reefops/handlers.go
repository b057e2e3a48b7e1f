package main

import (
	"net/http"
	"time"

	"reefops/internal/constants"
	"reefops/internal/errors"
	"reefops/internal/models"
	"reefops/internal/service"
	"reefops/internal/validation"

	"github.com/gorilla/mux"
)

func (s *Server) handleSendMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req service.SendRequest
		if err := decodeBody(r, &req); err != nil {
			s.respondError(w, err)
			return
		}
		if req.SenderID == "" {
			req.SenderID = s.callerID(r)
		}

		msg, err := s.messages.Send(r.Context(), req)
		if err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusCreated, msg)
	}
}

// handleSendFile accepts a multipart form with a "file" part and the send
// fields as form values.
func (s *Server) handleSendFile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(constants.MaxFileSizeBytes); err != nil {
			s.respondError(w, errors.NewValidationError("file", "invalid multipart form"))
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			s.respondError(w, errors.NewValidationError("file", "file part is required"))
			return
		}
		defer func() { _ = file.Close() }()

		req := service.SendRequest{
			Type:        models.MessageType(r.FormValue("type")),
			ScopeID:     r.FormValue("scopeId"),
			SenderID:    r.FormValue("senderId"),
			RecipientID: r.FormValue("recipientId"),
			Text:        r.FormValue("text"),
		}
		if req.SenderID == "" {
			req.SenderID = s.callerID(r)
		}

		msg, err := s.messages.SendWithFile(r.Context(), req, service.FileUpload{
			Name:      header.Filename,
			SizeBytes: header.Size,
			Reader:    file,
		})
		if err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusCreated, msg)
	}
}

func (s *Server) handleReply() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parentID := mux.Vars(r)["id"]

		var req service.SendRequest
		if err := decodeBody(r, &req); err != nil {
			s.respondError(w, err)
			return
		}
		if req.SenderID == "" {
			req.SenderID = s.callerID(r)
		}

		msg, err := s.messages.SendReply(r.Context(), req, parentID)
		if err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusCreated, msg)
	}
}

// handleListMessages serves one page of root messages, newest window by
// default or the page before ?beforeId= when paginating backwards.
func (s *Server) handleListMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgType := models.MessageType(r.URL.Query().Get("type"))
		scopeID := r.URL.Query().Get("scopeId")
		if !msgType.IsValid() || scopeID == "" {
			s.respondError(w, errors.NewValidationError("query", "type and scopeId are required"))
			return
		}
		msgs, hasMore, err := s.messages.FetchOlder(r.Context(), msgType, scopeID,
			s.callerID(r), r.URL.Query().Get("beforeId"))
		if err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusOK, map[string]interface{}{
			"messages": msgs,
			"hasMore":  hasMore,
		})
	}
}

func (s *Server) handleThread() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		thread, err := s.messages.Thread(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusOK, map[string]interface{}{"messages": thread})
	}
}

func (s *Server) handleEditMessage() http.HandlerFunc {
	type editRequest struct {
		Text string `json:"text"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req editRequest
		if err := decodeBody(r, &req); err != nil {
			s.respondError(w, err)
			return
		}

		msg, err := s.messages.EditMessage(r.Context(), mux.Vars(r)["id"], req.Text, s.callerID(r))
		if err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusOK, msg)
	}
}

func (s *Server) handleMarkRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msg, err := s.messages.MarkRead(r.Context(), mux.Vars(r)["id"], s.callerID(r))
		if err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusOK, msg)
	}
}

func (s *Server) handleReaction() http.HandlerFunc {
	type reactionRequest struct {
		Emoji string `json:"emoji"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req reactionRequest
		if err := decodeBody(r, &req); err != nil {
			s.respondError(w, err)
			return
		}

		msg, err := s.messages.AddReaction(r.Context(), mux.Vars(r)["id"], s.callerID(r), req.Emoji)
		if err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusOK, msg)
	}
}

func (s *Server) handleDeleteMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.messages.SoftDelete(r.Context(), mux.Vars(r)["id"], s.callerID(r)); err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusNoContent, nil)
	}
}

func (s *Server) handleDeleteChat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.messages.DeleteChat(r.Context(), mux.Vars(r)["id"], s.callerID(r)); err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusNoContent, nil)
	}
}

func (s *Server) handleListNotifications() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		notifications, err := s.scopes.UnseenNotifications(r.Context(), s.callerID(r))
		if err != nil {
			s.respondError(w, errors.ClassifyStoreError("list notifications", err))
			return
		}
		s.respond(w, http.StatusOK, map[string]interface{}{"notifications": notifications})
	}
}

func (s *Server) handleMarkNotificationsSeen() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.scopes.MarkNotificationsSeen(r.Context(), s.callerID(r), time.Now().UTC()); err != nil {
			s.respondError(w, errors.ClassifyStoreError("mark notifications seen", err))
			return
		}
		s.respond(w, http.StatusNoContent, nil)
	}
}

func (s *Server) handleSearch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgType := models.MessageType(r.URL.Query().Get("type"))
		scopeID := r.URL.Query().Get("scopeId")
		query := r.URL.Query().Get("q")

		matches, err := s.messages.Search(r.Context(), msgType, scopeID, s.callerID(r), query)
		if err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusOK, map[string]interface{}{"messages": matches})
	}
}

func (s *Server) handleCreateShift() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.ShiftInput
		if err := decodeBody(r, &in); err != nil {
			s.respondError(w, err)
			return
		}

		shift, err := s.schedule.CreateShift(r.Context(), in)
		if err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusCreated, shift)
	}
}

func (s *Server) handleUpdateShift() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.ShiftInput
		if err := decodeBody(r, &in); err != nil {
			s.respondError(w, err)
			return
		}

		shift, err := s.schedule.UpdateShift(r.Context(), mux.Vars(r)["id"], in)
		if err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusOK, shift)
	}
}

func (s *Server) handleDeleteShift() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.schedule.DeleteShift(r.Context(), mux.Vars(r)["id"]); err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusNoContent, nil)
	}
}

func (s *Server) handleListShifts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := r.URL.Query().Get("start")
		end := r.URL.Query().Get("end")

		shifts, err := s.schedule.ShiftsBetween(r.Context(), start, end)
		if err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusOK, map[string]interface{}{"shifts": shifts})
	}
}

func (s *Server) handleCheckConflicts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if err := validation.ValidateDate("date", q.Get("date")); err != nil {
			s.respondError(w, err)
			return
		}
		if err := validation.ValidateTimeRange(q.Get("start"), q.Get("end")); err != nil {
			s.respondError(w, err)
			return
		}

		conflicts, err := s.schedule.CheckShiftConflicts(r.Context(),
			q.Get("staffId"), q.Get("date"), q.Get("start"), q.Get("end"), q.Get("excludeShiftId"))
		if err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusOK, map[string]interface{}{"conflicts": conflicts})
	}
}

func (s *Server) handleRequestTimeOff() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.TimeOffInput
		if err := decodeBody(r, &in); err != nil {
			s.respondError(w, err)
			return
		}
		if in.StaffID == "" {
			in.StaffID = s.callerID(r)
		}

		req, err := s.schedule.RequestTimeOff(r.Context(), in)
		if err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusCreated, req)
	}
}

func (s *Server) handleListTimeOff() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		staffID := r.URL.Query().Get("staffId")
		if staffID == "" {
			staffID = s.callerID(r)
		}

		reqs, err := s.schedule.StaffTimeOff(r.Context(), staffID)
		if err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusOK, map[string]interface{}{"requests": reqs})
	}
}

func (s *Server) handleDecideTimeOff() http.HandlerFunc {
	type decisionRequest struct {
		Approve bool `json:"approve"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req decisionRequest
		if err := decodeBody(r, &req); err != nil {
			s.respondError(w, err)
			return
		}

		decided, err := s.schedule.DecideTimeOff(r.Context(), mux.Vars(r)["id"], req.Approve, s.callerID(r))
		if err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusOK, decided)
	}
}

func (s *Server) handleOfferSwap() http.HandlerFunc {
	type swapRequest struct {
		ShiftID string `json:"shiftId"`
		Note    string `json:"note"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req swapRequest
		if err := decodeBody(r, &req); err != nil {
			s.respondError(w, err)
			return
		}

		swap, err := s.schedule.OfferSwap(r.Context(), req.ShiftID, s.callerID(r), req.Note)
		if err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusCreated, swap)
	}
}

func (s *Server) handleListSwaps() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		swaps, err := s.schedule.OpenSwaps(r.Context())
		if err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusOK, map[string]interface{}{"swaps": swaps})
	}
}

func (s *Server) handleAcceptSwap() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		swap, err := s.schedule.AcceptSwap(r.Context(), mux.Vars(r)["id"], s.callerID(r))
		if err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusOK, swap)
	}
}

func (s *Server) handleCancelSwap() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.schedule.CancelSwap(r.Context(), mux.Vars(r)["id"], s.callerID(r)); err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusNoContent, nil)
	}
}
