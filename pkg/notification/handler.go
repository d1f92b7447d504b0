package notification

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/klokku/cycleledger/internal/rest"
)

type NotificationDTO struct {
	Id        int64             `json:"id"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Type      string            `json:"type"`
	IsRead    bool              `json:"isRead"`
	Data      map[string]string `json:"data"`
	CreatedAt time.Time         `json:"createdAt"`
}

type PageMetaDTO struct {
	Page        int `json:"page"`
	Limit       int `json:"limit"`
	Total       int `json:"total"`
	TotalPages  int `json:"totalPages"`
	UnreadCount int `json:"unreadCount"`
}

type PageDTO struct {
	Data []NotificationDTO `json:"data"`
	Meta PageMetaDTO       `json:"meta"`
}

type UnreadCountDTO struct {
	UnreadCount int `json:"unreadCount"`
}

type MarkedReadDTO struct {
	Updated int64 `json:"updated"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// List godoc
// @Summary List notifications of the current user, newest first
// @Tags Notification
// @Produce json
// @Param page query int false "Page, 1 when omitted"
// @Param limit query int false "Page size, 20 when omitted"
// @Success 200 {object} PageDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid page"
// @Router /api/notification [get]
// @Security XUserId
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, err := intParam(r, "page", 1)
	if err != nil {
		rest.WriteError(w, ErrInvalidPage)
		return
	}
	limit, err := intParam(r, "limit", DefaultPageSize)
	if err != nil {
		rest.WriteError(w, ErrInvalidPage)
		return
	}
	result, err := h.service.List(r.Context(), page, limit)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	data := make([]NotificationDTO, 0, len(result.Notifications))
	for _, n := range result.Notifications {
		data = append(data, toDTO(n))
	}
	rest.WriteJSON(w, http.StatusOK, PageDTO{
		Data: data,
		Meta: PageMetaDTO{
			Page:        result.Page,
			Limit:       result.Limit,
			Total:       result.Total,
			TotalPages:  result.TotalPages,
			UnreadCount: result.UnreadCount,
		},
	})
}

// UnreadCount godoc
// @Summary Number of unread notifications
// @Tags Notification
// @Produce json
// @Success 200 {object} UnreadCountDTO
// @Router /api/notification/unread-count [get]
// @Security XUserId
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.UnreadCount(r.Context())
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, UnreadCountDTO{UnreadCount: count})
}

// MarkAllRead godoc
// @Summary Mark every notification as read
// @Tags Notification
// @Produce json
// @Success 200 {object} MarkedReadDTO
// @Router /api/notification/read-all [patch]
// @Security XUserId
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	updated, err := h.service.MarkAllRead(r.Context())
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, MarkedReadDTO{Updated: updated})
}

// Get godoc
// @Summary Get a notification and mark it as read
// @Tags Notification
// @Produce json
// @Param id path int true "Notification ID"
// @Success 200 {object} NotificationDTO
// @Failure 404 {object} rest.ErrorResponse "Notification not found"
// @Router /api/notification/{id} [get]
// @Security XUserId
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		rest.WriteBadRequest(w, "Invalid notification id")
		return
	}
	n, err := h.service.Get(r.Context(), id)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toDTO(n))
}

// Delete godoc
// @Summary Delete a notification
// @Tags Notification
// @Param id path int true "Notification ID"
// @Success 204
// @Failure 404 {object} rest.ErrorResponse "Notification not found"
// @Router /api/notification/{id} [delete]
// @Security XUserId
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		rest.WriteBadRequest(w, "Invalid notification id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		rest.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return fallback, nil
	}
	return strconv.Atoi(value)
}

func toDTO(n Notification) NotificationDTO {
	return NotificationDTO{
		Id:        n.Id,
		Title:     n.Title,
		Body:      n.Body,
		Type:      string(n.Type),
		IsRead:    n.IsRead,
		Data:      n.Data,
		CreatedAt: n.CreatedAt,
	}
}
