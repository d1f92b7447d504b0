package user

import (
	"encoding/json"
	"net/http"

	"github.com/klokku/cycleledger/internal/rest"
	log "github.com/sirupsen/logrus"
)

type UserDTO struct {
	Id          int         `json:"id"`
	Uid         string      `json:"uid"`
	Username    string      `json:"username"`
	DisplayName string      `json:"displayName"`
	Status      string      `json:"status"`
	Settings    SettingsDTO `json:"settings"`
}

type SettingsDTO struct {
	Timezone       string `json:"timezone"`
	MonthStartDate int    `json:"monthStartDate"`
	Currency       string `json:"currency"`
	PushToken      string `json:"pushToken,omitempty"`
}

type Handler struct {
	userService Service
}

func NewHandler(userService Service) *Handler {
	return &Handler{userService: userService}
}

// CurrentUser godoc
// @Summary Get the current user
// @Tags User
// @Produce json
// @Success 200 {object} UserDTO
// @Failure 403 {object} rest.ErrorResponse "User not found"
// @Router /api/user/current [get]
// @Security XUserId
func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.userService.GetCurrentUser(r.Context())
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, userToDTO(u))
}

// CreateUser godoc
// @Summary Create a user
// @Tags User
// @Accept json
// @Produce json
// @Param user body UserDTO true "User"
// @Success 201 {object} UserDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 409 {object} rest.ErrorResponse "Username taken"
// @Router /api/user [post]
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating new user")
	var dto UserDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteBadRequest(w, "Invalid request body format")
		return
	}
	created, err := h.userService.CreateUser(r.Context(), dtoToUser(dto))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, userToDTO(created))
}

// UpdateUser godoc
// @Summary Update the current user's profile and cycle settings
// @Tags User
// @Accept json
// @Produce json
// @Param user body UserDTO true "User"
// @Success 200 {object} UserDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Router /api/user/current [put]
// @Security XUserId
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var dto UserDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteBadRequest(w, "Invalid request body format")
		return
	}
	updated, err := h.userService.UpdateUser(r.Context(), dtoToUser(dto))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, userToDTO(updated))
}

func userToDTO(u User) UserDTO {
	return UserDTO{
		Id:          u.Id,
		Uid:         u.Uid,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Status:      string(u.Status),
		Settings: SettingsDTO{
			Timezone:       u.Settings.Timezone,
			MonthStartDate: u.Settings.MonthStartDate,
			Currency:       u.Settings.Currency,
		},
	}
}

func dtoToUser(dto UserDTO) User {
	return User{
		Uid:         dto.Uid,
		Username:    dto.Username,
		DisplayName: dto.DisplayName,
		Settings: Settings{
			Timezone:       dto.Settings.Timezone,
			MonthStartDate: dto.Settings.MonthStartDate,
			Currency:       dto.Settings.Currency,
			PushToken:      dto.Settings.PushToken,
		},
	}
}
