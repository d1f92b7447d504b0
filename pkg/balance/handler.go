package balance

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/klokku/cycleledger/internal/rest"
	"github.com/klokku/cycleledger/pkg/ledger"
	"github.com/klokku/cycleledger/pkg/period"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type AccountDTO struct {
	Id          int              `json:"id"`
	Name        string           `json:"name"`
	Amount      decimal.Decimal  `json:"amount"`
	Currency    string           `json:"currency"`
	CreditLimit *decimal.Decimal `json:"creditLimit,omitempty"`
	AccountType string           `json:"accountType"`
	Icon        string           `json:"icon"`
	Color       string           `json:"color"`
	Notes       string           `json:"notes"`
	LastUpdated time.Time        `json:"lastUpdated"`
}

type AccountPatchDTO struct {
	Name        *string          `json:"name"`
	Amount      *decimal.Decimal `json:"amount"`
	Currency    *string          `json:"currency"`
	CreditLimit *decimal.Decimal `json:"creditLimit"`
	AccountType *string          `json:"accountType"`
	Icon        *string          `json:"icon"`
	Color       *string          `json:"color"`
	Notes       *string          `json:"notes"`
}

type TotalsDTO struct {
	Accounts      []AccountDTO    `json:"accounts"`
	TotalBalance  decimal.Decimal `json:"totalBalance"`
	TotalAccounts int             `json:"totalAccounts"`
}

type EntryRequestDTO struct {
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Date           string          `json:"date"`
	Time           string          `json:"time"`
	FillForAllYear bool            `json:"fillForAllYear"`
}

type EntryDTO struct {
	Id             int64           `json:"id"`
	AccountId      int             `json:"accountId"`
	Kind           string          `json:"kind"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Date           time.Time       `json:"date"`
	Time           string          `json:"time,omitempty"`
	FillForAllYear bool            `json:"fillForAllYear"`
}

type PostingDTO struct {
	Entry   EntryDTO   `json:"entry"`
	Account AccountDTO `json:"account"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// CreateAccount godoc
// @Summary Create an account
// @Tags Account
// @Accept json
// @Produce json
// @Param account body AccountDTO true "Account"
// @Success 201 {object} AccountDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Router /api/account [post]
// @Security XUserId
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var dto AccountDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteBadRequest(w, "Invalid request body format")
		return
	}
	created, err := h.service.CreateAccount(r.Context(), dtoToAccount(dto))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, accountToDTO(created))
}

// ListAccounts godoc
// @Summary List accounts of the current user
// @Tags Account
// @Produce json
// @Success 200 {array} AccountDTO
// @Router /api/account [get]
// @Security XUserId
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, accountsToDTO(accounts))
}

// Totals godoc
// @Summary Accounts with their total balance
// @Tags Account
// @Produce json
// @Success 200 {object} TotalsDTO
// @Router /api/account/total [get]
// @Security XUserId
func (h *Handler) Totals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.service.Totals(r.Context())
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, TotalsDTO{
		Accounts:      accountsToDTO(totals.Accounts),
		TotalBalance:  totals.TotalBalance,
		TotalAccounts: totals.TotalAccounts,
	})
}

// GetAccount godoc
// @Summary Get an account
// @Tags Account
// @Produce json
// @Param id path int true "Account ID"
// @Success 200 {object} AccountDTO
// @Failure 404 {object} rest.ErrorResponse "Account not found"
// @Router /api/account/{id} [get]
// @Security XUserId
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := accountId(w, r)
	if !ok {
		return
	}
	account, err := h.service.GetAccount(r.Context(), id)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, accountToDTO(account))
}

// UpdateAccount godoc
// @Summary Update an account, omitted fields stay unchanged
// @Tags Account
// @Accept json
// @Produce json
// @Param id path int true "Account ID"
// @Param account body AccountPatchDTO true "Changed fields"
// @Success 200 {object} AccountDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 404 {object} rest.ErrorResponse "Account not found"
// @Router /api/account/{id} [put]
// @Security XUserId
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := accountId(w, r)
	if !ok {
		return
	}
	var dto AccountPatchDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteBadRequest(w, "Invalid request body format")
		return
	}
	updated, err := h.service.UpdateAccount(r.Context(), id, AccountPatch(dto))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, accountToDTO(updated))
}

// DeleteAccount godoc
// @Summary Delete an account together with its entries
// @Tags Account
// @Param id path int true "Account ID"
// @Success 204
// @Failure 404 {object} rest.ErrorResponse "Account not found"
// @Router /api/account/{id} [delete]
// @Security XUserId
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := accountId(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteAccount(r.Context(), id); err != nil {
		rest.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddIncome godoc
// @Summary Post an income entry to an account
// @Tags Account
// @Accept json
// @Produce json
// @Param id path int true "Account ID"
// @Param entry body EntryRequestDTO true "Income"
// @Success 201 {object} PostingDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 404 {object} rest.ErrorResponse "Account not found"
// @Router /api/account/{id}/income [post]
// @Security XUserId
func (h *Handler) AddIncome(w http.ResponseWriter, r *http.Request) {
	h.post(w, r, h.service.AddIncome)
}

// AddSpending godoc
// @Summary Post a spending entry to an account
// @Tags Account
// @Accept json
// @Produce json
// @Param id path int true "Account ID"
// @Param entry body EntryRequestDTO true "Spending"
// @Success 201 {object} PostingDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 404 {object} rest.ErrorResponse "Account not found"
// @Failure 422 {object} rest.ErrorResponse "Insufficient balance"
// @Router /api/account/{id}/spending [post]
// @Security XUserId
func (h *Handler) AddSpending(w http.ResponseWriter, r *http.Request) {
	h.post(w, r, h.service.AddSpending)
}

type postFunc func(ctx context.Context, accountId int, input EntryInput) (Posting, error)

func (h *Handler) post(w http.ResponseWriter, r *http.Request, post postFunc) {
	id, ok := accountId(w, r)
	if !ok {
		return
	}
	var dto EntryRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteBadRequest(w, "Invalid request body format")
		return
	}
	input := EntryInput{
		Name:           dto.Name,
		Category:       dto.Category,
		Amount:         dto.Amount,
		Currency:       dto.Currency,
		Time:           dto.Time,
		FillForAllYear: dto.FillForAllYear,
	}
	if dto.Date != "" {
		date, err := period.ParseDate(dto.Date)
		if err != nil {
			rest.WriteError(w, err)
			return
		}
		input.Date = date
	}

	posting, err := post(r.Context(), id, input)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	log.Debugf("posted %s entry %d to account %d", posting.Entry.Kind, posting.Entry.Id, id)
	rest.WriteJSON(w, http.StatusCreated, PostingDTO{
		Entry:   EntryToDTO(posting.Entry),
		Account: accountToDTO(posting.Account),
	})
}

func accountId(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		rest.WriteBadRequest(w, "Invalid account id")
		return 0, false
	}
	return id, true
}

func EntryToDTO(entry ledger.Entry) EntryDTO {
	return EntryDTO{
		Id:             entry.Id,
		AccountId:      entry.AccountId,
		Kind:           string(entry.Kind),
		Name:           entry.Name,
		Category:       entry.Category,
		Amount:         entry.Amount,
		Currency:       entry.Currency,
		Date:           entry.Date,
		Time:           entry.Time,
		FillForAllYear: entry.FillForAllYear,
	}
}

func accountToDTO(account Account) AccountDTO {
	return AccountDTO{
		Id:          account.Id,
		Name:        account.Name,
		Amount:      account.Amount,
		Currency:    account.Currency,
		CreditLimit: account.CreditLimit,
		AccountType: account.AccountType,
		Icon:        account.Icon,
		Color:       account.Color,
		Notes:       account.Notes,
		LastUpdated: account.LastUpdated,
	}
}

func accountsToDTO(accounts []Account) []AccountDTO {
	dtos := make([]AccountDTO, 0, len(accounts))
	for _, account := range accounts {
		dtos = append(dtos, accountToDTO(account))
	}
	return dtos
}

func dtoToAccount(dto AccountDTO) Account {
	return Account{
		Name:        dto.Name,
		Amount:      dto.Amount,
		Currency:    dto.Currency,
		CreditLimit: dto.CreditLimit,
		AccountType: dto.AccountType,
		Icon:        dto.Icon,
		Color:       dto.Color,
		Notes:       dto.Notes,
	}
}
