// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shardgate Contributors

// Package httpapi exposes the account and shard services over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/samber/oops"

	"github.com/shardgate/shardgate/internal/account"
	"github.com/shardgate/shardgate/internal/shard"
	"github.com/shardgate/shardgate/internal/store"
)

// Handler holds the services behind the HTTP API.
type Handler struct {
	accounts   *account.Service
	tokens     *account.TokenService
	characters shard.CharacterRepository
	guilds     shard.GuildRepository
	logger     *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(
	accounts *account.Service,
	tokens *account.TokenService,
	characters shard.CharacterRepository,
	guilds shard.GuildRepository,
	logger *slog.Logger,
) (*Handler, error) {
	if accounts == nil {
		return nil, oops.Errorf("account service is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token service is required")
	}
	if characters == nil {
		return nil, oops.Errorf("character repository is required")
	}
	if guilds == nil {
		return nil, oops.Errorf("guild repository is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		accounts:   accounts,
		tokens:     tokens,
		characters: characters,
		guilds:     guilds,
		logger:     logger,
	}, nil
}

// Routes registers all API routes on the given router.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/api/login", h.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/register", h.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/change-password", h.requireAuth(h.handleChangePassword)).Methods(http.MethodPost)
	r.HandleFunc("/api/characters/{id:[0-9]+}", h.handleCharacter).Methods(http.MethodGet)
	r.HandleFunc("/api/players/top", h.handleTopPlayers).Methods(http.MethodGet)
	r.HandleFunc("/api/guilds/top", h.handleTopGuilds).Methods(http.MethodGet)
	r.HandleFunc("/api/guilds/{id:[0-9]+}", h.handleGuild).Methods(http.MethodGet)
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token          string `json:"token"`
	AccountID      int64  `json:"account_id"`
	LoginName      string `json:"login_name"`
	PrivilegeLevel int16  `json:"privilege_level"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.accounts.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, loginResponse{
		Token:          result.Token,
		AccountID:      result.AccountID,
		LoginName:      result.LoginName,
		PrivilegeLevel: result.PrivilegeLevel,
	})
}

type registerRequest struct {
	Login    string  `json:"login"`
	Password string  `json:"password"`
	Email    *string `json:"email,omitempty"`
}

type registerResponse struct {
	AccountID int64  `json:"account_id"`
	LoginName string `json:"login_name"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	acct, err := h.accounts.Register(r.Context(), req.Login, req.Password, req.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, registerResponse{
		AccountID: acct.ID,
		LoginName: acct.LoginName,
	})
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		h.writeError(w, r, oops.Code("TOKEN_INVALID").Errorf("missing token claims"))
		return
	}

	var req changePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.accounts.ChangePassword(r.Context(), claims.AccountID, req.OldPassword, req.NewPassword); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type itemResponse struct {
	Slot      int   `json:"slot"`
	RefItemID int64 `json:"ref_item_id"`
	OptLevel  int   `json:"opt_level"`
	Variance  int64 `json:"variance"`
}

type guildSummaryResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Level      int    `json:"level"`
	ItemPoints int64  `json:"item_points"`
}

type characterResponse struct {
	ID         int64                 `json:"id"`
	Name       string                `json:"name"`
	Level      int                   `json:"level"`
	Strength   int                   `json:"strength"`
	Intellect  int                   `json:"intellect"`
	HP         int                   `json:"hp"`
	MP         int                   `json:"mp"`
	ItemPoints int64                 `json:"item_points"`
	Region     int                   `json:"region"`
	PosX       float32               `json:"pos_x"`
	PosY       float32               `json:"pos_y"`
	PosZ       float32               `json:"pos_z"`
	Guild      *guildSummaryResponse `json:"guild,omitempty"`
	Equipment  []itemResponse        `json:"equipment"`
	Avatar     []itemResponse        `json:"avatar"`
}

func (h *Handler) handleCharacter(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	detail, err := h.characters.GetDetail(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := characterResponse{
		ID:         detail.ID,
		Name:       detail.Name,
		Level:      detail.Level,
		Strength:   detail.Strength,
		Intellect:  detail.Intellect,
		HP:         detail.HP,
		MP:         detail.MP,
		ItemPoints: detail.ItemPoints,
		Region:     detail.Region,
		PosX:       detail.PosX,
		PosY:       detail.PosY,
		PosZ:       detail.PosZ,
		Equipment:  toItemResponses(detail.Equipment),
		Avatar:     toItemResponses(detail.Avatar),
	}
	if detail.Guild != nil {
		resp.Guild = &guildSummaryResponse{
			ID:         detail.Guild.ID,
			Name:       detail.Guild.Name,
			Level:      detail.Guild.Level,
			ItemPoints: detail.Guild.ItemPoints,
		}
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type leaderboardEntryResponse struct {
	Rank        int    `json:"rank"`
	CharacterID int64  `json:"character_id"`
	Name        string `json:"name"`
	Level       int    `json:"level"`
	ItemPoints  int64  `json:"item_points"`
}

func (h *Handler) handleTopPlayers(w http.ResponseWriter, r *http.Request) {
	entries, err := h.characters.TopPlayers(r.Context(), h.limit(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := make([]leaderboardEntryResponse, 0, len(entries))
	for i, e := range entries {
		resp = append(resp, leaderboardEntryResponse{
			Rank:        i + 1,
			CharacterID: e.CharacterID,
			Name:        e.Name,
			Level:       e.Level,
			ItemPoints:  e.ItemPoints,
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleTopGuilds(w http.ResponseWriter, r *http.Request) {
	guilds, err := h.guilds.TopGuilds(r.Context(), h.limit(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := make([]guildSummaryResponse, 0, len(guilds))
	for _, g := range guilds {
		resp = append(resp, guildSummaryResponse{
			ID:         g.ID,
			Name:       g.Name,
			Level:      g.Level,
			ItemPoints: g.ItemPoints,
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type guildMemberResponse struct {
	CharacterID  int64     `json:"character_id"`
	CharName     string    `json:"char_name"`
	CharLevel    int       `json:"char_level"`
	Permission   int       `json:"permission"`
	Contribution int64     `json:"contribution"`
	IsMaster     bool      `json:"is_master"`
	JoinedAt     time.Time `json:"joined_at"`
}

type guildResponse struct {
	guildSummaryResponse
	Master  *guildMemberResponse  `json:"master,omitempty"`
	Members []guildMemberResponse `json:"members"`
}

func (h *Handler) handleGuild(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	detail, err := h.guilds.GetDetail(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := guildResponse{
		guildSummaryResponse: guildSummaryResponse{
			ID:         detail.ID,
			Name:       detail.Name,
			Level:      detail.Level,
			ItemPoints: detail.ItemPoints,
		},
		Members: make([]guildMemberResponse, 0, len(detail.Members)),
	}
	for _, m := range detail.Members {
		resp.Members = append(resp.Members, toMemberResponse(m))
	}
	if detail.Master != nil {
		master := toMemberResponse(*detail.Master)
		resp.Master = &master
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func toItemResponses(items []shard.Item) []itemResponse {
	out := make([]itemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, itemResponse{
			Slot:      it.Slot,
			RefItemID: it.RefItemID,
			OptLevel:  it.OptLevel,
			Variance:  it.Variance,
		})
	}
	return out
}

func toMemberResponse(m shard.GuildMember) guildMemberResponse {
	return guildMemberResponse{
		CharacterID:  m.CharacterID,
		CharName:     m.CharName,
		CharLevel:    m.CharLevel,
		Permission:   m.Permission,
		Contribution: m.Contribution,
		IsMaster:     m.IsMaster,
		JoinedAt:     m.JoinedAt,
	}
}

// decode parses a JSON request body, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeErrorBody(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return false
	}
	return true
}

// pathID parses the {id} route variable, writing a 400 on failure.
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.writeErrorBody(w, http.StatusBadRequest, errorBody{Error: "invalid id"})
		return 0, false
	}
	return id, true
}

// limit parses an optional ?limit= query parameter; 0 means default.
func (h *Handler) limit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// writeError maps a service error to an HTTP response. Internal detail
// never leaks: 5xx bodies are opaque, and unknown-account vs
// wrong-password responses are byte-identical.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	// Readiness is a sentinel, not a code: repositories wrap
	// store.ErrNotReady with context and the chain stays Is-able.
	if errors.Is(err, store.ErrNotReady) {
		h.writeErrorBody(w, http.StatusServiceUnavailable, errorBody{Error: "service unavailable"})
		return
	}

	code := account.ErrorCode(err)

	var status int
	body := errorBody{}

	switch code {
	case "AUTH_INVALID_REQUEST":
		status = http.StatusBadRequest
		body.Error = "username and password required"
	case "AUTH_INVALID_LOGIN_NAME":
		status = http.StatusBadRequest
		body.Error = "invalid login name"
		body.Field = "login"
	case "AUTH_OLD_PASSWORD_MISMATCH":
		status = http.StatusBadRequest
		body.Error = "old password incorrect"
	case "AUTH_INVALID_CREDENTIALS":
		status = http.StatusUnauthorized
		body.Error = "invalid username or password"
	case "TOKEN_EXPIRED", "TOKEN_INVALID":
		status = http.StatusUnauthorized
		body.Error = "invalid or expired token"
	case "AUTH_ACCOUNT_DISABLED":
		status = http.StatusForbidden
		body.Error = "account is disabled or inactive"
	case "AUTH_REGISTER_CONFLICT":
		status = http.StatusConflict
		switch {
		case errors.Is(err, account.ErrEmailTaken):
			body.Error = "email already in use"
			body.Field = "email"
		default:
			body.Error = "login name already in use"
			body.Field = "login"
		}
	case "CHARACTER_NOT_FOUND", "GUILD_NOT_FOUND":
		status = http.StatusNotFound
		body.Error = "not found"
	case "STORE_UNAVAILABLE":
		status = http.StatusServiceUnavailable
		body.Error = "service unavailable"
	default:
		status = http.StatusInternalServerError
		body.Error = "internal server error"
	}

	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"code", code,
			"error", err)
	}

	h.writeErrorBody(w, status, body)
}

func (h *Handler) writeErrorBody(w http.ResponseWriter, status int, body errorBody) {
	h.writeJSON(w, status, body)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
