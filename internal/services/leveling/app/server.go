// Package app exposes the leveling service over HTTP.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"google.golang.org/grpc/codes"

	apperrors "github.com/chatrhq/chatr/internal/platform/errors"
	"github.com/chatrhq/chatr/internal/services/leveling/domain"
	"github.com/chatrhq/chatr/internal/services/leveling/render"
	"github.com/chatrhq/chatr/internal/services/leveling/storage"
	"github.com/chatrhq/chatr/internal/services/leveling/sync"
)

// Store aggregates the persistence interfaces the HTTP layer reads from.
type Store interface {
	storage.MemberStore
	storage.CommunityStore
	storage.RoleStore
	storage.HistoryStore
	storage.StatsStore
}

// Server routes leveling API requests to the engine and store.
type Server struct {
	engine   *domain.Service
	store    Store
	importer *sync.Importer
	registry *sync.Registry
	tokens   TokenConfig
	renderer *render.Renderer
	mux      *http.ServeMux
}

// NewServer wires the leveling HTTP API.
func NewServer(engine *domain.Service, store Store, importer *sync.Importer, registry *sync.Registry, tokens TokenConfig) *Server {
	s := &Server{
		engine:   engine,
		store:    store,
		importer: importer,
		registry: registry,
		tokens:   tokens,
		renderer: render.NewEnglishRenderer(),
		mux:      http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	// Reads are open, matching the chat clients that render leaderboards
	// without credentials.
	s.mux.HandleFunc(http.MethodGet+" /communities/{community}", s.handleCommunityGet)
	s.mux.HandleFunc(http.MethodGet+" /communities/{community}/members/{member}", s.handleMemberGet)
	s.mux.HandleFunc(http.MethodGet+" /communities/{community}/members/{member}/profile", s.handleMemberProfile)
	s.mux.HandleFunc(http.MethodGet+" /communities/{community}/members/{member}/history", s.handleMemberHistory)
	s.mux.HandleFunc(http.MethodGet+" /communities/{community}/roles", s.handleRolesList)
	s.mux.HandleFunc(http.MethodGet+" /stats", s.handleStats)
	s.mux.HandleFunc(http.MethodGet+" /up", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Everything that mutates requires a service token.
	s.mux.HandleFunc(http.MethodPost+" /communities/{community}", s.requireToken(s.handleCommunityUpsert))
	s.mux.HandleFunc(http.MethodDelete+" /communities/{community}", s.requireToken(s.handleCommunityDelete))
	s.mux.HandleFunc(http.MethodPost+" /communities/{community}/members/{member}/xp", s.requireToken(s.handleIngest))
	s.mux.HandleFunc(http.MethodDelete+" /communities/{community}/members/{member}", s.requireToken(s.handleMemberDelete))

	s.mux.HandleFunc(http.MethodGet+" /admin/communities-with-updates", s.requireToken(s.handleCommunitiesWithUpdates))
	s.mux.HandleFunc(http.MethodGet+" /admin/communities/{community}/cooldown", s.requireToken(s.handleCooldownGet))
	s.mux.HandleFunc(http.MethodPut+" /admin/communities/{community}/cooldown", s.requireToken(s.handleCooldownSet))
	s.mux.HandleFunc(http.MethodGet+" /admin/communities/{community}/updates", s.requireToken(s.handleUpdatesGet))
	s.mux.HandleFunc(http.MethodPut+" /admin/communities/{community}/updates", s.requireToken(s.handleUpdatesSet))
	s.mux.HandleFunc(http.MethodPut+" /admin/communities/{community}/members/{member}/xp", s.requireToken(s.handleSetXP))
	s.mux.HandleFunc(http.MethodPut+" /admin/communities/{community}/members/{member}/level", s.requireToken(s.handleSetLevel))
	s.mux.HandleFunc(http.MethodPut+" /admin/communities/{community}/roles", s.requireToken(s.handleRolePut))
	s.mux.HandleFunc(http.MethodDelete+" /admin/communities/{community}/roles/{role}", s.requireToken(s.handleRoleDelete))
	s.mux.HandleFunc(http.MethodPost+" /admin/communities/{community}/sync/{source}", s.requireToken(s.handleSync))
}

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("encode response: %v", err)
	}
}

// writeError maps domain error codes onto HTTP statuses through the shared
// gRPC taxonomy.
func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	status := http.StatusInternalServerError
	switch code.GRPCCode() {
	case codes.InvalidArgument:
		status = http.StatusBadRequest
	case codes.NotFound:
		status = http.StatusNotFound
	case codes.FailedPrecondition:
		status = http.StatusUnprocessableEntity
	case codes.Unavailable:
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
	}
	body := errorBody{Message: "Internal server error"}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		body = errorBody{Message: appErr.Message, Code: string(appErr.Code)}
	}
	writeJSON(w, status, body)
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Illegal request"})
		return false
	}
	return true
}

type memberPayload struct {
	CommunityID string    `json:"communityId"`
	MemberID    string    `json:"memberId"`
	XP          int64     `json:"xp"`
	Level       int       `json:"level"`
	XPNeeded    int64     `json:"xpNeeded"`
	Progress    float64   `json:"progress"`
	DisplayName string    `json:"name"`
	Nickname    string    `json:"nickname"`
	AvatarURL   string    `json:"avatar"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toMemberPayload(member storage.Member) memberPayload {
	return memberPayload{
		CommunityID: member.CommunityID,
		MemberID:    member.MemberID,
		XP:          member.XP,
		Level:       member.Level,
		XPNeeded:    member.XPNeeded,
		Progress:    member.Progress,
		DisplayName: member.DisplayName,
		Nickname:    member.Nickname,
		AvatarURL:   member.AvatarURL,
		UpdatedAt:   member.UpdatedAt,
	}
}

type communityPayload struct {
	CommunityID    string `json:"communityId"`
	Name           string `json:"name"`
	IconURL        string `json:"icon"`
	MemberCount    int    `json:"members"`
	CooldownMS     int64  `json:"cooldownMs"`
	UpdatesEnabled bool   `json:"updatesEnabled"`
	UpdatesChannel string `json:"updatesChannel"`
}

func toCommunityPayload(community storage.Community) communityPayload {
	cooldown := community.Cooldown
	if cooldown <= 0 {
		cooldown = domain.DefaultCooldown
	}
	return communityPayload{
		CommunityID:    community.CommunityID,
		Name:           community.Name,
		IconURL:        community.IconURL,
		MemberCount:    community.MemberCount,
		CooldownMS:     cooldown.Milliseconds(),
		UpdatesEnabled: community.UpdatesEnabled,
		UpdatesChannel: community.UpdatesChannel,
	}
}

func (s *Server) handleCommunityGet(w http.ResponseWriter, r *http.Request) {
	communityID := r.PathValue("community")

	community, err := s.store.GetCommunity(r.Context(), communityID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody{Message: "Guild not found"})
			return
		}
		writeError(w, err)
		return
	}
	members, err := s.store.ListMembersByXP(r.Context(), communityID, 0)
	if err != nil {
		writeError(w, err)
		return
	}
	totalXP, err := s.store.CommunityXPTotal(r.Context(), communityID)
	if err != nil {
		writeError(w, err)
		return
	}

	leaderboard := make([]memberPayload, 0, len(members))
	for _, member := range members {
		leaderboard = append(leaderboard, toMemberPayload(member))
	}
	writeJSON(w, http.StatusOK, struct {
		Community   communityPayload `json:"guild"`
		Leaderboard []memberPayload  `json:"leaderboard"`
		TotalXP     int64            `json:"totalXp"`
	}{toCommunityPayload(community), leaderboard, totalXP})
}

func (s *Server) handleMemberGet(w http.ResponseWriter, r *http.Request) {
	member, err := s.store.GetMember(r.Context(), r.PathValue("community"), r.PathValue("member"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody{Message: "User not found"})
			return
		}
		writeError(w, err)
		return
	}
	rewards, err := s.store.ListRoleRewards(r.Context(), member.CommunityID)
	if err != nil {
		writeError(w, err)
		return
	}
	roles := domain.EarnedRoles(rewards, member.Level)
	if roles == nil {
		roles = []string{}
	}
	writeJSON(w, http.StatusOK, struct {
		memberPayload
		Roles []string `json:"roles"`
	}{toMemberPayload(member), roles})
}

// handleMemberProfile returns the chat-ready profile text so bot commands
// can post it verbatim.
func (s *Server) handleMemberProfile(w http.ResponseWriter, r *http.Request) {
	member, err := s.store.GetMember(r.Context(), r.PathValue("community"), r.PathValue("member"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody{Message: "User not found"})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Text string `json:"text"`
	}{s.renderer.MemberProfile(member)})
}

func (s *Server) handleMemberHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Message: "Illegal request"})
			return
		}
		limit = parsed
	}

	snapshots, err := s.store.ListMemberHistory(r.Context(), r.PathValue("community"), r.PathValue("member"), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	type point struct {
		XP         int64     `json:"xp"`
		RecordedAt time.Time `json:"recordedAt"`
	}
	points := make([]point, 0, len(snapshots))
	for _, snapshot := range snapshots {
		points = append(points, point{XP: snapshot.XP, RecordedAt: snapshot.RecordedAt})
	}
	writeJSON(w, http.StatusOK, struct {
		History []point `json:"history"`
	}{points})
}

func (s *Server) handleRolesList(w http.ResponseWriter, r *http.Request) {
	rewards, err := s.store.ListRoleRewards(r.Context(), r.PathValue("community"))
	if err != nil {
		writeError(w, err)
		return
	}

	type rolePayload struct {
		Role  string `json:"role"`
		Level int    `json:"level"`
	}
	roles := make([]rolePayload, 0, len(rewards))
	for _, reward := range rewards {
		roles = append(roles, rolePayload{Role: reward.RoleRef, Level: reward.Level})
	}
	writeJSON(w, http.StatusOK, struct {
		Roles []rolePayload `json:"roles"`
	}{roles})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.ServiceStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Communities int64 `json:"guilds"`
		Members     int64 `json:"users"`
		MemberSum   int64 `json:"totalMembers"`
	}{stats.Communities, stats.Members, stats.MemberSum})
}

func (s *Server) handleCommunityUpsert(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name    string `json:"name"`
		IconURL string `json:"icon"`
		Members int    `json:"members"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.store.UpsertCommunityInfo(r.Context(), r.PathValue("community"), body.Name, body.IconURL, body.Members); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
	}{true})
}

func (s *Server) handleCommunityDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ForgetCommunity(r.Context(), r.PathValue("community")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
	}{true})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		XP          int64  `json:"xp"`
		DisplayName string `json:"name"`
		Nickname    string `json:"nickname"`
		AvatarURL   string `json:"pfp"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	result, err := s.engine.Ingest(r.Context(), domain.IngestInput{
		CommunityID: r.PathValue("community"),
		MemberID:    r.PathValue("member"),
		XPDelta:     body.XP,
		DisplayName: body.DisplayName,
		Nickname:    body.Nickname,
		AvatarURL:   body.AvatarURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Accepted  bool  `json:"accepted"`
		XP        int64 `json:"xp"`
		Level     int   `json:"level"`
		LeveledUp bool  `json:"leveledUp"`
	}{result.Accepted, result.XP, result.Level, result.LeveledUp})
}

func (s *Server) handleMemberDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ForgetMember(r.Context(), r.PathValue("community"), r.PathValue("member")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
	}{true})
}

// handleCommunitiesWithUpdates feeds the chat layer the communities whose
// updates channel should receive announcements and digests.
func (s *Server) handleCommunitiesWithUpdates(w http.ResponseWriter, r *http.Request) {
	communities, err := s.store.ListCommunitiesWithUpdates(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	payloads := make([]communityPayload, 0, len(communities))
	for _, community := range communities {
		payloads = append(payloads, toCommunityPayload(community))
	}
	writeJSON(w, http.StatusOK, struct {
		Communities []communityPayload `json:"guilds"`
	}{payloads})
}

func (s *Server) handleCooldownGet(w http.ResponseWriter, r *http.Request) {
	cooldown := domain.DefaultCooldown
	community, err := s.store.GetCommunity(r.Context(), r.PathValue("community"))
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		writeError(w, err)
		return
	}
	if err == nil && community.Cooldown > 0 {
		cooldown = community.Cooldown
	}
	writeJSON(w, http.StatusOK, struct {
		CooldownMS int64 `json:"cooldownMs"`
	}{cooldown.Milliseconds()})
}

func (s *Server) handleCooldownSet(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CooldownMS int64 `json:"cooldownMs"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.CooldownMS < 0 {
		writeError(w, apperrors.New(apperrors.CodeCommunityInvalidCooldown, "cooldown must not be negative"))
		return
	}
	cooldown := time.Duration(body.CooldownMS) * time.Millisecond
	if err := s.store.SetCooldown(r.Context(), r.PathValue("community"), cooldown); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
	}{true})
}

func (s *Server) handleUpdatesGet(w http.ResponseWriter, r *http.Request) {
	enabled := false
	channel := ""
	community, err := s.store.GetCommunity(r.Context(), r.PathValue("community"))
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		writeError(w, err)
		return
	}
	if err == nil {
		enabled = community.UpdatesEnabled
		channel = community.UpdatesChannel
	}
	writeJSON(w, http.StatusOK, struct {
		Enabled bool   `json:"enabled"`
		Channel string `json:"channel"`
	}{enabled, channel})
}

func (s *Server) handleUpdatesSet(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled *bool   `json:"enabled"`
		Channel *string `json:"channel"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Enabled == nil && body.Channel == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Illegal request"})
		return
	}

	communityID := r.PathValue("community")
	if body.Enabled != nil {
		if err := s.store.SetUpdatesEnabled(r.Context(), communityID, *body.Enabled); err != nil {
			writeError(w, err)
			return
		}
	}
	if body.Channel != nil {
		if err := s.store.SetUpdatesChannel(r.Context(), communityID, *body.Channel); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
	}{true})
}

func (s *Server) handleSetXP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value int64 `json:"value"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	member, err := s.engine.SetXP(r.Context(), r.PathValue("community"), r.PathValue("member"), body.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberPayload(member))
}

func (s *Server) handleSetLevel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value int `json:"value"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	member, err := s.engine.SetLevel(r.Context(), r.PathValue("community"), r.PathValue("member"), body.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberPayload(member))
}

func (s *Server) handleRolePut(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Role  string `json:"role"`
		Level int    `json:"level"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Role == "" {
		writeError(w, apperrors.New(apperrors.CodeRoleEmptyRef, "role ref is required"))
		return
	}
	if body.Level < 0 {
		writeError(w, apperrors.New(apperrors.CodeRoleInvalidLevel, "role level must not be negative"))
		return
	}
	err := s.store.PutRoleReward(r.Context(), storage.RoleReward{
		CommunityID: r.PathValue("community"),
		RoleRef:     body.Role,
		Level:       body.Level,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
	}{true})
}

func (s *Server) handleRoleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteRoleReward(r.Context(), r.PathValue("community"), r.PathValue("role")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
	}{true})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	source, err := s.registry.Source(r.PathValue("source"))
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := s.importer.Run(r.Context(), r.PathValue("community"), source)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Source   string `json:"source"`
		Pages    int    `json:"pages"`
		Imported int    `json:"imported"`
	}{result.Source, result.Pages, result.Imported})
}

// Run serves the API until the context is cancelled, then drains in-flight
// requests.
func Run(ctx context.Context, addr string, handler http.Handler, readHeaderTimeout, shutdownTimeout time.Duration) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
