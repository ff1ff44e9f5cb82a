package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"tripmate-ai/internal/adapter/maps"
	"tripmate-ai/internal/adapter/store"
	"tripmate-ai/internal/domain"
	"tripmate-ai/internal/usecase"
)

// Handler holds the HTTP endpoints. The store and the widget loader
// are optional; endpoints that need an absent collaborator degrade
// per their contract instead of panicking.
type Handler struct {
	orch      *usecase.Orchestrator
	resolver  *maps.Resolver
	routes    *maps.RouteFetcher
	provider  maps.Provider
	store     *store.Store
	loader    *maps.Loader
	widgetKey string
	logger    *slog.Logger
}

// HandlerDeps are the handler's collaborators.
type HandlerDeps struct {
	Orchestrator *usecase.Orchestrator
	Resolver     *maps.Resolver
	Routes       *maps.RouteFetcher
	Provider     maps.Provider
	Store        *store.Store // optional
	Loader       *maps.Loader // optional
	WidgetKey    string
	Logger       *slog.Logger
}

// NewHandler creates the endpoint set.
func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		orch:      deps.Orchestrator,
		resolver:  deps.Resolver,
		routes:    deps.Routes,
		provider:  deps.Provider,
		store:     deps.Store,
		loader:    deps.Loader,
		widgetKey: deps.WidgetKey,
		logger:    deps.Logger,
	}
}

// Register attaches all routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/chat", h.handleChat)
	mux.HandleFunc("/api/navigation", h.handleNavigation)
	mux.HandleFunc("/api/places", h.handlePlaces)
	mux.HandleFunc("/api/restaurants", h.handleRestaurants)
	mux.HandleFunc("/api/feedback", h.handleFeedback)
	mux.HandleFunc("/api/widget", h.handleWidget)
	mux.HandleFunc("/healthz", h.handleHealthz)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req domain.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logTurn(r, &req)

	sse, err := NewSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	if err := h.orch.RunTurn(r.Context(), req, sse.Send); err != nil {
		// Already surfaced on the stream; log only.
		h.logger.Warn("chat turn ended with error", "error", err)
	}
}

// logTurn appends the latest user message to the session log. The
// store fails soft: a persistence fault never blocks the turn.
func (h *Handler) logTurn(r *http.Request, req *domain.TurnRequest) {
	if h.store == nil {
		return
	}
	ctx := r.Context()
	sid, err := h.store.EnsureSession(ctx, req.SessionID)
	if err != nil {
		h.logger.Warn("session log failed", "error", err)
		return
	}
	req.SessionID = sid
	last := req.Messages[len(req.Messages)-1]
	if last.Role == domain.RoleUser {
		if _, err := h.store.LogMessage(ctx, sid, last); err != nil {
			h.logger.Warn("message log failed", "error", err)
		}
	}
}

type navigationRequest struct {
	Destination   string `json:"destination"`
	LocalizedName string `json:"localizedName,omitempty"`
	Origin        string `json:"origin,omitempty"`
	City          string `json:"city,omitempty"`
}

type navigationResponse struct {
	Destination   domain.Destination       `json:"destination"`
	OriginAddress string                   `json:"origin_address,omitempty"`
	Transit       *domain.TransitItinerary `json:"transit,omitempty"`
	Walking       *domain.WalkingLeg       `json:"walking,omitempty"`
	Summary       string                   `json:"summary"`
}

func (h *Handler) handleNavigation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req navigationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Destination == "" {
		writeError(w, http.StatusBadRequest, "destination is required")
		return
	}

	var origin *domain.LngLat
	if req.Origin != "" {
		loc, err := domain.ParseLngLat(req.Origin)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid origin coordinate")
			return
		}
		origin = &loc
	}

	ctx := r.Context()
	place, err := h.resolver.Resolve(ctx, req.Destination, req.LocalizedName, req.City, origin)
	if err != nil {
		h.logger.Error("navigation resolve failed", "error", err)
		writeError(w, http.StatusBadGateway, "lookup failed, please retry")
		return
	}
	if place == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error":      fmt.Sprintf("no location found for %q", req.Destination),
			"suggestion": "try a more specific or well-known place name",
		})
		return
	}

	resp := navigationResponse{
		Destination: domain.Destination{
			Name:      place.Name,
			InputName: req.Destination,
			Address:   place.Address,
			Location:  place.Location.String(),
		},
	}
	if origin != nil {
		resp.Transit, resp.Walking = h.routes.Fetch(ctx, *origin, place.Location, req.City)
		// Best effort; "" just omits the field.
		resp.OriginAddress, _ = h.provider.ReverseGeocode(ctx, *origin)
	}
	resp.Summary = routeSummary(resp.Transit, resp.Walking)

	writeJSON(w, http.StatusOK, resp)
}

// routeSummary is a one-line human description of the available routes.
func routeSummary(transit *domain.TransitItinerary, walking *domain.WalkingLeg) string {
	var parts []string
	if transit != nil {
		parts = append(parts, fmt.Sprintf("公交约%d分钟", transit.Duration))
	}
	if walking != nil {
		parts = append(parts, fmt.Sprintf("步行约%d分钟", walking.Duration))
	}
	if len(parts) == 0 {
		return "未找到可用路线"
	}
	return strings.Join(parts, "，")
}

type placesRequest struct {
	Type     string `json:"type"`
	Keyword  string `json:"keyword,omitempty"`
	Location string `json:"location,omitempty"`
	Radius   int    `json:"radius,omitempty"`
	City     string `json:"city,omitempty"`
}

func (h *Handler) handlePlaces(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req placesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	switch req.Type {
	case "restaurant", "attraction", "general":
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown type %q", req.Type))
		return
	}
	loc, err := domain.ParseLngLat(req.Location)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid location coordinate")
		return
	}
	if req.Radius <= 0 {
		req.Radius = 1000
	}

	results, err := h.provider.SearchNearby(r.Context(), maps.NearbyQuery{
		Type:     req.Type,
		Keyword:  req.Keyword,
		Location: loc,
		Radius:   req.Radius,
		City:     req.City,
	})
	if err != nil {
		h.logger.Error("places search failed", "error", err)
		writeError(w, http.StatusBadGateway, "lookup failed, please retry")
		return
	}
	if results == nil {
		results = []domain.PlaceResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) handleRestaurants(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}

	raw := r.URL.Query().Get("slugs")
	var slugs []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			slugs = append(slugs, s)
		}
	}

	if h.store == nil || len(slugs) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"restaurants": []store.Restaurant{}})
		return
	}

	restaurants, err := h.store.RestaurantsBySlugs(r.Context(), slugs)
	if err != nil {
		h.logger.Error("restaurant lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"restaurants": restaurants})
}

func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "feedback storage unavailable")
		return
	}

	var fb store.Feedback
	if err := json.NewDecoder(r.Body).Decode(&fb); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := h.store.SaveFeedback(r.Context(), fb); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("feedback write failed", "error", err)
		writeError(w, http.StatusInternalServerError, "feedback write failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleWidget hands the client the map widget bootstrap, gated behind
// the shared script loader so concurrent clients trigger one load.
func (h *Handler) handleWidget(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	if h.loader == nil {
		writeError(w, http.StatusServiceUnavailable, "map widget not configured")
		return
	}

	script, err := h.loader.Acquire(r.Context())
	if err != nil {
		h.logger.Warn("widget script load failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "map widget unavailable, please retry")
		return
	}
	defer h.loader.Release()

	writeJSON(w, http.StatusOK, map[string]string{
		"key":    h.widgetKey,
		"script": script,
	})
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
