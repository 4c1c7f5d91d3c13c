package network

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/teamprincipal/paddock/internal/domain/personnel"
	"github.com/teamprincipal/paddock/internal/engine"
	"github.com/teamprincipal/paddock/internal/events"
	"github.com/teamprincipal/paddock/internal/finance"
	"github.com/teamprincipal/paddock/internal/infra/cache"
	"github.com/teamprincipal/paddock/internal/infra/storage"
	"github.com/teamprincipal/paddock/internal/platform/logger"
	"github.com/teamprincipal/paddock/internal/research"
)

// SeasonAPI exposes the player's commands over HTTP.
type SeasonAPI struct {
	season   *engine.Season
	sessions storage.SessionRepository
	recaps   *storage.Reconstructor
	results  *cache.ResultCache
	slot     string
	logger   *logger.Logger
}

// NewSeasonAPI creates the HTTP surface for one career. sessions and recaps
// may be nil, which disables saving and the recap.
func NewSeasonAPI(season *engine.Season, sessions storage.SessionRepository, recaps *storage.Reconstructor,
	results *cache.ResultCache, slot string, log *logger.Logger) *SeasonAPI {
	return &SeasonAPI{
		season:   season,
		sessions: sessions,
		recaps:   recaps,
		results:  results,
		slot:     slot,
		logger:   log,
	}
}

// NodeRequest names a research node.
type NodeRequest struct {
	NodeID string `json:"node_id"`
}

// AllocateRequest sets a project's engineer count.
type AllocateRequest struct {
	NodeID    string `json:"node_id"`
	Engineers int    `json:"engineers"`
}

// RaceRequest carries the player's tire plans, keyed by driver name.
type RaceRequest struct {
	Strategies map[string][]string `json:"strategies"`
}

// HireRequest signs a driver into a seat or a staff member into a role.
type HireRequest struct {
	Name string         `json:"name"`
	Role personnel.Role `json:"role,omitempty"`
	Seat int            `json:"seat,omitempty"`
}

// SaveRequest overrides the configured save slot.
type SaveRequest struct {
	Slot string `json:"slot"`
}

// RegisterRoutes sets up the player API routes.
func (a *SeasonAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/state", a.HandleState)
	mux.HandleFunc("/api/teams", a.HandleTeams)
	mux.HandleFunc("/api/research", a.HandleResearch)
	mux.HandleFunc("/api/research/start", a.HandleStartResearch)
	mux.HandleFunc("/api/research/buy", a.HandleBuyResearch)
	mux.HandleFunc("/api/research/allocate", a.HandleAllocate)
	mux.HandleFunc("/api/race/simulate", a.HandleSimulate)
	mux.HandleFunc("GET /api/race/{round}", a.HandleRace)
	mux.HandleFunc("/api/week/advance", a.HandleAdvanceWeek)
	mux.HandleFunc("/api/season/advance", a.HandleAdvanceSeason)
	mux.HandleFunc("/api/hire", a.HandleHire)
	mux.HandleFunc("/api/save", a.HandleSave)
	mux.HandleFunc("/api/slots", a.HandleSlots)
	mux.HandleFunc("/api/recap", a.HandleRecap)
	mux.HandleFunc("/api/events", a.HandleEvents)
}

// HandleState returns the player's dashboard.
// GET /api/state
func (a *SeasonAPI) HandleState(w http.ResponseWriter, r *http.Request) {
	if !a.method(w, r, http.MethodGet) {
		return
	}
	a.jsonSuccess(w, a.season.State())
}

// HandleTeams lists the grid.
// GET /api/teams
func (a *SeasonAPI) HandleTeams(w http.ResponseWriter, r *http.Request) {
	if !a.method(w, r, http.MethodGet) {
		return
	}
	a.jsonSuccess(w, a.season.Teams())
}

// HandleResearch lists the player's research tree.
// GET /api/research
func (a *SeasonAPI) HandleResearch(w http.ResponseWriter, r *http.Request) {
	if !a.method(w, r, http.MethodGet) {
		return
	}
	a.jsonSuccess(w, a.season.Research())
}

// POST /api/research/start
func (a *SeasonAPI) HandleStartResearch(w http.ResponseWriter, r *http.Request) {
	var req NodeRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.season.StartResearch(req.NodeID); err != nil {
		a.fail(w, err)
		return
	}
	a.jsonSuccess(w, a.season.State())
}

// HandleBuyResearch starts a project paid for in cash.
// POST /api/research/buy
func (a *SeasonAPI) HandleBuyResearch(w http.ResponseWriter, r *http.Request) {
	var req NodeRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.season.BuyResearch(req.NodeID); err != nil {
		a.fail(w, err)
		return
	}
	a.jsonSuccess(w, a.season.State())
}

// POST /api/research/allocate
func (a *SeasonAPI) HandleAllocate(w http.ResponseWriter, r *http.Request) {
	var req AllocateRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.season.AllocateEngineers(req.NodeID, req.Engineers); err != nil {
		a.fail(w, err)
		return
	}
	a.jsonSuccess(w, a.season.State())
}

// HandleSimulate runs the next round and caches the full result.
// POST /api/race/simulate
func (a *SeasonAPI) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	var req RaceRequest
	if !a.decode(w, r, &req) {
		return
	}
	season := a.season.State().Season
	report, err := a.season.RunRound(r.Context(), req.Strategies)
	if err != nil {
		a.fail(w, err)
		return
	}
	if a.results != nil {
		a.results.Put(season, report.Result)
	}
	a.jsonSuccess(w, report)
}

// HandleRace returns a race of the current season. Full lap data is served
// while the result is cached, the stored summary after that.
// GET /api/race/{round}
func (a *SeasonAPI) HandleRace(w http.ResponseWriter, r *http.Request) {
	round, err := strconv.Atoi(r.PathValue("round"))
	if err != nil || round < 1 {
		a.jsonError(w, "round must be a positive number", http.StatusBadRequest)
		return
	}
	if a.results != nil {
		if res, ok := a.results.Get(a.season.State().Season, round); ok {
			a.jsonSuccess(w, res)
			return
		}
	}
	sum, ok := a.season.Summary(round)
	if !ok {
		a.jsonError(w, "round not run yet", http.StatusNotFound)
		return
	}
	a.jsonSuccess(w, sum)
}

// POST /api/week/advance
func (a *SeasonAPI) HandleAdvanceWeek(w http.ResponseWriter, r *http.Request) {
	if !a.method(w, r, http.MethodPost) {
		return
	}
	if err := a.season.AdvanceWeek(r.Context()); err != nil {
		a.fail(w, err)
		return
	}
	a.jsonSuccess(w, a.season.State())
}

// HandleAdvanceSeason moves the career on by one step: the next race, or
// the season rollover once the calendar is done.
// POST /api/season/advance
func (a *SeasonAPI) HandleAdvanceSeason(w http.ResponseWriter, r *http.Request) {
	if !a.method(w, r, http.MethodPost) {
		return
	}
	if err := a.season.Tick(r.Context()); err != nil {
		a.fail(w, err)
		return
	}
	a.jsonSuccess(w, a.season.State())
}

// HandleHire signs a driver when no role is given, staff otherwise.
// POST /api/hire
func (a *SeasonAPI) HandleHire(w http.ResponseWriter, r *http.Request) {
	var req HireRequest
	if !a.decode(w, r, &req) {
		return
	}
	var err error
	if req.Role == "" || req.Role == personnel.RoleDriver {
		err = a.season.HireDriver(req.Name, req.Seat)
	} else {
		err = a.season.HireStaff(req.Role, req.Name)
	}
	if err != nil {
		a.fail(w, err)
		return
	}
	a.jsonSuccess(w, a.season.State())
}

// POST /api/save
func (a *SeasonAPI) HandleSave(w http.ResponseWriter, r *http.Request) {
	if a.sessions == nil {
		a.jsonError(w, "saving is disabled", http.StatusNotImplemented)
		return
	}
	var req SaveRequest
	if !a.decode(w, r, &req) {
		return
	}
	slot := req.Slot
	if slot == "" {
		slot = a.slot
	}
	if err := a.sessions.Save(r.Context(), slot, a.season.Snapshot()); err != nil {
		a.fail(w, err)
		return
	}
	a.logger.Event("GAME_SAVED", a.season.PlayerTeam(), "slot "+slot)
	a.jsonSuccess(w, map[string]string{"status": "ok", "slot": slot})
}

// GET /api/slots
func (a *SeasonAPI) HandleSlots(w http.ResponseWriter, r *http.Request) {
	if !a.method(w, r, http.MethodGet) {
		return
	}
	if a.sessions == nil {
		a.jsonSuccess(w, []storage.SlotInfo{})
		return
	}
	slots, err := a.sessions.ListSlots(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.jsonSuccess(w, slots)
}

// HandleRecap summarizes the ledger from a game week onwards.
// GET /api/recap?season=1&week=4
func (a *SeasonAPI) HandleRecap(w http.ResponseWriter, r *http.Request) {
	if !a.method(w, r, http.MethodGet) {
		return
	}
	if a.recaps == nil {
		a.jsonError(w, "no event ledger configured", http.StatusNotImplemented)
		return
	}
	q := r.URL.Query()
	season, err1 := strconv.Atoi(q.Get("season"))
	week, err2 := strconv.Atoi(q.Get("week"))
	if err := errors.Join(err1, err2); err != nil {
		a.jsonError(w, "season and week are required", http.StatusBadRequest)
		return
	}
	recap, err := a.recaps.GenerateRecap(r.Context(), a.slot, a.season.PlayerTeam(), season, week)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.jsonSuccess(w, map[string]interface{}{
		"team":   a.season.PlayerTeam(),
		"events": recap,
	})
}

// EventsResponse is a page of the in-memory event log.
type EventsResponse struct {
	Cursor int                `json:"cursor"` // pass back as since
	Events []events.GameEvent `json:"events"`
}

// HandleEvents lets clients catch up on the feed before attaching to the
// websocket. Filters use the websocket subscription rules.
// GET /api/events?since=120&team=Williams&type=PIT_STOP
func (a *SeasonAPI) HandleEvents(w http.ResponseWriter, r *http.Request) {
	if !a.method(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	since := 0
	if v := q.Get("since"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			a.jsonError(w, "since must be a non-negative number", http.StatusBadRequest)
			return
		}
		since = n
	}
	sub := Subscription{Teams: q["team"]}
	for _, t := range q["type"] {
		sub.Types = append(sub.Types, events.EventType(t))
	}

	fresh := a.season.Events().Since(since)
	resp := EventsResponse{Cursor: since + len(fresh), Events: []events.GameEvent{}}
	for _, e := range fresh {
		if sub.Matches(e) {
			resp.Events = append(resp.Events, e)
		}
	}
	a.jsonSuccess(w, resp)
}

func (a *SeasonAPI) method(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// decode reads a POST body. An empty body leaves v at its zero value.
func (a *SeasonAPI) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if !a.method(w, r, http.MethodPost) {
		return false
	}
	if r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		a.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// fail maps a command error to a status code.
func (a *SeasonAPI) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		a.logger.Error("request failed", "error", err)
	}
	a.jsonError(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, research.ErrUnknownNode),
		errors.Is(err, engine.ErrUnknownDriver),
		errors.Is(err, engine.ErrUnknownStaff),
		errors.Is(err, storage.ErrSlotNotFound):
		return http.StatusNotFound
	case errors.Is(err, research.ErrNegativeEngineers),
		errors.Is(err, engine.ErrInvalidSeat),
		errors.Is(err, finance.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, research.ErrInvalidState),
		errors.Is(err, research.ErrInsufficientResources),
		errors.Is(err, research.ErrCapacityExceeded),
		errors.Is(err, finance.ErrInsufficientFunds),
		errors.Is(err, finance.ErrCostCapBreached),
		errors.Is(err, engine.ErrSeasonComplete):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// jsonError sends an error response.
func (a *SeasonAPI) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// jsonSuccess sends a success response.
func (a *SeasonAPI) jsonSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(data)
}
