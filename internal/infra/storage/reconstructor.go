package storage

import (
	"context"
	"fmt"

	"github.com/teamprincipal/paddock/internal/events"
)

// Reconstructor reads the event ledger back into summaries. It is used for
// the "while you were away" recap after loading a save, and for auditing.
type Reconstructor struct {
	eventRepo EventRepository
}

// NewReconstructor creates a new ledger reader.
func NewReconstructor(eventRepo EventRepository) *Reconstructor {
	return &Reconstructor{eventRepo: eventRepo}
}

// RecapEvent is a simplified event for the recap screen.
type RecapEvent struct {
	Season  int    `json:"season"`
	Week    int    `json:"week"`
	Type    string `json:"event_type"`
	Summary string `json:"summary"` // Human-readable description
	Impact  string `json:"impact"`  // "POSITIVE", "NEGATIVE", "NEUTRAL"
}

// ResearchTally counts one team's research milestones in the ledger.
type ResearchTally struct {
	Started   int            `json:"started"`
	Completed int            `json:"completed"`
	Locked    int            `json:"locked"`
	Effects   map[string]int `json:"effects"` // summed applied deltas per stat
}

// TallyResearch rebuilds a team's research history from its events.
func (r *Reconstructor) TallyResearch(ctx context.Context, session, team string) (*ResearchTally, error) {
	evs, err := r.eventRepo.GetByActorID(ctx, session, team)
	if err != nil {
		return nil, fmt.Errorf("failed to get events for team: %w", err)
	}

	tally := &ResearchTally{Effects: make(map[string]int)}
	for _, e := range evs {
		switch e.EventType {
		case string(events.EventTypeResearchStarted):
			tally.Started++
		case string(events.EventTypeResearchLocked):
			tally.Locked++
		case string(events.EventTypeResearchCompleted):
			tally.Completed++
			effects, _ := e.Payload["effects"].(map[string]interface{})
			for stat, v := range effects {
				if d, ok := v.(float64); ok {
					tally.Effects[stat] += int(d)
				}
			}
		}
	}
	return tally, nil
}

// GenerateRecap lists what happened to a team from a game week onwards.
// Other teams' race wins and season results are included.
func (r *Reconstructor) GenerateRecap(ctx context.Context, session, team string, season, week int) ([]RecapEvent, error) {
	evs, err := r.eventRepo.GetSince(ctx, session, season, week)
	if err != nil {
		return nil, err
	}

	var recap []RecapEvent
	for _, e := range evs {
		global := e.EventType == string(events.EventTypeRaceFinished) || e.EventType == string(events.EventTypeSeasonEnded)
		if e.ActorID != team && !global {
			continue
		}
		recap = append(recap, RecapEvent{
			Season:  e.Season,
			Week:    e.Week,
			Type:    e.EventType,
			Summary: r.summarizeEvent(e, team),
			Impact:  r.determineImpact(e, team),
		})
	}
	return recap, nil
}

// summarizeEvent creates a human-readable summary.
func (r *Reconstructor) summarizeEvent(e StoredEvent, team string) string {
	str := func(key string) string {
		s, _ := e.Payload[key].(string)
		return s
	}
	num := func(key string) int {
		f, _ := e.Payload[key].(float64)
		return int(f)
	}

	switch e.EventType {
	case string(events.EventTypeResearchStarted):
		return "Started research on " + str("name") + "."
	case string(events.EventTypeResearchCompleted):
		return "Completed " + str("name") + "."
	case string(events.EventTypeResearchLocked):
		return str("name") + " was ruled out by " + str("locked_by") + "."
	case string(events.EventTypeEngineersAllocated):
		return fmt.Sprintf("%d engineers assigned to %s.", num("engineers"), e.TargetID)
	case string(events.EventTypePitStop):
		if b, _ := e.Payload["emergency"].(bool); b {
			return fmt.Sprintf("%s made an emergency stop on lap %d.", e.TargetID, num("lap"))
		}
		return fmt.Sprintf("%s pitted for %s on lap %d.", e.TargetID, str("compound"), num("lap"))
	case string(events.EventTypePointsAwarded):
		return fmt.Sprintf("%s finished P%d for %d points.", e.TargetID, num("position"), num("points"))
	case string(events.EventTypeRaceFinished):
		if str("winner_team") == team {
			return e.TargetID + " won the " + str("track") + " race for us."
		}
		return e.TargetID + " won at " + str("track") + "."
	case string(events.EventTypeWeekAdvanced):
		return fmt.Sprintf("Earned %d resource points.", num("resource_points"))
	case string(events.EventTypeSeasonEnded):
		return fmt.Sprintf("Season %d ended. %s took the constructors' title.", num("season"), str("constructor_champion"))
	default:
		return "Something happened in the paddock."
	}
}

// determineImpact classifies the event impact for team.
func (r *Reconstructor) determineImpact(e StoredEvent, team string) string {
	switch e.EventType {
	case string(events.EventTypeResearchCompleted), string(events.EventTypePointsAwarded), string(events.EventTypeWeekAdvanced):
		return "POSITIVE"
	case string(events.EventTypeResearchLocked):
		return "NEGATIVE"
	case string(events.EventTypePitStop):
		if b, _ := e.Payload["emergency"].(bool); b {
			return "NEGATIVE"
		}
		return "NEUTRAL"
	case string(events.EventTypeRaceFinished), string(events.EventTypeSeasonEnded):
		if e.ActorID == team {
			return "POSITIVE"
		}
		return "NEUTRAL"
	default:
		return "NEUTRAL"
	}
}
