package racesim

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Severity is how hard a yellow flag slows a sector down.
type Severity string

const (
	SeveritySlow          Severity = "slow"
	SeverityVerySlow      Severity = "verySlow"
	SeverityExtremelySlow Severity = "extremelySlow"
)

func (s Severity) Valid() bool {
	switch s {
	case SeveritySlow, SeverityVerySlow, SeverityExtremelySlow:
		return true
	default:
		return false
	}
}

type SectorSeverity struct {
	Sector   int      `json:"sector"`
	Severity Severity `json:"severity"`
}

// Incident is an annotation reported by race control against an agent, e.g. a
// collision. The simulation records it but does not act on it.
type Incident struct {
	ID         string           `json:"id"`
	AgentID    string           `json:"agent_id"`
	Sectors    []SectorSeverity `json:"sectors"`
	ReportedAt time.Duration    `json:"reported_at"`
}

type IncidentBoard struct {
	numSectors int
	incidents  []Incident
}

func NewIncidentBoard(numSectors int) *IncidentBoard {
	return &IncidentBoard{numSectors: numSectors}
}

func (b *IncidentBoard) Report(agentID string, sectors []SectorSeverity, now time.Duration) (Incident, error) {
	if len(sectors) == 0 {
		return Incident{}, fmt.Errorf("racesim: incident for %s has no affected sectors", agentID)
	}

	for _, sector := range sectors {
		if sector.Sector < 0 || sector.Sector >= b.numSectors {
			return Incident{}, fmt.Errorf("racesim: incident sector %d out of range [0, %d)", sector.Sector, b.numSectors)
		}

		if !sector.Severity.Valid() {
			return Incident{}, fmt.Errorf("racesim: unknown incident severity %q", sector.Severity)
		}
	}

	incident := Incident{
		ID:         uuid.New().String(),
		AgentID:    agentID,
		Sectors:    append([]SectorSeverity(nil), sectors...),
		ReportedAt: now,
	}

	b.incidents = append(b.incidents, incident)

	return incident, nil
}

func (b *IncidentBoard) All() []Incident {
	return append([]Incident(nil), b.incidents...)
}

// ForSector returns the incidents affecting the given sector, oldest first.
func (b *IncidentBoard) ForSector(sector int) []Incident {
	var out []Incident

	for _, incident := range b.incidents {
		for _, s := range incident.Sectors {
			if s.Sector == sector {
				out = append(out, incident)
				break
			}
		}
	}

	return out
}

// SpeedLimiter scales an agent's max speed on a track segment. It is called
// concurrently from every agent when a session steps in parallel, and must only read.
type SpeedLimiter interface {
	SpeedMultiplier(agentID string, segment int) float64
}

// UnlimitedSpeed is the default SpeedLimiter. Incidents are recorded but never
// slow anyone down.
type UnlimitedSpeed struct{}

func (UnlimitedSpeed) SpeedMultiplier(string, int) float64 {
	return 1
}
