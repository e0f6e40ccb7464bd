package livemap

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"justapengu.in/livemap/internal/racesim"
)

func NewRaceControlDriver(agentInfo racesim.AgentInfo) *RaceControlDriver {
	return &RaceControlDriver{
		RaceControlDriverData: RaceControlDriverData{
			AgentInfo: agentInfo,
			Active:    true,
			Sector:    -1,
			Laps:      NewRaceControlLapInfo(),
		},
		currentSector: -1,
	}
}

func NewRaceControlLapInfo() *RaceControlLapInfo {
	return &RaceControlLapInfo{
		CurrentLapSplits: make(map[int]RaceControlSplit),
		LastLapSplits:    make(map[int]RaceControlSplit),
		BestSplits:       make(map[int]RaceControlSplit),
	}
}

type RaceControlDriverData struct {
	AgentInfo racesim.AgentInfo `json:"AgentInfo"`

	Position int             `json:"Position"`
	LastPos  racesim.Vector3 `json:"LastPos"`
	Speed    float64         `json:"Speed"`
	Distance float64         `json:"Distance"`
	Sector   int             `json:"Sector"`
	LastSeen uint64          `json:"LastSeen"`

	Active    bool   `json:"Active"`
	Finished  bool   `json:"Finished"`
	Failure   string `json:"Failure,omitempty"`
	Incidents int    `json:"Incidents"`

	Laps *RaceControlLapInfo `json:"Laps"`
}

// RaceControlDriver is the leaderboard view of a single agent.
type RaceControlDriver struct {
	RaceControlDriverData

	started         bool
	lapCompleted    bool
	currentSector   int
	sectorEnteredAt time.Duration

	mutex sync.RWMutex
}

type RaceControlLapInfo struct {
	TopSpeedThisLap      float64       `json:"TopSpeedThisLap"`
	TopSpeedBestLap      float64       `json:"TopSpeedBestLap"`
	BestLap              time.Duration `json:"BestLap"`
	NumLaps              int           `json:"NumLaps"`
	LastLap              time.Duration `json:"LastLap"`
	LastLapCompletedTime time.Duration `json:"LastLapCompletedTime"`
	TotalLapTime         time.Duration `json:"TotalLapTime"`

	CurrentLapSplits map[int]RaceControlSplit `json:"CurrentLapSplits"`
	LastLapSplits    map[int]RaceControlSplit `json:"LastLapSplits"`
	BestSplits       map[int]RaceControlSplit `json:"BestLapSplits"`
}

type RaceControlSplit struct {
	SplitIndex    int           `json:"SplitIndex"`
	SplitTime     time.Duration `json:"SplitTime"`
	IsDriversBest bool          `json:"IsDriversBest"`
}

func (rcd *RaceControlDriver) updatePose(pose racesim.AgentPose) {
	rcd.mutex.Lock()
	defer rcd.mutex.Unlock()

	rcd.LastPos = pose.Position
	rcd.Speed = pose.Speed
	rcd.LastSeen = pose.Tick

	if pose.Speed > rcd.Laps.TopSpeedThisLap {
		rcd.Laps.TopSpeedThisLap = pose.Speed
	}
}

func (rcd *RaceControlDriver) completeLap(event racesim.LapEvent) {
	rcd.mutex.Lock()
	defer rcd.mutex.Unlock()

	laps := rcd.Laps

	laps.NumLaps = int(event.LapNumber)
	laps.LastLap = event.LapTime
	laps.LastLapCompletedTime = event.Timestamp
	laps.TotalLapTime += event.LapTime

	if laps.BestLap == 0 || event.LapTime < laps.BestLap {
		laps.BestLap = event.LapTime
		laps.TopSpeedBestLap = laps.TopSpeedThisLap
	}

	laps.TopSpeedThisLap = 0
	rcd.lapCompleted = true
}

// updateStanding records the split for a sector once the agent leaves it.
// Agents start on the line, so the first sector is entered at time zero.
func (rcd *RaceControlDriver) updateStanding(standing racesim.Standing, now time.Duration) {
	rcd.mutex.Lock()
	defer rcd.mutex.Unlock()

	rcd.Distance = standing.Distance
	rcd.Sector = standing.Sector
	rcd.Active = standing.Active
	rcd.Finished = standing.Finished

	if !rcd.started {
		rcd.started = true
		rcd.currentSector = standing.Sector

		return
	}

	if !standing.Active {
		return
	}

	defer func() {
		if rcd.lapCompleted {
			// the split into the new lap belongs to the lap just completed
			rcd.lapCompleted = false
			rcd.Laps.LastLapSplits = rcd.Laps.CurrentLapSplits
			rcd.Laps.CurrentLapSplits = make(map[int]RaceControlSplit)
		}
	}()

	if standing.Sector == rcd.currentSector {
		return
	}

	if rcd.currentSector >= 0 {
		split := RaceControlSplit{
			SplitIndex: rcd.currentSector,
			SplitTime:  now - rcd.sectorEnteredAt,
		}

		if best, ok := rcd.Laps.BestSplits[split.SplitIndex]; !ok || split.SplitTime < best.SplitTime {
			split.IsDriversBest = true
			rcd.Laps.BestSplits[split.SplitIndex] = split
		}

		rcd.Laps.CurrentLapSplits[split.SplitIndex] = split
	}

	rcd.currentSector = standing.Sector
	rcd.sectorEnteredAt = now

	if standing.Finished {
		// no more splits once the last lap is done
		rcd.currentSector = -1
	}
}

func (rcd *RaceControlDriver) fail(err error) {
	rcd.mutex.Lock()
	defer rcd.mutex.Unlock()

	rcd.Active = false
	rcd.Speed = 0
	rcd.Failure = err.Error()
}

func (rcd *RaceControlDriver) addIncident() {
	rcd.mutex.Lock()
	defer rcd.mutex.Unlock()

	rcd.Incidents++
}

// Data returns a copy of the driver, safe to read while the session runs.
func (rcd *RaceControlDriver) Data() RaceControlDriverData {
	rcd.mutex.RLock()
	defer rcd.mutex.RUnlock()

	data := rcd.RaceControlDriverData
	laps := *rcd.Laps
	laps.CurrentLapSplits = copySplits(rcd.Laps.CurrentLapSplits)
	laps.LastLapSplits = copySplits(rcd.Laps.LastLapSplits)
	laps.BestSplits = copySplits(rcd.Laps.BestSplits)
	data.Laps = &laps

	return data
}

func copySplits(splits map[int]RaceControlSplit) map[int]RaceControlSplit {
	out := make(map[int]RaceControlSplit, len(splits))

	for k, v := range splits {
		out[k] = v
	}

	return out
}

func (rcd *RaceControlDriver) MarshalJSON() ([]byte, error) {
	return json.Marshal(rcd.Data())
}

type DriverMap struct {
	Drivers                   map[string]*RaceControlDriver `json:"Drivers"`
	AgentIDsInPositionalOrder []string                      `json:"AgentIDsInPositionalOrder"`

	rwMutex sync.RWMutex
}

func NewDriverMap() *DriverMap {
	return &DriverMap{
		Drivers: make(map[string]*RaceControlDriver),
	}
}

func (d *DriverMap) Each(fn func(agentID string, driver *RaceControlDriver) error) error {
	d.rwMutex.RLock()
	defer d.rwMutex.RUnlock()

	for _, id := range d.AgentIDsInPositionalOrder {
		driver, ok := d.Drivers[id]

		if !ok {
			continue
		}

		err := fn(id, driver)

		if err != nil {
			return err
		}
	}

	return nil
}

func (d *DriverMap) Get(agentID string) (*RaceControlDriver, bool) {
	d.rwMutex.RLock()
	defer d.rwMutex.RUnlock()

	driver, ok := d.Drivers[agentID]

	return driver, ok
}

func (d *DriverMap) Add(agentID string, driver *RaceControlDriver) {
	d.rwMutex.Lock()
	defer d.rwMutex.Unlock()

	d.Drivers[agentID] = driver

	for _, id := range d.AgentIDsInPositionalOrder {
		if id == agentID {
			return
		}
	}

	d.AgentIDsInPositionalOrder = append(d.AgentIDsInPositionalOrder, agentID)
}

// applyStandings sets positions from the session standings and reorders the map.
func (d *DriverMap) applyStandings(standings []racesim.Standing) {
	d.rwMutex.Lock()
	defer d.rwMutex.Unlock()

	for _, standing := range standings {
		driver, ok := d.Drivers[standing.AgentID]

		if !ok {
			continue
		}

		driver.mutex.Lock()
		driver.Position = standing.Position
		driver.mutex.Unlock()
	}

	sort.SliceStable(d.AgentIDsInPositionalOrder, func(i, j int) bool {
		driverA, ok := d.Drivers[d.AgentIDsInPositionalOrder[i]]

		if !ok {
			return false
		}

		driverB, ok := d.Drivers[d.AgentIDsInPositionalOrder[j]]

		if !ok {
			return false
		}

		return driverA.position() < driverB.position()
	})
}

func (rcd *RaceControlDriver) position() int {
	rcd.mutex.RLock()
	defer rcd.mutex.RUnlock()

	return rcd.Position
}

func (d *DriverMap) Len() int {
	d.rwMutex.RLock()
	defer d.rwMutex.RUnlock()

	return len(d.Drivers)
}

func (d *DriverMap) MarshalJSON() ([]byte, error) {
	d.rwMutex.RLock()
	defer d.rwMutex.RUnlock()

	return json.Marshal(struct {
		Drivers                   map[string]*RaceControlDriver `json:"Drivers"`
		AgentIDsInPositionalOrder []string                      `json:"AgentIDsInPositionalOrder"`
	}{
		Drivers:                   d.Drivers,
		AgentIDsInPositionalOrder: d.AgentIDsInPositionalOrder,
	})
}
