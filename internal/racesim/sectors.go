package racesim

import (
	"fmt"
	"math"
	"sort"

	"github.com/cj123/ini"
)

// DefaultNumSectors matches the eight sector leaderboard of the race viewer.
const DefaultNumSectors = 8

// Sector is a slice of the lap, as fractions of the lap distance in [Start, End).
type Sector struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

type Sectors []Sector

func EvenSectors(n int) Sectors {
	if n <= 0 {
		return nil
	}

	sectors := make(Sectors, n)

	for i := range sectors {
		sectors[i] = Sector{
			Start: float64(i) / float64(n),
			End:   float64(i+1) / float64(n),
		}
	}

	return sectors
}

// LoadSectors reads an ini file with one section per sector, each with START and
// END keys given as fractions of the lap. Sectors are ordered by START.
func LoadSectors(sectorsPath string) (Sectors, error) {
	sectorsFile, err := ini.Load(sectorsPath)

	if err != nil {
		return nil, err
	}

	var sectors Sectors

	for _, section := range sectorsFile.Sections() {
		if section.Name() == "DEFAULT" {
			continue
		}

		start, err := section.Key("START").Float64()

		if err != nil {
			return nil, err
		}

		end, err := section.Key("END").Float64()

		if err != nil {
			return nil, err
		}

		sectors = append(sectors, Sector{Start: start, End: end})
	}

	sort.Slice(sectors, func(i, j int) bool {
		return sectors[i].Start < sectors[j].Start
	})

	if err := sectors.Validate(); err != nil {
		return nil, err
	}

	return sectors, nil
}

func (s Sectors) Validate() error {
	for i, sector := range s {
		if sector.Start < 0 || sector.End > 1 || sector.Start >= sector.End {
			return fmt.Errorf("racesim: sector %d has invalid bounds [%.3f, %.3f)", i, sector.Start, sector.End)
		}

		if i > 0 && sector.Start < s[i-1].End {
			return fmt.Errorf("racesim: sector %d overlaps sector %d", i, i-1)
		}
	}

	return nil
}

// At returns the index of the sector containing the lap fraction, or -1 if it
// falls in a gap between sectors.
func (s Sectors) At(fraction float64) int {
	fraction -= math.Floor(fraction)

	for i, sector := range s {
		if fraction >= sector.Start && fraction < sector.End {
			return i
		}
	}

	return -1
}
