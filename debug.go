package livemap

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
)

// Debugger serves a zip bundle of the race control state, for bug reports.
type Debugger struct {
	raceControl *RaceControl
	config      *Config
}

func NewDebugger(raceControl *RaceControl, config *Config) *Debugger {
	return &Debugger{raceControl: raceControl, config: config}
}

func (d *Debugger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Disposition", fmt.Sprintf(`attachment;filename="livemap_debug_bundle_%s.zip"`, time.Now().Format("2006-01-02_15_04")))
	w.Header().Add("Content-Type", "application/zip")

	if err := d.BuildDebugInfo(w); err != nil {
		logrus.WithError(err).Error("Could not build debug information")
		http.Error(w, "Could not build debug information", http.StatusInternalServerError)
		return
	}
}

func (d *Debugger) BuildDebugInfo(w io.Writer) (err error) {
	z := zip.NewWriter(w)
	defer func() {
		closeErr := z.Close()

		if err == nil {
			err = closeErr
		}
	}()

	// a session which has not been set up yet still gets a bundle
	info, _ := d.raceControl.Info()
	standings, _ := d.raceControl.Standings()
	incidents, _ := d.raceControl.Incidents()

	if err := d.addJSONFileToZip(z, "session.json", info); err != nil {
		return err
	}

	if err := d.addJSONFileToZip(z, "readiness.json", d.raceControl.Readiness()); err != nil {
		return err
	}

	if err := d.addJSONFileToZip(z, "standings.json", standings); err != nil {
		return err
	}

	if err := d.addJSONFileToZip(z, "drivers.json", d.raceControl.Drivers()); err != nil {
		return err
	}

	if err := d.addJSONFileToZip(z, "incidents.json", incidents); err != nil {
		return err
	}

	if d.config != nil {
		if err := d.addTextFileToZip(z, "config.txt", spew.Sdump(d.config)); err != nil {
			return err
		}
	}

	return nil
}

func (d *Debugger) addJSONFileToZip(z *zip.Writer, filename string, data interface{}) error {
	f, err := z.Create(filename)

	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")

	return enc.Encode(data)
}

func (d *Debugger) addTextFileToZip(z *zip.Writer, filename string, data string) error {
	f, err := z.Create(filename)

	if err != nil {
		return err
	}

	_, err = f.Write([]byte(data))

	return err
}
