package livemap

import (
	"archive/zip"
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDebuggerBundle(t *testing.T) {
	rc := newTestRaceControl(t, 0)

	if _, err := rc.Advance(0.1); err != nil {
		t.Fatal(err)
	}

	debugger := NewDebugger(rc, &Config{TickRate: 60})

	w := httptest.NewRecorder()
	debugger.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Unexpected status %d", w.Code)
	}

	body := w.Body.Bytes()

	z, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))

	if err != nil {
		t.Fatal(err)
	}

	files := make(map[string]bool)

	for _, f := range z.File {
		files[f.Name] = true
	}

	for _, name := range []string{"session.json", "readiness.json", "standings.json", "drivers.json", "incidents.json", "config.txt"} {
		if !files[name] {
			t.Errorf("Expected %s in the debug bundle", name)
		}
	}
}
