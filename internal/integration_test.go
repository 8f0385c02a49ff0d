package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/mkarpov/chargewatch/internal/monitor"
	"github.com/mkarpov/chargewatch/internal/notify"
	"github.com/mkarpov/chargewatch/internal/report"
	"github.com/mkarpov/chargewatch/internal/storage"
)

// fleetSite is a fake admin report: cookie login plus a paginated table
// whose rows can be swapped between cycles.
type fleetSite struct {
	pages [][][4]string // pages of [name, partner, status, time] rows
}

func (f *fleetSite) handler() http.Handler {
	const form = `<html><body><input type="email" name="username"><input type="password" name="password"></body></html>`
	mux := http.NewServeMux()

	mux.HandleFunc("/admin/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.FormValue("password") == "secret" {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "ok", Path: "/"})
			fmt.Fprint(w, `<html><body>welcome</body></html>`)
			return
		}
		fmt.Fprint(w, form)
	})

	mux.HandleFunc("/admin/charge-boxes", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err != nil || c.Value != "ok" {
			fmt.Fprint(w, form)
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page < 1 {
			page = 1
		}

		var b strings.Builder
		b.WriteString(`<table><tbody>`)
		for _, row := range f.pages[page-1] {
			fmt.Fprintf(&b,
				`<tr><td>#</td><td>%s</td><td>%s</td><td>%s</td><td></td><td></td><td></td><td>%s</td></tr>`,
				row[0], row[1], row[2], row[3])
		}
		b.WriteString(`</tbody></table><ul class="pagination">`)
		if page < len(f.pages) {
			fmt.Fprintf(&b, `<li><a href="?page=%d">Next</a></li>`, page+1)
		} else {
			b.WriteString(`<li class="disabled"><span>Next</span></li>`)
		}
		b.WriteString(`</ul>`)
		fmt.Fprint(w, b.String())
	})

	return mux
}

// TestIntegrationPollDiffNotifyPersist runs two full cycles against a
// fake report site and a fake Telegram API, checking alerts and the
// on-disk set end to end.
func TestIntegrationPollDiffNotifyPersist(t *testing.T) {
	site := &fleetSite{pages: [][][4]string{
		{
			{"Station-A", "ACME", "Online", "10:00"},
			{"Station-B", "ACME", "Offline", "09:12"},
		},
		{
			{"Station-C", "Volt Ltd", "Active", "10:01"},
		},
	}}
	reportSrv := httptest.NewServer(site.handler())
	defer reportSrv.Close()

	var sentTexts []string
	tgSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		json.NewDecoder(r.Body).Decode(&payload)
		if text, ok := payload["text"].(string); ok {
			sentTexts = append(sentTexts, text)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer tgSrv.Close()

	source, err := report.NewHTTPSource(report.HTTPConfig{
		BaseURL:  reportSrv.URL + "/admin",
		ListPath: "/charge-boxes",
		Username: "ops@example.com",
		Password: "secret",
	})
	if err != nil {
		t.Fatal(err)
	}

	notifier := &notify.TelegramNotifier{BotToken: "tok", ChatID: "42", APIBase: tgSrv.URL}
	statePath := filepath.Join(t.TempDir(), "sent_stations.json")
	store := storage.NewStore(statePath)
	watcher := monitor.NewWatcher(source, notifier, store, monitor.NewTracker())

	// Cycle 1: Station-B goes offline.
	set, err := watcher.RunCycle(context.Background(), store.Load())
	if err != nil {
		t.Fatalf("cycle 1: %v", err)
	}
	if len(sentTexts) != 1 || !strings.Contains(sentTexts[0], "Station-B") {
		t.Fatalf("cycle 1 alerts = %v", sentTexts)
	}
	if persisted := store.Load(); !persisted.Has("Station-B") || persisted.Len() != 1 {
		t.Fatalf("cycle 1 persisted = %v", persisted.Names())
	}

	// Cycle 2: B recovers, C drops. Restart simulation: reload from disk.
	site.pages = [][][4]string{
		{
			{"Station-A", "ACME", "Online", "10:05"},
			{"Station-B", "ACME", "Online", "10:05"},
		},
		{
			{"Station-C", "Volt Ltd", "Offline", "10:02"},
		},
	}
	set, err = watcher.RunCycle(context.Background(), store.Load())
	if err != nil {
		t.Fatalf("cycle 2: %v", err)
	}

	if len(sentTexts) != 3 {
		t.Fatalf("expected 3 alerts total, got %d: %v", len(sentTexts), sentTexts)
	}
	if !strings.Contains(sentTexts[1], "Station-B") || !strings.Contains(sentTexts[1], "ONLINE") {
		t.Errorf("alert 2 = %q, want Station-B recovery", sentTexts[1])
	}
	if !strings.Contains(sentTexts[2], "Station-C") || !strings.Contains(sentTexts[2], "OFFLINE") {
		t.Errorf("alert 3 = %q, want Station-C offline", sentTexts[2])
	}

	if set.Len() != 1 || !set.Has("Station-C") {
		t.Errorf("final set = %v, want [Station-C]", set.Names())
	}
	if persisted := store.Load(); persisted.Len() != 1 || !persisted.Has("Station-C") {
		t.Errorf("final persisted = %v, want [Station-C]", persisted.Names())
	}
}
