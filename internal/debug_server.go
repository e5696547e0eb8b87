package internal

import (
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"nolmessage/contract"
	"nolmessage/domain"
	"nolmessage/observability"
	"time"

	"github.com/samber/lo"
)

//go:embed inspect.html
var templatesFS embed.FS

// RoomRow is one line of the room inspector.
type RoomRow struct {
	ID           domain.RoomID `json:"id"`
	Members      int           `json:"members"`
	Capacity     int           `json:"capacity"`
	History      int           `json:"history"`
	LastActivity time.Time     `json:"last_activity"`
	Full         bool          `json:"full"`
}

type DebugSnapshot struct {
	Rooms []RoomRow                     `json:"rooms"`
	Stats observability.MonitoringStats `json:"stats"`
}

// DebugServer exposes the room table and the counters, as JSON on the
// rooms endpoint and as a page on the inspect endpoint.
type DebugServer struct {
	log        *slog.Logger
	store      contract.IRoomStore
	monitoring *observability.MonitoringManager
	tmpl       *template.Template
}

func NewDebugServer(log *slog.Logger, store contract.IRoomStore, monitoring *observability.MonitoringManager) *DebugServer {
	return &DebugServer{
		log:        log,
		store:      store,
		monitoring: monitoring,
		tmpl:       template.Must(template.ParseFS(templatesFS, "inspect.html")),
	}
}

// Register mounts the debug endpoints on mux.
func (d *DebugServer) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /debug/rooms", d.handleRooms)
	mux.HandleFunc("GET /debug/inspect", d.handleInspect)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
}

func (d *DebugServer) Snapshot() DebugSnapshot {
	rows := lo.Map(d.store.Snapshot(), func(item domain.Stats, _ int) RoomRow {
		return RoomRow{
			ID:           item.ID,
			Members:      item.Members,
			Capacity:     item.Capacity,
			History:      item.History,
			LastActivity: item.LastActivity,
			Full:         item.Members >= item.Capacity,
		}
	})
	return DebugSnapshot{Rooms: rows, Stats: d.monitoring.GetLatest()}
}

func (d *DebugServer) handleRooms(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(d.Snapshot()); err != nil {
		d.log.Warn("Failed to write debug snapshot", "error", err)
	}
}

func (d *DebugServer) handleInspect(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := d.tmpl.Execute(w, d.Snapshot()); err != nil {
		d.log.Warn("Failed to render inspector", "error", err)
	}
}
