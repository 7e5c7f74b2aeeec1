package dashboard

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"nifty-signal/internal/markethours"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// RegisterRoutes registers the dashboard REST and WebSocket routes.
func RegisterRoutes(mux *http.ServeMux, svc *Service, hub *Hub) {
	mux.HandleFunc("GET /api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		snap := svc.Latest()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":       "ok",
			"last_refresh": snap.GeneratedAt,
			"market_open":  markethours.IsMarketOpen(time.Now()),
			"ws_clients":   hub.ClientCount(),
		})
	})

	mux.HandleFunc("GET /api/v1/dashboard", func(w http.ResponseWriter, r *http.Request) {
		snap := svc.Latest()
		if snap.GeneratedAt.IsZero() {
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "no snapshot yet", Kind: "upstream"})
			return
		}
		writeJSON(w, http.StatusOK, snap)
	})

	mux.HandleFunc("GET /api/v1/signal", func(w http.ResponseWriter, r *http.Request) {
		snap := svc.Latest()
		if snap.Signal == nil {
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "signal not available", Kind: signalWarningKind(snap)})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"symbol":     snap.Symbol,
			"signal":     snap.Signal,
			"crossovers": snap.Crossovers,
			"market":     snap.Market,
			"trace_id":   snap.TraceID,
		})
	})

	mux.HandleFunc("GET /api/v1/optionchain", func(w http.ResponseWriter, r *http.Request) {
		snap := svc.Latest()
		if len(snap.OptionChain) == 0 {
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "option chain not available currently", Kind: "upstream"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"expiry":         snap.OptionExpiry,
			"strikes":        snap.OptionChain,
			"put_call_ratio": snap.PutCallRatio,
		})
	})

	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[dashboard] ws upgrade error: %v", err)
			return
		}
		hub.Register(conn)
	})
}

// signalWarningKind returns the error kind that kept the signal from being
// computed, defaulting to "upstream".
func signalWarningKind(s Snapshot) string {
	for _, w := range s.Warnings {
		switch w.Kind {
		case "config", "insufficient_data", "malformed_bar", "upstream":
			return w.Kind
		}
	}
	return "upstream"
}
