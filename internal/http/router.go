package httpserver

import "net/http"

// Routes groups handlers. Everything under /api requires operator auth.
type Routes struct {
	Login http.HandlerFunc

	Stats          http.HandlerFunc
	RecentSessions http.HandlerFunc
	ActiveSessions http.HandlerFunc
	Slots          http.HandlerFunc
	Devices        http.HandlerFunc

	ListCards      http.HandlerFunc
	CreateCard     http.HandlerFunc
	DeactivateCard http.HandlerFunc

	EntryScan  http.HandlerFunc
	ExitScan   http.HandlerFunc
	ExitCash   http.HandlerFunc
	ExitCancel http.HandlerFunc
	ExitQR     http.HandlerFunc
	ExitStatus http.HandlerFunc

	PaymentCode   http.HandlerFunc
	PaymentVerify http.HandlerFunc

	GateWS http.HandlerFunc
	Health http.HandlerFunc
}

// AuthFunc wraps protected handlers.
type AuthFunc func(http.Handler) http.Handler

// NewRouter registers endpoints.
func NewRouter(routes Routes, authenticate AuthFunc) http.Handler {
	mux := http.NewServeMux()

	register := func(pattern, expected string, handler http.HandlerFunc, protected bool) {
		if handler == nil {
			return
		}
		guarded := method(expected, handler)
		if protected && authenticate != nil {
			mux.Handle(pattern, authenticate(guarded))
			return
		}
		mux.Handle(pattern, guarded)
	}

	register("/auth/login", http.MethodPost, routes.Login, false)
	register("/health", http.MethodGet, routes.Health, false)

	register("/api/stats", http.MethodGet, routes.Stats, true)
	register("/api/sessions/recent", http.MethodGet, routes.RecentSessions, true)
	register("/api/sessions/active", http.MethodGet, routes.ActiveSessions, true)
	register("/api/slots", http.MethodGet, routes.Slots, true)
	register("/api/devices", http.MethodGet, routes.Devices, true)

	register("/api/cards", http.MethodGet, routes.ListCards, true)
	register("/api/cards/create", http.MethodPost, routes.CreateCard, true)
	register("/api/cards/deactivate", http.MethodPost, routes.DeactivateCard, true)

	register("/api/entry", http.MethodPost, routes.EntryScan, true)
	register("/api/exit", http.MethodPost, routes.ExitScan, true)
	register("/api/exit/cash", http.MethodPost, routes.ExitCash, true)
	register("/api/exit/cancel", http.MethodPost, routes.ExitCancel, true)
	register("/api/exit/qr", http.MethodPost, routes.ExitQR, true)
	register("/api/exit/status", http.MethodGet, routes.ExitStatus, true)

	register("/api/payments/code", http.MethodPost, routes.PaymentCode, true)
	register("/api/payments/verify", http.MethodPost, routes.PaymentVerify, true)

	if routes.GateWS != nil {
		mux.Handle("/gate/ws", method(http.MethodGet, routes.GateWS))
	}

	return mux
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}
