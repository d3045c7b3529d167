package http

import (
	"log"
	"net/http"
	"os"
)

// CrashHandler deliberately terminates the serving worker process after
// responding, exercising the supervisor's restart path end to end.
type CrashHandler struct {
	// exit is swappable so tests can observe the code instead of dying.
	exit func(code int)
}

func NewCrashHandler() *CrashHandler {
	return &CrashHandler{exit: os.Exit}
}

func (h *CrashHandler) Handle(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Crashing worker process..."))

	// Push the response onto the socket before the process dies, otherwise
	// the caller sees a connection error instead of the 200.
	if err := http.NewResponseController(w).Flush(); err != nil {
		log.Printf("Error flushing crash response: %v", err)
	}

	log.Printf("Worker process %d crashing on request", os.Getpid())
	h.exit(1)
}
