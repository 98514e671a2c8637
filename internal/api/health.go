package api

import "net/http"

// Health answers liveness checks. No dependency checks: the process
// being able to respond at all is the signal load balancers care about.
func Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
