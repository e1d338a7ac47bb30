package channels

import "net/http"

// Channel is an alternative chat front end mounted on the gateway mux.
type Channel interface {
	Name() string
	RegisterRoutes(mux *http.ServeMux)
}
