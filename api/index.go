package handler

import (
	"net/http"
	"sync"

	"marketplace-backend/bootstrap"
	"marketplace-backend/internal/interfaces/router"

	"github.com/rs/zerolog/log"
)

var (
	once    sync.Once
	handler http.Handler
	initErr error
)

func load() {
	app, err := bootstrap.New()
	if err != nil {
		initErr = err
		log.Error().Err(err).Msg("marketplace api: startup failed")
		return
	}
	handler = router.Handler(app)
}

// Handler is the Vercel serverless entry point; vercel.json rewrites every
// path here. The app is built on the first request of each instance.
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(load)
	if initErr != nil {
		http.Error(w, `{"status":"error","error":{"message":"Service unavailable","statusCode":503}}`, http.StatusServiceUnavailable)
		return
	}
	r.RequestURI = r.URL.String()
	handler.ServeHTTP(w, r)
}
