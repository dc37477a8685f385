package stats

import (
	"net/http"
	_ "net/http/pprof"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omniscale/osmcsv/logging"
)

var log = logging.NewLogger("stats")

// StartHttpPProf serves pprof and Prometheus /metrics on bind.
func StartHttpPProf(bind string) {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Print(http.ListenAndServe(bind, nil))
	}()
}
