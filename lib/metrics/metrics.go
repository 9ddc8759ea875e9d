// Package metrics holds the Prometheus collectors for the runtime and the
// token issuer. Collectors are package-level so every component can update
// them without threading a registry through; Register exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TokenFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hxglue_token_fetches_total",
		Help: "Token fetches against the issuing endpoint, by result",
	}, []string{"result"})

	TokenDOMReads = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hxglue_token_dom_reads_total",
		Help: "Refreshes served from the form field instead of the network",
	})

	ErrorPresentations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hxglue_error_presentations_total",
		Help: "Failed responses rendered into the main content region, by status code",
	}, []string{"code"})

	Patches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hxglue_patches_total",
		Help: "DOM reconciliations, by kind (patch, split, swap)",
	}, []string{"kind"})

	TokensIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hxglue_tokens_issued_total",
		Help: "Tokens minted by the issuer",
	})

	TokenRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hxglue_token_rejections_total",
		Help: "Requests refused by the issuer middleware, by reason",
	}, []string{"reason"})
)

// All returns every collector in this package.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		TokenFetches,
		TokenDOMReads,
		ErrorPresentations,
		Patches,
		TokensIssued,
		TokenRejections,
	}
}

// Register registers the collectors on reg (or the default registerer if
// nil). Registering twice is not an error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range All() {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
