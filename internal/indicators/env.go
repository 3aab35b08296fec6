package indicators

import (
	"os"
	"strings"

	"github.com/juju/errors"

	"kardashev/internal/providers/eia"
	"kardashev/internal/providers/worldbank"
)

// ServiceFromEnv builds a Service whose providers and ranking period are
// configured from the environment.
func ServiceFromEnv(metrics *Collector) (*Service, error) {
	wbConfig, err := worldbank.ConfigFromEnv()
	if err != nil {
		return nil, errors.Annotate(err, "worldbank config")
	}
	wb, err := worldbank.NewWithConfig(wbConfig)
	if err != nil {
		return nil, errors.Trace(err)
	}

	eiaConfig, err := eia.ConfigFromEnv()
	if err != nil {
		return nil, errors.Annotate(err, "eia config")
	}
	energy, err := eia.NewWithConfig(eiaConfig)
	if err != nil {
		return nil, errors.Trace(err)
	}

	return NewService(Config{
		WorldBank:     wb,
		Energy:        energy,
		Metrics:       metrics,
		RankingPeriod: RankingPeriodFromEnv(),
	})
}

// RankingPeriodFromEnv reads KARDASHEV_RANKING_PERIOD.
func RankingPeriodFromEnv() string {
	return strings.TrimSpace(os.Getenv("KARDASHEV_RANKING_PERIOD"))
}
