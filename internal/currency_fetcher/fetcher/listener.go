package fetcher

import "github.com/langowen/converter/internal/entities"

// Listener receives the outcome of every applied refresh.
// Calls are serialized and never made for a stale response.
// OnRefreshEnd follows every OnRefreshStart, stale or not.
type Listener interface {
	OnRefreshStart()
	OnRates(table *entities.RateTable)
	OnFailure(err error)
	OnRefreshEnd()
}
