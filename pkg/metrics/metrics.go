package metrics

import (
	"sync/atomic"
)

type Metrics struct {
	matchRequestsTotal    int64
	matchResultsTotal     int64
	rankingUpdatesTotal   int64
	rankingFailuresTotal  int64
	transactionsCompleted int64
}

var global = &Metrics{}

func IncrementMatchRequests() {
	atomic.AddInt64(&global.matchRequestsTotal, 1)
}

func AddMatchResults(count int64) {
	atomic.AddInt64(&global.matchResultsTotal, count)
}

func IncrementRankingUpdates() {
	atomic.AddInt64(&global.rankingUpdatesTotal, 1)
}

func IncrementRankingFailures() {
	atomic.AddInt64(&global.rankingFailuresTotal, 1)
}

func IncrementTransactionsCompleted() {
	atomic.AddInt64(&global.transactionsCompleted, 1)
}

func GetMatchRequests() int64 {
	return atomic.LoadInt64(&global.matchRequestsTotal)
}

func GetMatchResults() int64 {
	return atomic.LoadInt64(&global.matchResultsTotal)
}

func GetRankingUpdates() int64 {
	return atomic.LoadInt64(&global.rankingUpdatesTotal)
}

func GetRankingFailures() int64 {
	return atomic.LoadInt64(&global.rankingFailuresTotal)
}

func GetTransactionsCompleted() int64 {
	return atomic.LoadInt64(&global.transactionsCompleted)
}

func Reset() {
	atomic.StoreInt64(&global.matchRequestsTotal, 0)
	atomic.StoreInt64(&global.matchResultsTotal, 0)
	atomic.StoreInt64(&global.rankingUpdatesTotal, 0)
	atomic.StoreInt64(&global.rankingFailuresTotal, 0)
	atomic.StoreInt64(&global.transactionsCompleted, 0)
}
