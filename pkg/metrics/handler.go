package metrics

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler exposes the counters as JSON for quick inspection.
func Handler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"match_requests_total":   GetMatchRequests(),
		"match_results_total":    GetMatchResults(),
		"ranking_updates_total":  GetRankingUpdates(),
		"ranking_failures_total": GetRankingFailures(),
		"transactions_completed": GetTransactionsCompleted(),
	})
}
