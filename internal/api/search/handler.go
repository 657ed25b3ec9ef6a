// Package search implements the /search endpoint: validate the queried
// postcode, pull the organisation directory from the upstream, and return the
// active firms with an office in the same postal district.
package search

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/briefbase/sra-finder/internal/postcode"
	"github.com/briefbase/sra-finder/internal/sra"
	"github.com/briefbase/sra-finder/internal/telemetry"
)

// Handler returns the /search handler. The flow is strictly
// validate → fetch → filter: validation failures are rejected with 422 before
// any network I/O, and an upstream outage surfaces as 502 carrying the last
// failed host's diagnostic detail.
func Handler(client *sra.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		target := postcode.Normalize(c.Query("postcode"))
		if !postcode.IsValidUKPostcode(target) {
			telemetry.SearchesTotal.WithLabelValues("invalid_postcode").Inc()
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":  "invalid_postcode",
				"detail": "Please provide a valid UK postcode.",
			})
			return
		}

		orgs, err := client.FetchOrganisations(c.Request.Context())
		if err != nil {
			telemetry.SearchesTotal.WithLabelValues("upstream_error").Inc()
			var upstreamErr *sra.UpstreamError
			if errors.As(err, &upstreamErr) {
				c.JSON(http.StatusBadGateway, gin.H{
					"error":    "upstream_unavailable",
					"host":     upstreamErr.Host,
					"category": string(upstreamErr.Category),
					"detail":   upstreamErr.Message,
				})
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{
				"error":  "upstream_unavailable",
				"detail": err.Error(),
			})
			return
		}

		results := sra.FilterAndProject(orgs, target)
		telemetry.SearchesTotal.WithLabelValues("ok").Inc()
		telemetry.SearchResultsReturned.Observe(float64(len(results)))
		c.JSON(http.StatusOK, gin.H{
			"count":   len(results),
			"results": results,
		})
	}
}
