package server

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mdbarr/mock-services/internal/stripe/model"
)

// listQuery parses the shared pagination and filter parameters.
func listQuery(c *gin.Context) model.ListQuery {
	query := model.ListQuery{
		StartingAfter: c.Query("starting_after"),
		EndingBefore:  c.Query("ending_before"),
		Status:        c.Query("status"),
		Type:          c.Query("type"),
	}

	if limit := c.Query("limit"); limit != "" {
		if parsed, err := strconv.Atoi(limit); err == nil {
			query.Limit = parsed
		}
	}

	query.Created = createdFilter(c)
	return query
}

// createdFilter accepts created=<ts> or the bracketed range forms
// created[gt], created[gte], created[lt] and created[lte].
func createdFilter(c *gin.Context) *model.CreatedFilter {
	filter := &model.CreatedFilter{}
	set := false

	assign := func(key string, target **int64) {
		if raw := c.Query(key); raw != "" {
			if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
				*target = &parsed
				set = true
			}
		}
	}

	assign("created", &filter.Eq)
	assign("created[gt]", &filter.GT)
	assign("created[gte]", &filter.GTE)
	assign("created[lt]", &filter.LT)
	assign("created[lte]", &filter.LTE)

	if !set {
		return nil
	}
	return filter
}
