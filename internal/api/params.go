package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/erazemk/storeroom/internal/store"
)

// pathID parses the :id route parameter.
func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, invalid("invalid id")
	}
	return id, nil
}

// queryID parses an optional positive id query parameter.
func queryID(c *gin.Context, name string) (*int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return nil, invalid("invalid " + name)
	}
	return &id, nil
}

// queryUint parses an optional non-negative integer query parameter.
func queryUint(c *gin.Context, name string) (uint64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, invalid("invalid " + name)
	}
	return n, nil
}

// pagination reads limit and offset into a transaction filter.
func pagination(c *gin.Context) (store.TransactionFilter, error) {
	limit, err := queryUint(c, "limit")
	if err != nil {
		return store.TransactionFilter{}, err
	}
	offset, err := queryUint(c, "offset")
	if err != nil {
		return store.TransactionFilter{}, err
	}
	if limit > 1000 {
		limit = 1000
	}
	return store.TransactionFilter{Limit: limit, Offset: offset}, nil
}
