// Package rest exposes the guild services over HTTP. Handlers stay thin:
// parse, call the service, map the fault kind onto a status code.
package rest

import (
	"net/http"
	"strconv"

	"github.com/emberveil-online/guildserver/game/fault"
	"github.com/gin-gonic/gin"
)

// respondErr maps a service error onto an HTTP status. Unexpected errors
// become a generic 500; the details stay in the server log, not the client.
func respondErr(c *gin.Context, err error) {
	switch fault.KindOf(err) {
	case fault.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case fault.KindConflict:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case fault.KindForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case fault.KindInvalidInput:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// pathID parses a numeric path parameter, responding 400 on garbage.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
