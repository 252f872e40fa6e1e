// Score event stream.
//
//   - GET /events   (Server-Sent Events of other players' accepted scores)
//
// Each accepted score is sent as an SSE event named "score" with a JSON body
// {name, score, at}. The caller's own scores are not echoed back. A "ping"
// event is written on every heartbeat so proxies keep the connection open.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Events godoc
// @ID          scoreEvents
// @Summary     Live score stream
// @Description Streams other players' accepted scores as Server-Sent Events (event: score).
// @Tags        Scores
// @Produce     text/event-stream
//
// @Param       X-User-ID  header  string  false "User identity (demo header)"  example(ann@example.com)
//
// @Success     200  {string}  string  "event stream"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Failure     503  {object}  handlers.ErrorResponse "Event stream disabled"
// @Router      /events [get]
func (h *Handlers) Events(c *gin.Context) {
	if h.events == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "event stream disabled")
		return
	}

	ch, cancel := h.events.Subscribe(identity(c))
	defer cancel()

	hdr := c.Writer.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	tick := time.NewTicker(h.heartbeat)
	defer tick.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case e, open := <-ch:
			if !open {
				return
			}
			c.SSEvent("score", e)
			c.Writer.Flush()
		case t := <-tick.C:
			c.SSEvent("ping", t.UTC().Format(time.RFC3339))
			c.Writer.Flush()
		}
	}
}
