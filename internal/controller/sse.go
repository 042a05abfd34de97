package controller

import (
	"io"

	"github.com/gin-gonic/gin"
)

// SSERebuilds streams per-pair rebuild progress events as Server-Sent
// Events. The stream ends when the channel closes or the client goes away.
func SSERebuilds(eventCh <-chan []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")

		c.Stream(func(w io.Writer) bool {
			select {
			case msg, ok := <-eventCh:
				if !ok {
					return false
				}
				c.SSEvent("rebuild", string(msg))
				c.Writer.Flush()
				return true
			case <-c.Request.Context().Done():
				return false
			}
		})
	}
}
