// Package webhookhttp exposes the signal pipeline over gin.
package webhookhttp

import (
	"context"
	"errors"
	"net/http"

	"tradegate/internal/pipeline"

	"github.com/gin-gonic/gin"
)

const maxBodyBytes = 64 << 10

// SignalHandler turns one raw request body into a response.
type SignalHandler interface {
	Handle(ctx context.Context, body []byte) pipeline.Result
}

type Router struct {
	handler SignalHandler
}

func NewRouter(handler SignalHandler) *Router {
	return &Router{handler: handler}
}

// Register mounts the POST-only signal route. Other methods on the same path
// fall through to the engine's NoMethod handler.
func (r *Router) Register(engine *gin.Engine, path string) {
	if engine == nil {
		return
	}
	engine.POST(path, r.handleSignal)
}

func (r *Router) handleSignal(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	body, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, pipeline.ErrorBody{Error: "Payload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, pipeline.ErrorBody{Error: "Invalid payload"})
		return
	}
	res := r.handler.Handle(c.Request.Context(), body)
	c.JSON(res.Status, res.Body)
}
