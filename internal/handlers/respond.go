package handlers

import "github.com/gin-gonic/gin"

// envelope is the response shape every endpoint uses:
// {status, data?, message?, details?}. Details carry internal error text and
// are withheld in production.
type envelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

func (h HandlerSet) success(c *gin.Context, code int, data any) {
	c.JSON(code, envelope{Status: "success", Data: data})
}

func (h HandlerSet) failure(c *gin.Context, code int, message string, err error) {
	resp := envelope{Status: "error", Message: message}
	if err != nil && !h.cfg.Production() {
		resp.Details = err.Error()
	}
	c.JSON(code, resp)
}
