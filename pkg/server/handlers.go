package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/entrhq/headline/pkg/rpc"
	"github.com/entrhq/headline/pkg/service"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, s.backend.Health(c.Request.Context()))
}

func (s *Server) handleCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"procedures": s.registry.Catalog()})
}

func (s *Server) handleCall(c *gin.Context) {
	name := c.Param("name")
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, service.Response{Message: err.Error()})
		return
	}

	resp, err := s.registry.Call(c.Request.Context(), name, body)
	switch {
	case errors.Is(err, rpc.ErrUnknownProcedure):
		c.JSON(http.StatusNotFound, service.Response{Message: err.Error()})
	case err != nil:
		c.JSON(http.StatusBadRequest, service.Response{Message: err.Error()})
	default:
		c.JSON(http.StatusOK, resp)
	}
}

// legacyResult is the envelope of the legacy publish routes.
type legacyResult struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Data    *service.Response `json:"data,omitempty"`
}

func legacy(resp service.Response) legacyResult {
	out := legacyResult{Status: "success", Message: resp.Message, Data: &resp}
	if !resp.Success {
		out.Status = "error"
	}
	return out
}

func legacyError(message string) legacyResult {
	return legacyResult{Status: "error", Message: message}
}

func (s *Server) handleCreateArticle(c *gin.Context) {
	var args rpc.ArticleArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, legacyError(err.Error()))
		return
	}
	s.logger.Infof("legacy article request: %q (%d images)", args.Title, len(args.Images))

	req, err := args.Request()
	if err != nil {
		c.JSON(http.StatusOK, legacyError(rpc.Rejected(err).Message))
		return
	}
	c.JSON(http.StatusOK, legacy(s.backend.PublishArticle(c.Request.Context(), req)))
}

func (s *Server) handleCreateMicroPost(c *gin.Context) {
	var args rpc.MicroArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, legacyError(err.Error()))
		return
	}
	s.logger.Infof("legacy micro-post request (%d images)", len(args.Images))

	req, err := args.Request()
	if err != nil {
		c.JSON(http.StatusOK, legacyError(rpc.Rejected(err).Message))
		return
	}
	c.JSON(http.StatusOK, legacy(s.backend.PublishMicroPost(c.Request.Context(), req)))
}

func (s *Server) handleLegacyHealth(c *gin.Context) {
	h := s.backend.Health(c.Request.Context())
	status := "not_initialized"
	if h.ServiceInitialized {
		status = "initialized"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         h.Status,
		"service_status": status,
		"login_status":   h.Authenticated,
		"message":        h.Message,
	})
}
