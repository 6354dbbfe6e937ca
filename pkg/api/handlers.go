package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"divvy/pkg/portfolio"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const iconSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 64 64"><circle cx="32" cy="32" r="30" fill="#16a34a"/><text x="32" y="42" font-size="28" text-anchor="middle" fill="#fff" font-family="sans-serif">D</text></svg>`

type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// metadata is the mb-metadata header. Identity fields may sit at the top
// level or under accountData.
type metadata struct {
	portfolio.Identity
	AccountData *portfolio.Identity `json:"accountData"`
}

func parseIdentity(header string) (*portfolio.Identity, error) {
	if header == "" {
		return nil, nil
	}

	var meta metadata
	if err := json.Unmarshal([]byte(header), &meta); err != nil {
		return nil, err
	}

	identity := meta.Identity
	if meta.AccountData != nil {
		if identity.AccountID == "" {
			identity.AccountID = meta.AccountData.AccountID
		}
		if identity.EVMAddress == "" {
			identity.EVMAddress = meta.AccountData.EVMAddress
		}
	}
	return &identity, nil
}

func (s *Server) getBalance(c *gin.Context) {
	identity, err := parseIdentity(c.GetHeader(MetadataHeader))
	if err != nil {
		// Unreadable metadata still gets the placeholders
		s.log.Warn("Ignoring malformed metadata header",
			zap.String("request_id", GetRequestID(c)),
			zap.Error(err),
		)
		identity = &portfolio.Identity{}
	}

	c.JSON(http.StatusOK, s.portfolio.Balance(identity))
}

func (s *Server) createAllowance(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.log.Error("Error reading allowance request", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: portfolio.ErrCreateFailed.Error()})
		return
	}

	cfg, err := portfolio.DecodeAllowance(body)
	if err != nil {
		s.log.Error("Error creating allowance", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: portfolio.ErrCreateFailed.Error()})
		return
	}

	message, err := s.portfolio.CreateAllowance(cfg)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, portfolio.ErrMissingFields) {
			status = http.StatusBadRequest
		}
		c.JSON(status, errorResponse{Error: err.Error()})
		return
	}
	if !portfolio.IsKnownStablecoin(string(cfg.Stablecoin)) {
		s.log.Warn("Allowance uses an unlisted stablecoin", zap.String("stablecoin", string(cfg.Stablecoin)))
	}

	c.JSON(http.StatusOK, successResponse{Success: true, Message: message})
}

func (s *Server) removeAllowance(c *gin.Context) {
	c.JSON(http.StatusOK, successResponse{Success: true, Message: s.portfolio.RemoveAllowance()})
}

func (s *Server) manifest(c *gin.Context) {
	c.JSON(http.StatusOK, Manifest(s.opts.PluginURL, s.opts.AccountID))
}

func (s *Server) icon(c *gin.Context) {
	c.Data(http.StatusOK, "image/svg+xml", []byte(iconSVG))
}
