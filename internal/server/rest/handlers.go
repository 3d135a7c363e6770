package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mizphses/kips/internal/common"
	"github.com/mizphses/kips/internal/wallet"
)

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type passObjectRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to the Kips API",
		"health":  "ok",
	})
}

func (s *Server) handleRegister(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "email and password are required"})
		return
	}

	ctx := c.Request.Context()
	s.logger.Info(ctx, "Registration request")

	ok, err := s.accounts.Register(ctx, req.Email, req.Password)
	if err != nil {
		s.storeFailure(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"message": "registration failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "registered"})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "email and password are required"})
		return
	}

	ctx := c.Request.Context()

	ok, err := s.accounts.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		s.storeFailure(c, err)
		return
	}
	if !ok {
		s.unauthorized(c)
		return
	}

	token, err := s.accounts.IssueToken(ctx, req.Email)
	if err != nil {
		s.logger.Error(ctx, "token issuance failure", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) handleGetKey(c *gin.Context) {
	ctx := c.Request.Context()

	key, err := s.accounts.GetAPIKey(ctx, authedEmail(c))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "no api key"})
			return
		}
		s.storeFailure(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"api_key": key})
}

func (s *Server) handleRotateKey(c *gin.Context) {
	ctx := c.Request.Context()
	email := authedEmail(c)

	rotated, err := s.accounts.RevokeAndReissue(ctx, email)
	if err != nil {
		s.storeFailure(c, err)
		return
	}
	if !rotated {
		c.JSON(http.StatusNotFound, gin.H{"message": "no api key"})
		return
	}

	key, err := s.accounts.GetAPIKey(ctx, email)
	if err != nil {
		s.storeFailure(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"api_key": key})
}

func (s *Server) handlePassClass(c *gin.Context) {
	if s.wallet == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "wallet not configured"})
		return
	}

	ctx := c.Request.Context()

	created, err := s.wallet.EnsureClass(ctx, wallet.DefaultClass(s.wallet.ClassID()))
	if err != nil {
		s.logger.Error(ctx, "pass class creation failure", "error", err.Error())
		c.JSON(http.StatusBadGateway, gin.H{"message": "pass class creation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "pass class ready",
		"class_id": s.wallet.ClassID(),
		"created":  created,
	})
}

func (s *Server) handlePassObject(c *gin.Context) {
	if s.wallet == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "wallet not configured"})
		return
	}

	ctx := c.Request.Context()
	email := authedEmail(c)

	// The body is optional; with no content the pass QR code carries the
	// account email.
	var req passObjectRequest
	_ = c.ShouldBindJSON(&req)

	content := req.Content
	if content == "" {
		content = email
	}

	object := s.wallet.BuildObject(s.wallet.ClassID(), content)

	saveURL, err := s.wallet.SaveURL(object)
	if err != nil {
		s.logger.Error(ctx, "pass object signing failure", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}

	if err := s.accounts.RecordPassObject(ctx, email, object.ID); err != nil {
		s.storeFailure(c, err)
		return
	}

	s.logger.Info(ctx, "pass object created", "email", email, "object_id", object.ID)
	c.JSON(http.StatusCreated, gin.H{
		"message":   "pass object created",
		"object_id": object.ID,
		"save_url":  saveURL,
	})
}
