package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sghtao/companion-camp-backend/internal/advertisement"
	"github.com/sghtao/companion-camp-backend/internal/coins"
	"github.com/sghtao/companion-camp-backend/internal/data"
	"github.com/sghtao/companion-camp-backend/internal/evaluation"
)

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": ServiceName,
		"version": s.version,
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

type analyzeRequest struct {
	WalletAddress   string `json:"wallet_address"`
	RequiredKeyword string `json:"required_keyword"`
}

// analyze 评估宠物账号并发放奖励
func (s *Server) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.WalletAddress) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "wallet_address is required"})
		return
	}

	username := c.Param("username")
	result, err := s.evaluator.Evaluate(c.Request.Context(), evaluation.Request{
		Handle:          username,
		WalletAddress:   strings.TrimSpace(req.WalletAddress),
		RequiredKeyword: req.RequiredKeyword,
	})
	switch {
	case err == nil:
		c.JSON(http.StatusOK, result)
	case errors.Is(err, evaluation.ErrNoPosts):
		c.JSON(http.StatusOK, gin.H{
			"error":   "no_posts",
			"message": "No recent posts found for @" + data.NormalizeHandle(username),
		})
	case errors.Is(err, data.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "account not found"})
	default:
		s.logger.Error("evaluation failed", "username", username, "err", err, "request_id", c.GetString(requestIDKey))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "evaluation failed"})
	}
}

func (s *Server) listCoins(c *gin.Context) {
	c.JSON(http.StatusOK, s.coins.ListCoins(c.Request.Context()))
}

func (s *Server) purchase(c *gin.Context) {
	var req coins.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}

	id, err := s.coins.RecordPurchase(c.Request.Context(), req)
	if err != nil {
		s.purchaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "success",
		"saved_id": id,
		"message":  "Purchase transaction saved successfully",
	})
}

func (s *Server) purchaseHistory(c *gin.Context) {
	username := c.Param("username")

	purchases, err := s.coins.PurchaseHistory(c.Request.Context(), username)
	if err != nil {
		s.purchaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username":        username,
		"purchases":       purchases,
		"total_purchases": len(purchases),
	})
}

func (s *Server) purchaseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, coins.ErrInvalidPurchase):
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
	case errors.Is(err, coins.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "purchase history is unavailable"})
	default:
		s.logger.Error("purchase storage failed", "err", err, "request_id", c.GetString(requestIDKey))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to access purchase history"})
	}
}

func (s *Server) recommendations(c *gin.Context) {
	rec, err := s.ads.Recommendations(c.Request.Context(), c.Param("username"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, rec)
	case errors.Is(err, data.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "account not found"})
	default:
		s.logger.Error("advertisement recommendation failed", "err", err, "request_id", c.GetString(requestIDKey))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to recommend advertisements"})
	}
}

type selectRequest struct {
	Username      string `json:"username"`
	AdID          string `json:"ad_id"`
	WalletAddress string `json:"wallet_address"`
}

func (s *Server) selectAd(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}

	sel, err := s.ads.Select(c.Request.Context(), req.Username, req.AdID, req.WalletAddress)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"status":      "success",
			"message":     "Advertisement selected",
			"selected_ad": sel,
		})
	case errors.Is(err, advertisement.ErrInvalidSelection):
		c.JSON(http.StatusBadRequest, gin.H{"detail": "username, ad_id and wallet_address are required"})
	case errors.Is(err, advertisement.ErrUnknownAd):
		c.JSON(http.StatusNotFound, gin.H{"detail": "advertisement not found"})
	default:
		s.logger.Error("advertisement selection failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to select advertisement"})
	}
}

func (s *Server) selectedAd(c *gin.Context) {
	username := data.NormalizeHandle(c.Param("username"))

	sel, ok, err := s.ads.Selected(c.Request.Context(), username)
	if err != nil {
		s.logger.Error("advertisement lookup failed", "err", err, "request_id", c.GetString(requestIDKey))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to load selected advertisement"})
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{
			"username":    username,
			"selected_ad": nil,
			"message":     "No advertisement selected",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username":    username,
		"selected_ad": sel,
	})
}
