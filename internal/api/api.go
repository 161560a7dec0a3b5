// Package api exposes the game manager over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kiliankoe/dixit/internal/game"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	M            *game.Manager
	WinningScore int
}

// Mount registers the game routes on r. Admin routes are only mounted when accounts are given.
func (h *Handler) Mount(r gin.IRouter, admin gin.Accounts) {
	g := r.Group("/api/games")
	g.POST("", h.create)
	g.GET("/:id", h.view)
	g.POST("/:id/players", h.join)
	g.POST("/:id/start", h.start)
	g.POST("/:id/story", h.tellStory)
	g.POST("/:id/cards", h.playCard)
	g.POST("/:id/guesses", h.guess)
	g.POST("/:id/score", h.score)
	g.POST("/:id/withdraw", h.withdraw)
	g.POST("/:id/rounds", h.nextRound)

	if len(admin) > 0 {
		r.DELETE("/api/games", gin.BasicAuth(admin), h.deleteAll)
	}
}

// StatusFor maps engine error kinds to HTTP status codes.
func StatusFor(err error) int {
	switch game.KindOf(err) {
	case game.KindNotFound:
		return http.StatusNotFound
	case game.KindState:
		return http.StatusConflict
	case game.KindOperation:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	kind := string(game.KindOf(err))
	if kind == "" {
		kind = "internal"
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": kind})
}

func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "code": "bad_request"})
		return false
	}
	return true
}

func (h *Handler) create(c *gin.Context) {
	var req struct {
		WinningScore int `json:"winningScore"`
	}
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	if req.WinningScore == 0 {
		req.WinningScore = h.WinningScore
	}
	id, err := h.M.Create(c.Request.Context(), req.WinningScore)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"gameId": id})
}

func (h *Handler) view(c *gin.Context) {
	v, err := h.M.View(c.Request.Context(), c.Param("id"), c.Query("playerId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) join(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if !bind(c, &req) {
		return
	}
	pid, err := h.M.Join(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"playerId": pid})
}

func (h *Handler) start(c *gin.Context) {
	h.respond(c, h.M.Start(c.Request.Context(), c.Param("id")))
}

type cardRequest struct {
	PlayerID string `json:"playerId" binding:"required"`
	CardID   int    `json:"cardId" binding:"required"`
	Phrase   string `json:"phrase"`
}

func (h *Handler) tellStory(c *gin.Context) {
	var req cardRequest
	if !bind(c, &req) {
		return
	}
	h.respond(c, h.M.TellStory(c.Request.Context(), c.Param("id"), req.PlayerID, req.Phrase, req.CardID))
}

func (h *Handler) playCard(c *gin.Context) {
	var req cardRequest
	if !bind(c, &req) {
		return
	}
	h.respond(c, h.M.PlayCard(c.Request.Context(), c.Param("id"), req.PlayerID, req.CardID))
}

func (h *Handler) guess(c *gin.Context) {
	var req cardRequest
	if !bind(c, &req) {
		return
	}
	h.respond(c, h.M.GuessStory(c.Request.Context(), c.Param("id"), req.PlayerID, req.CardID))
}

func (h *Handler) score(c *gin.Context) {
	gains, err := h.M.Score(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gains": gains})
}

func (h *Handler) withdraw(c *gin.Context) {
	h.respond(c, h.M.WithdrawCards(c.Request.Context(), c.Param("id")))
}

func (h *Handler) nextRound(c *gin.Context) {
	h.respond(c, h.M.StartNextRound(c.Request.Context(), c.Param("id")))
}

func (h *Handler) deleteAll(c *gin.Context) {
	if err := h.M.DeleteAll(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) respond(c *gin.Context, err error) {
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
