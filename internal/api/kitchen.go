package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuistot-app/backend/internal/llm"
	"github.com/cuistot-app/backend/internal/middleware"
	"github.com/cuistot-app/backend/internal/session"
	"github.com/cuistot-app/backend/internal/types"
)

// KitchenHandler exposes the kitchen session over REST. Both authenticated
// users and guests share these routes; identity resolution happens in the
// OptionalAuth middleware.
type KitchenHandler struct {
	sessions *session.Manager
}

// NewKitchenHandler creates a new KitchenHandler instance
func NewKitchenHandler(sessions *session.Manager) *KitchenHandler {
	return &KitchenHandler{sessions: sessions}
}

func (h *KitchenHandler) session(c *gin.Context) *session.Session {
	key := c.GetString(middleware.ContextSessionKey)
	userID := c.GetString(middleware.ContextUserID)
	return h.sessions.Get(c.Request.Context(), key, userID)
}

func parseLocale(lang string) llm.Locale {
	if lang == string(llm.LocaleFR) {
		return llm.LocaleFR
	}
	return llm.LocaleEN
}

// GetState handles GET /kitchen
func (h *KitchenHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.session(c).State())
}

// SetIngredients handles PUT /kitchen/ingredients
func (h *KitchenHandler) SetIngredients(c *gin.Context) {
	var req IngredientsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	s := h.session(c)
	if err := s.SetIngredients(c.Request.Context(), req.Ingredients); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.State())
}

// SetSecretIngredients handles PUT /kitchen/secret-ingredients
func (h *KitchenHandler) SetSecretIngredients(c *gin.Context) {
	var req SecretIngredientsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	s := h.session(c)
	s.SetSecretIngredients(c.Request.Context(), req.SecretIngredients)
	c.JSON(http.StatusOK, s.State())
}

// SetPreferences handles PUT /kitchen/preferences
func (h *KitchenHandler) SetPreferences(c *gin.Context) {
	var req types.Preferences
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	s := h.session(c)
	s.SetPreferences(c.Request.Context(), req)
	c.JSON(http.StatusOK, s.State())
}

// Generate handles POST /kitchen/generate
func (h *KitchenHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	_ = c.ShouldBindJSON(&req)

	s := h.session(c)
	s.GenerateList(c.Request.Context(), parseLocale(req.Lang))
	c.JSON(http.StatusOK, s.State())
}

// GeneratePlan handles POST /kitchen/plan
func (h *KitchenHandler) GeneratePlan(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Days != 3 && req.Days != 7 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be 3 or 7"})
		return
	}

	s := h.session(c)
	s.GeneratePlan(c.Request.Context(), req.Days, parseLocale(req.Lang))
	c.JSON(http.StatusOK, s.State())
}

// ExpandRecipe handles POST /kitchen/recipes/:id/expand
func (h *KitchenHandler) ExpandRecipe(c *gin.Context) {
	var req GenerateRequest
	_ = c.ShouldBindJSON(&req)

	s := h.session(c)
	s.ExpandDetails(c.Request.Context(), c.Param("id"), parseLocale(req.Lang))
	c.JSON(http.StatusOK, s.State())
}

// UpdateRecipe handles PUT /kitchen/recipes/:id
func (h *KitchenHandler) UpdateRecipe(c *gin.Context) {
	var req types.Recipe
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.ID = c.Param("id")

	s := h.session(c)
	s.UpdateRecipe(c.Request.Context(), req)
	c.JSON(http.StatusOK, s.State())
}

// ListChats handles GET /kitchen/chats
func (h *KitchenHandler) ListChats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"chats": h.session(c).State().ChatHistory})
}

// SelectChat handles POST /kitchen/chats/:id/select
func (h *KitchenHandler) SelectChat(c *gin.Context) {
	s := h.session(c)
	s.SelectChat(c.Request.Context(), c.Param("id"))
	c.JSON(http.StatusOK, s.State())
}

// Clear handles POST /kitchen/clear
func (h *KitchenHandler) Clear(c *gin.Context) {
	s := h.session(c)
	s.Clear(c.Request.Context())
	c.JSON(http.StatusOK, s.State())
}
