package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"loandesk-backend/internal/shared/server/middleware"
	"loandesk-backend/internal/shared/server/respond"
	"loandesk-backend/internal/shared/telemetry"
)

// Handler wires HTTP handlers to the users service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches auth and user-management routes. Login is the only
// unauthenticated route; management is admin-only.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/login", h.login)
	rg.GET("/me", h.me)

	admin := rg.Group("/users", middleware.RequireAdmin())
	admin.POST("", h.create)
	admin.GET("", h.list)
	admin.GET("/:id", h.get)
	admin.PUT("/:id/loan-access", h.updateLoanAccess)
	admin.DELETE("/:id", h.remove)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	user, token, err := h.Svc.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "invalid username or password", nil)
			return
		}
		telemetry.Error("users.login.failed", map[string]any{"username": req.Username, "error": err.Error()})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "login failed", nil)
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"user":    user,
	})
}

func (h *Handler) me(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return
	}

	user, err := h.Svc.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch user", nil)
		return
	}
	respond.JSON(c, http.StatusOK, user)
}

type createRequest struct {
	Username   string   `json:"username"`
	Password   string   `json:"password"`
	FullName   string   `json:"fullName"`
	Role       string   `json:"role"`
	Email      string   `json:"email"`
	Phone      string   `json:"phone"`
	LoanAccess []string `json:"loanAccess"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	user, err := h.Svc.Create(c.Request.Context(), CreateInput{
		Username:   req.Username,
		Password:   req.Password,
		FullName:   req.FullName,
		Role:       req.Role,
		Email:      req.Email,
		Phone:      req.Phone,
		LoanAccess: req.LoanAccess,
	})
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			respond.Error(c, http.StatusConflict, "conflict", "username already taken", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	respond.JSON(c, http.StatusCreated, user)
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.Svc.List(c.Request.Context())
	if err != nil {
		telemetry.Error("users.list.failed", map[string]any{"error": err.Error()})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list users", nil)
		return
	}
	if list == nil {
		list = []User{}
	}
	respond.JSON(c, http.StatusOK, gin.H{"success": true, "users": list})
}

func (h *Handler) get(c *gin.Context) {
	user, err := h.Svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch user", nil)
		return
	}
	respond.JSON(c, http.StatusOK, user)
}

type loanAccessRequest struct {
	LoanAccess []string `json:"loanAccess"`
}

func (h *Handler) updateLoanAccess(c *gin.Context) {
	var req loanAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	if err := h.Svc.UpdateLoanAccess(c.Request.Context(), c.Param("id"), req.LoanAccess); err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update loan access", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"success": true})
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete user", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"success": true})
}
