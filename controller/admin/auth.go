package admin

import (
	"errors"
	"net/http"
	"strings"

	"civicvoice/controller"
	"civicvoice/dto"
	"civicvoice/middleware"
	"civicvoice/model"
	"civicvoice/services"
	"civicvoice/store"

	"github.com/gin-gonic/gin"
)

func AuthController(router *gin.RouterGroup, d *controller.Deps) {
	router.POST("/admin-auth", func(c *gin.Context) {
		AdminAuth(c, d)
	})
	router.GET("/initialize-system", func(c *gin.Context) {
		InitializeSystem(c, d)
	})
}

func AdminAuth(c *gin.Context, d *controller.Deps) {
	var req dto.AdminAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Email and password are required"})
		return
	}

	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "", "login":
		login(c, d, req)
	case "register":
		register(c, d, req)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Unknown action: " + req.Action})
	}
}

func login(c *gin.Context, d *controller.Deps, req dto.AdminAuthRequest) {
	now := d.Clock()
	admin, err := services.Authenticate(c, d.Store, req.Email, req.Password, now)
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid credentials"})
		return
	case errors.Is(err, services.ErrAdminDisabled):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Account is disabled"})
		return
	case err != nil:
		d.Log.Error("admin login failed", "email", req.Email, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Login failed"})
		return
	}

	token, err := middleware.SignAccessToken([]byte(d.Config.JWTSecret), admin, d.Config.JWTTTL, now)
	if err != nil {
		d.Log.Error("sign access token failed", "admin_id", admin.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Login failed"})
		return
	}

	recordActivity(c, d, admin.ID, "login", "Admin logged in")
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"admin":     admin,
		"token":     token,
		"expiresIn": int64(d.Config.JWTTTL.Seconds()),
	})
}

// register needs a signed-in admin; only a super admin may mint another.
func register(c *gin.Context, d *controller.Deps, req dto.AdminAuthRequest) {
	claims, err := middleware.ParseAccessToken([]byte(d.Config.JWTSecret), bearer(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Admin token required"})
		return
	}
	if claims.Role != model.RoleAdmin && claims.Role != model.RoleSuperAdmin {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Forbidden"})
		return
	}
	if req.Role == model.RoleSuperAdmin && claims.Role != model.RoleSuperAdmin {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Only a super admin can create a super admin"})
		return
	}

	admin, err := services.CreateAdmin(c, d.Store, services.NewAdmin{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
	}, d.Clock())
	switch {
	case errors.Is(err, services.ErrWeakPassword):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	case errors.Is(err, store.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "Email already registered"})
		return
	case err != nil:
		d.Log.Error("create admin failed", "email", req.Email, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create admin"})
		return
	}

	recordActivity(c, d, claims.AdminID, "create_admin", "Created admin "+admin.Email)
	c.JSON(http.StatusCreated, gin.H{"success": true, "admin": admin})
}

// InitializeSystem creates the first super admin from the configured
// bootstrap credentials. The password is never echoed back.
func InitializeSystem(c *gin.Context, d *controller.Deps) {
	n, err := d.Store.CountAdmins(c)
	if err != nil {
		d.Log.Error("count admins failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to initialize system"})
		return
	}
	if n > 0 {
		c.JSON(http.StatusOK, gin.H{"success": true, "initialized": false, "message": "System already initialized"})
		return
	}
	if d.Config.AdminBootstrapPassword == "" {
		c.JSON(http.StatusPreconditionFailed, gin.H{"success": false, "error": "ADMIN_BOOTSTRAP_PASSWORD is not configured"})
		return
	}

	admin, err := services.CreateAdmin(c, d.Store, services.NewAdmin{
		Email:    d.Config.AdminBootstrapEmail,
		Password: d.Config.AdminBootstrapPassword,
		Name:     "System Administrator",
		Role:     model.RoleSuperAdmin,
	}, d.Clock())
	if err != nil {
		d.Log.Error("bootstrap admin failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to initialize system"})
		return
	}

	d.Log.Info("bootstrap admin created", "email", admin.Email)
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"initialized": true,
		"message":     "System initialized",
		"admin":       gin.H{"email": admin.Email, "role": admin.Role},
	})
}

func bearer(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
