package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hearthbank/family_backend/middlewares"
	"github.com/hearthbank/family_backend/models"
	"github.com/hearthbank/family_backend/utils"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Nickname string `json:"nickname" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type renameGroupRequest struct {
	Name string `json:"name" binding:"required"`
}

func (a *App) createGroup(c *gin.Context) {
	var input models.NewGroup
	if err := bindJSON(c, &input); err != nil {
		a.respondError(c, "createGroup", err)
		return
	}
	group, admin, err := models.CreateGroup(c.Request.Context(), a.DB, &input)
	if err != nil {
		a.respondError(c, "createGroup", err)
		return
	}
	self := utils.Principal{UserId: admin.ID, GroupId: group.ID, Role: string(admin.Role)}
	respondOK(c, gin.H{"group": group, "user": admin.ViewFor(self)})
}

func (a *App) renameGroup(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "renameGroup", err)
		return
	}
	groupId, err := paramId(c, "id")
	if err != nil {
		a.respondError(c, "renameGroup", err)
		return
	}
	var input renameGroupRequest
	if err := bindJSON(c, &input); err != nil {
		a.respondError(c, "renameGroup", err)
		return
	}
	group, err := models.UpdateGroupName(c.Request.Context(), a.DB, p, groupId, input.Name)
	if err != nil {
		a.respondError(c, "renameGroup", err)
		return
	}
	respondOK(c, gin.H{"group": group})
}

func (a *App) joinGroup(c *gin.Context) {
	var input models.NewMember
	if err := bindJSON(c, &input); err != nil {
		a.respondError(c, "joinGroup", err)
		return
	}
	user, err := models.JoinGroup(c.Request.Context(), a.DB, &input)
	if err != nil {
		a.respondError(c, "joinGroup", err)
		return
	}
	self := utils.Principal{UserId: user.ID, GroupId: user.GroupId, Role: string(user.Role)}
	respondOK(c, gin.H{"user": user.ViewFor(self)})
}

func (a *App) login(c *gin.Context) {
	var input loginRequest
	if err := bindJSON(c, &input); err != nil {
		a.respondError(c, "login", err)
		return
	}
	user, err := models.Authenticate(c.Request.Context(), a.DB, input.Email, input.Nickname, input.Password)
	if err != nil {
		a.respondError(c, "login", err)
		return
	}
	a.issueSession(c, user)
}

// issueSession returns a fresh access token and sets a new refresh cookie.
func (a *App) issueSession(c *gin.Context, user *models.User) {
	token, err := utils.JwtGenerate(user.ID, user.GroupId, string(user.Role))
	if err != nil {
		a.respondError(c, "issueSession", err)
		return
	}
	refresh, _, err := a.Sessions.Create(c.Request.Context(), user.ID, a.Settings.RefreshTokenTTL)
	if err != nil {
		a.respondError(c, "issueSession", err)
		return
	}
	a.setRefreshCookie(c, refresh, int(a.Settings.RefreshTokenTTL.Seconds()))
	self := utils.Principal{UserId: user.ID, GroupId: user.GroupId, Role: string(user.Role)}
	respondOK(c, gin.H{
		"token":      token,
		"expires_in": int(a.Settings.AccessTokenTTL.Seconds()),
		"user":       user.ViewFor(self),
	})
}

func (a *App) setRefreshCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middlewares.RefreshCookieName, value, maxAge, "/api/auth", "", a.Settings.SecureCookies, true)
}

func (a *App) refresh(c *gin.Context) {
	token, _ := c.Cookie(middlewares.RefreshCookieName)
	token = strings.TrimSpace(token)
	ctx := c.Request.Context()
	userId, err := a.Sessions.Lookup(ctx, token)
	if err != nil {
		a.respondError(c, "refresh", err)
		return
	}
	var user models.User
	if err := a.DB.WithContext(ctx).First(&user, userId).Error; err != nil {
		a.respondError(c, "refresh", utils.AuthError("invalid refresh token"))
		return
	}
	if user.Status != models.UserStatusActive {
		a.respondError(c, "refresh", utils.ForbiddenError("account is waiting for approval"))
		return
	}
	if err := a.Sessions.Revoke(ctx, token); err != nil {
		a.respondError(c, "refresh", err)
		return
	}
	a.issueSession(c, &user)
}

func (a *App) logout(c *gin.Context) {
	token, _ := c.Cookie(middlewares.RefreshCookieName)
	if token != "" {
		if err := a.Sessions.Revoke(c.Request.Context(), token); err != nil {
			a.respondError(c, "logout", err)
			return
		}
	}
	a.setRefreshCookie(c, "", -1)
	respondOK(c, nil)
}
