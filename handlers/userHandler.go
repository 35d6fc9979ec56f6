package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/hearthbank/family_backend/models"
)

func (a *App) listMembers(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "listMembers", err)
		return
	}
	groupId, err := paramId(c, "id")
	if err != nil {
		a.respondError(c, "listMembers", err)
		return
	}
	members, err := models.ListMembers(c.Request.Context(), a.DB, p, groupId)
	if err != nil {
		a.respondError(c, "listMembers", err)
		return
	}
	respondOK(c, gin.H{"members": members})
}

func (a *App) getUser(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "getUser", err)
		return
	}
	userId, err := paramId(c, "id")
	if err != nil {
		a.respondError(c, "getUser", err)
		return
	}
	user, err := models.GetUser(c.Request.Context(), a.DB, p, userId)
	if err != nil {
		a.respondError(c, "getUser", err)
		return
	}
	respondOK(c, gin.H{"user": user.ViewFor(p)})
}

func (a *App) updateUser(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "updateUser", err)
		return
	}
	userId, err := paramId(c, "id")
	if err != nil {
		a.respondError(c, "updateUser", err)
		return
	}
	var input models.UpdateUserInput
	if err := bindJSON(c, &input); err != nil {
		a.respondError(c, "updateUser", err)
		return
	}
	user, err := models.UpdateUser(c.Request.Context(), a.DB, p, userId, &input)
	if err != nil {
		a.respondError(c, "updateUser", err)
		return
	}
	respondOK(c, gin.H{"user": user.ViewFor(p)})
}

func (a *App) approveUser(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "approveUser", err)
		return
	}
	userId, err := paramId(c, "id")
	if err != nil {
		a.respondError(c, "approveUser", err)
		return
	}
	user, err := models.ApproveUser(c.Request.Context(), a.DB, p, userId)
	if err != nil {
		a.respondError(c, "approveUser", err)
		return
	}
	respondOK(c, gin.H{"user": user.ViewFor(p)})
}

func (a *App) updateUserSettings(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "updateUserSettings", err)
		return
	}
	userId, err := paramId(c, "id")
	if err != nil {
		a.respondError(c, "updateUserSettings", err)
		return
	}
	var input models.UserSettingsInput
	if err := bindJSON(c, &input); err != nil {
		a.respondError(c, "updateUserSettings", err)
		return
	}
	user, err := models.UpdateUserSettings(c.Request.Context(), a.DB, p, userId, &input)
	if err != nil {
		a.respondError(c, "updateUserSettings", err)
		return
	}
	respondOK(c, gin.H{"user": user.ViewFor(p)})
}
