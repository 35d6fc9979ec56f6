package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/hearthbank/family_backend/models"
	"github.com/hearthbank/family_backend/workflow"
)

func (a *App) listShopping(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "listShopping", err)
		return
	}
	items, err := models.ListShopping(c.Request.Context(), a.DB, p.GroupId)
	if err != nil {
		a.respondError(c, "listShopping", err)
		return
	}
	respondOK(c, gin.H{"items": items})
}

func (a *App) addShoppingItem(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "addShoppingItem", err)
		return
	}
	var input models.NewShoppingItem
	if err := bindJSON(c, &input); err != nil {
		a.respondError(c, "addShoppingItem", err)
		return
	}
	item, err := models.AddShoppingItem(c.Request.Context(), a.DB, p, &input)
	if err != nil {
		a.respondError(c, "addShoppingItem", err)
		return
	}
	respondOK(c, gin.H{"item": item})
}

func (a *App) updateShoppingItem(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "updateShoppingItem", err)
		return
	}
	itemId, err := paramId(c, "id")
	if err != nil {
		a.respondError(c, "updateShoppingItem", err)
		return
	}
	var input models.UpdateShoppingItemInput
	if err := bindJSON(c, &input); err != nil {
		a.respondError(c, "updateShoppingItem", err)
		return
	}
	item, err := models.UpdateShoppingItem(c.Request.Context(), a.DB, p, itemId, &input)
	if err != nil {
		a.respondError(c, "updateShoppingItem", err)
		return
	}
	respondOK(c, gin.H{"item": item})
}

func (a *App) checkout(c *gin.Context) {
	p, err := principalOf(c)
	if err != nil {
		a.respondError(c, "checkout", err)
		return
	}
	var input models.CheckoutInput
	if err := bindJSON(c, &input); err != nil {
		a.respondError(c, "checkout", err)
		return
	}
	result, err := workflow.CheckoutTrip(c.Request.Context(), a.DB, a.Logger, p, &input, a.now())
	if err != nil {
		a.respondError(c, "checkout", err)
		return
	}
	respondOK(c, gin.H{"trip": result.Trip, "items": result.Items, "transaction": result.Transaction})
}
