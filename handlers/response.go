package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hearthbank/family_backend/config"
	"github.com/hearthbank/family_backend/middlewares"
	"github.com/hearthbank/family_backend/utils"
)

func respondOK(c *gin.Context, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["success"] = true
	c.JSON(http.StatusOK, body)
}

// respondError maps the error kind to a status. Internal causes are logged, never returned.
func (a *App) respondError(c *gin.Context, funcName string, err error) {
	kind := utils.ErrorKindOf(err)
	status := utils.HTTPStatus(kind)
	if kind == utils.KindInternal {
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		config.LogError(a.Logger, "handlers", funcName, c.FullPath(), cid, err)
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": utils.PublicMessage(err)})
}

// bindJSON decodes the body; any decoding or binding failure is a ValidationError.
func bindJSON(c *gin.Context, dest any) error {
	if err := c.ShouldBindJSON(dest); err != nil {
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		if errors.Is(err, io.EOF) {
			return utils.ValidationError("request body is required")
		}
		if fields := utils.ProcessValidationErrors(err); len(fields) > 0 {
			return utils.ValidationError("invalid input: %v", fields)
		}
		return utils.ValidationError("invalid request body")
	}
	return nil
}

func paramId(c *gin.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, utils.ValidationError("invalid %s", name)
	}
	return id, nil
}

func principalOf(c *gin.Context) (utils.Principal, error) {
	p, ok := middlewares.CtxPrincipal(c)
	if !ok {
		return utils.Principal{}, utils.AuthError("unauthorized")
	}
	return p, nil
}

// requireGroup ensures the path group is the caller's own.
func requireGroup(p utils.Principal, groupId int) error {
	if p.GroupId != groupId {
		return utils.ForbiddenError("not a member of this group")
	}
	return nil
}

func requireAdmin(p utils.Principal) error {
	if !p.IsAdmin() {
		return utils.ForbiddenError("admin only")
	}
	return nil
}

func queryId(c *gin.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Query(name))
	if err != nil || id <= 0 {
		return 0, utils.ValidationError("invalid %s", name)
	}
	return id, nil
}
