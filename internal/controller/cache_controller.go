package controller

import (
	"course_platform_backend/internal/util"
	"course_platform_backend/pkg/cache"
	"course_platform_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CacheController struct {
	Cache cache.Store
}

func NewCacheController(store cache.Store) *CacheController {
	return &CacheController{Cache: store}
}

// @Summary 清空缓存
// @Description 清除本实例（memory）或共享前缀（redis）下的全部缓存
// @Tags 管理员
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/admin/cache/clear [post]
func (c *CacheController) ClearAll(ctx *gin.Context) {
	if err := c.Cache.ClearAll(ctx.Request.Context()); err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	if user := util.GetUserFromContext(ctx); user != nil {
		logger.Log.Info("cache cleared", zap.Uint("admin_id", user.UserID))
	}
	util.Success(ctx, gin.H{"message": "Cache cleared"})
}
