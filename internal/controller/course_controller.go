package controller

import (
	"course_platform_backend/internal/service"
	"course_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

// viewerFromContext 从 JWT 声明构造访问者
func viewerFromContext(ctx *gin.Context) (service.Viewer, bool) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		return service.Viewer{}, false
	}
	return service.Viewer{UserID: user.UserID, IsAdmin: user.Role.IsAdmin()}, true
}

// @Summary 获取课程大纲
// @Description 返回当前课程的模块与课时，包含每个课时的解锁与完成状态
// @Tags 课程
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.CourseOutline}
// @Failure 404 {object} util.Response
// @Router /api/course [get]
func (c *CourseController) GetOutline(ctx *gin.Context) {
	viewer, ok := viewerFromContext(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	outline, err := c.CourseService.GetOutline(ctx.Request.Context(), viewer)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, outline)
}

// @Summary 获取课时内容
// @Description 未解锁的课时对学员返回 403，管理员不受限制
// @Tags 课程
// @Produce json
// @Security BearerAuth
// @Param id path int true "课时ID"
// @Success 200 {object} util.Response{data=service.LessonView}
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/course/lessons/{id} [get]
func (c *CourseController) GetLesson(ctx *gin.Context) {
	viewer, ok := viewerFromContext(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	lessonID, ok := util.ParseID(ctx.Param("id"))
	if !ok {
		util.BadRequest(ctx, "Invalid lesson ID")
		return
	}

	view, err := c.CourseService.GetLesson(ctx.Request.Context(), viewer, lessonID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, view)
}
