package controller

import (
	"course_platform_backend/internal/service"
	"course_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// @Summary 更新课时完成状态
// @Description 标记课时完成或取消完成
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "课时ID"
// @Param progress body service.LessonProgressRequest true "完成状态"
// @Success 200 {object} util.Response{data=model.LessonProgress}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/progress/lessons/{id} [post]
func (c *ProgressController) MarkLesson(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	lessonID, ok := util.ParseID(ctx.Param("id"))
	if !ok {
		util.BadRequest(ctx, "Invalid lesson ID")
		return
	}

	var req service.LessonProgressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if req.Completed == nil {
		util.BadRequest(ctx, "completed is required")
		return
	}

	progress, err := c.ProgressService.MarkLessonComplete(ctx.Request.Context(), user.UserID, lessonID, *req.Completed)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, progress)
}

// @Summary 提交作业
// @Description 针对某个课时提交作业，满足其所在模块的作业要求
// @Tags 作业
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param homework body service.SubmitHomeworkRequest true "作业内容"
// @Success 201 {object} util.Response{data=model.HomeworkSubmission}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/homework [post]
func (c *ProgressController) SubmitHomework(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.SubmitHomeworkRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	submission, err := c.ProgressService.SubmitHomework(ctx.Request.Context(), user.UserID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, submission)
}

// @Summary 我的作业
// @Tags 作业
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.HomeworkSubmission}
// @Router /api/homework [get]
func (c *ProgressController) ListMySubmissions(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	list, err := c.ProgressService.ListSubmissions(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, list)
}
