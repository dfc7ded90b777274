package controller

import (
	"strconv"

	"course_platform_backend/internal/service"
	"course_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// HomeworkController 管理员作业批阅
type HomeworkController struct {
	ReviewService *service.HomeworkReviewService
}

func NewHomeworkController(reviewService *service.HomeworkReviewService) *HomeworkController {
	return &HomeworkController{ReviewService: reviewService}
}

// @Summary 作业列表
// @Description 按状态筛选作业提交，分页返回
// @Tags 管理员
// @Produce json
// @Security BearerAuth
// @Param status query string false "SUBMITTED / REVIEWED / APPROVED"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} util.Response{data=service.SubmissionPage}
// @Failure 400 {object} util.Response
// @Router /api/admin/homework [get]
func (c *HomeworkController) List(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	result, err := c.ReviewService.List(ctx.Request.Context(), ctx.Query("status"), page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// @Summary 批阅作业
// @Tags 管理员
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "作业ID"
// @Param review body service.ReviewRequest true "批阅结果"
// @Success 200 {object} util.Response{data=model.HomeworkSubmission}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/admin/homework/{id} [patch]
func (c *HomeworkController) Review(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	submissionID, ok := util.ParseID(ctx.Param("id"))
	if !ok {
		util.BadRequest(ctx, "Invalid submission ID")
		return
	}

	var req service.ReviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	submission, err := c.ReviewService.Review(ctx.Request.Context(), user.UserID, submissionID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, submission)
}
