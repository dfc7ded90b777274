package controller

import (
	"strings"

	"course_platform_backend/internal/service"
	"course_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CertificateController struct {
	EligibilityService *service.EligibilityService
	CertificateService *service.CertificateService
}

func NewCertificateController(eligibility *service.EligibilityService, certificates *service.CertificateService) *CertificateController {
	return &CertificateController{
		EligibilityService: eligibility,
		CertificateService: certificates,
	}
}

// @Summary 证书资格
// @Description 返回剩余课时数与缺少作业的模块数
// @Tags 证书
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=progression.Eligibility}
// @Router /api/certificate/eligibility [get]
func (c *CertificateController) GetEligibility(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.EligibilityService.CheckEligibility(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// @Summary 获取或颁发证书
// @Description 满足条件时颁发证书，重复调用返回同一张证书；不满足条件时 certificate 为 null
// @Tags 证书
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.CertificateResult}
// @Router /api/certificate [get]
func (c *CertificateController) GetCertificate(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.CertificateService.GetOrCreateCertificate(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// @Summary 证书渲染数据
// @Description 返回证书模板所需字段，尚未满足条件时返回 404
// @Tags 证书
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.CertificateDocument}
// @Failure 404 {object} util.Response
// @Router /api/certificate/document [get]
func (c *CertificateController) GetDocument(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	name := user.Name
	if name == "" {
		name = user.Email
	}

	doc, err := c.CertificateService.Document(ctx.Request.Context(), user.UserID, name)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if doc == nil {
		util.HandleError(ctx, util.ErrCertificateNotFound)
		return
	}

	util.Success(ctx, doc)
}

// @Summary 验证证书
// @Description 通过证书编号公开查询证书
// @Tags 证书
// @Produce json
// @Param number path string true "证书编号"
// @Success 200 {object} util.Response{data=service.CertificateVerification}
// @Failure 404 {object} util.Response
// @Router /api/certificates/verify/{number} [get]
func (c *CertificateController) Verify(ctx *gin.Context) {
	number := strings.TrimSpace(ctx.Param("number"))
	if number == "" {
		util.BadRequest(ctx, "Invalid certificate number")
		return
	}

	v, err := c.CertificateService.Verify(ctx.Request.Context(), number)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, v)
}
