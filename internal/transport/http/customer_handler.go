package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gambey/amz-saas-svr/internal/domain"
	"github.com/gambey/amz-saas-svr/internal/service"
)

// CustomerHandler 处理客户管理相关的 HTTP 请求
type CustomerHandler struct {
	customers *service.CustomerService
	log       *zap.Logger
}

// NewCustomerHandler 创建客户处理器
func NewCustomerHandler(customers *service.CustomerService, log *zap.Logger) *CustomerHandler {
	return &CustomerHandler{customers: customers, log: log}
}

type customerRequest struct {
	Email   string `json:"email" binding:"required"`
	Brand   string `json:"brand"`
	Tag     string `json:"tag"`
	AddDate string `json:"addDate"`
	Remarks string `json:"remarks"`
}

type batchUpsertRequest struct {
	Customers []customerRequest `json:"customers" binding:"required"`
}

type listQuery struct {
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"limit,default=20"`
	Search string `form:"search"`
	Brand  string `form:"brand"`
	Tag    string `form:"tag"`
}

func (r customerRequest) toInput() service.CustomerInput {
	return service.CustomerInput{
		Email:   r.Email,
		Brand:   r.Brand,
		Tag:     r.Tag,
		AddDate: r.AddDate,
		Remarks: r.Remarks,
	}
}

// List 分页查询客户列表
// @Summary 客户列表
// @Description 支持邮箱/品牌/标签/备注的模糊搜索和精确筛选
// @Tags 客户
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码，默认1"
// @Param limit query int false "每页数量，默认20"
// @Param search query string false "模糊搜索"
// @Param brand query string false "品牌筛选"
// @Param tag query string false "标签筛选"
// @Success 200 {object} Response "客户列表和总数"
// @Router /api/customers [get]
func (h *CustomerHandler) List(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	customers, total, err := h.customers.List(domain.CustomerListQuery{
		Page:   q.Page,
		Limit:  q.Limit,
		Search: q.Search,
		Brand:  q.Brand,
		Tag:    q.Tag,
	})
	if err != nil {
		h.log.Error("查询客户列表失败", zap.Error(err))
		InternalError(c, MsgInternalError)
		return
	}

	Success(c, gin.H{
		"customers": customers,
		"total":     total,
		"page":      q.Page,
		"limit":     q.Limit,
	})
}

// Create 创建客户
// @Summary 创建客户
// @Tags 客户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body customerRequest true "客户信息"
// @Success 201 {object} Response "创建成功"
// @Failure 409 {object} Response "客户邮箱已存在"
// @Router /api/customers [post]
func (h *CustomerHandler) Create(c *gin.Context) {
	var req customerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	customer, err := h.customers.Create(req.toInput())
	if err != nil {
		if errors.Is(err, service.ErrCustomerExists) {
			Conflict(c, GetErrorMessage(err))
			return
		}
		BadRequest(c, GetErrorMessage(err))
		return
	}

	Created(c, customer)
}

// Update 更新客户
// @Summary 更新客户
// @Tags 客户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "客户ID"
// @Param request body customerRequest true "客户信息"
// @Success 200 {object} Response "更新成功"
// @Failure 404 {object} Response "客户不存在"
// @Router /api/customers/{id} [put]
func (h *CustomerHandler) Update(c *gin.Context) {
	var req customerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	customer, err := h.customers.Update(c.Param("id"), req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCustomerNotFound):
			NotFound(c, GetErrorMessage(err))
		case errors.Is(err, service.ErrCustomerExists):
			Conflict(c, GetErrorMessage(err))
		default:
			BadRequest(c, GetErrorMessage(err))
		}
		return
	}

	Success(c, customer)
}

// Delete 删除客户
// @Summary 删除客户
// @Tags 客户
// @Produce json
// @Security BearerAuth
// @Param id path string true "客户ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "客户不存在"
// @Router /api/customers/{id} [delete]
func (h *CustomerHandler) Delete(c *gin.Context) {
	if err := h.customers.Delete(c.Param("id")); err != nil {
		if errors.Is(err, service.ErrCustomerNotFound) {
			NotFound(c, GetErrorMessage(err))
			return
		}
		h.log.Error("删除客户失败", zap.Error(err))
		InternalError(c, MsgInternalError)
		return
	}
	SuccessWithMsg(c, "删除成功", nil)
}

// BatchUpsert 批量导入客户
// @Summary 批量导入客户
// @Description 已存在的邮箱跳过，返回插入和跳过数量
// @Tags 客户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body batchUpsertRequest true "客户列表"
// @Success 200 {object} Response "导入结果"
// @Router /api/customers/batch [post]
func (h *CustomerHandler) BatchUpsert(c *gin.Context) {
	var req batchUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	inputs := make([]service.CustomerInput, 0, len(req.Customers))
	for _, item := range req.Customers {
		inputs = append(inputs, item.toInput())
	}

	result, err := h.customers.BatchUpsert(inputs)
	if err != nil {
		BadRequest(c, GetErrorMessage(err))
		return
	}

	Success(c, result)
}
