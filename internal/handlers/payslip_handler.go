package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pds_backend/internal/auth"
	"pds_backend/internal/middleware"
	"pds_backend/internal/models"
	"pds_backend/internal/services"
	"pds_backend/internal/services/dto"
	"pds_backend/internal/tabular"
)

type PayslipHandler struct {
	*BaseHandler
	payslipService services.PayslipService
	maxImportSize  int64
}

func NewPayslipHandler(base *BaseHandler, payslipService services.PayslipService, maxImportSize int64) *PayslipHandler {
	return &PayslipHandler{
		BaseHandler:    base,
		payslipService: payslipService,
		maxImportSize:  maxImportSize,
	}
}

func (h *PayslipHandler) RegisterRoutes(rg *gin.RouterGroup, g Guards) {
	payslips := rg.Group("/payslips", g.Authenticated()...)
	payroll := middleware.RequireRoles(auth.PayrollRoles...)
	{
		payslips.POST("", payroll, h.AddPayslip)
		payslips.GET("", payroll, h.ListPayslips)
		payslips.POST("/import/csv", payroll, h.importHandler(tabular.FormatCSV))
		payslips.POST("/import/excel", payroll, h.importHandler(tabular.FormatExcel))
		payslips.GET("/user/:user_id", h.ListUserPayslips)
		payslips.GET("/:id", payroll, h.GetPayslip)
		payslips.PUT("/:id", payroll, h.UpdatePayslip)
		payslips.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), h.DeletePayslip)
	}
}

func (h *PayslipHandler) importHandler(format tabular.Format) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := h.Actor(c)
		if !ok {
			return
		}
		file, done, ok := h.FileInput(c, "file", h.maxImportSize)
		if !ok {
			return
		}
		defer done()
		if !CheckImportFormat(c, file, format) {
			return
		}

		result, err := h.payslipService.ImportPayslips(c.Request.Context(), h.GetDB(c), actor, file)
		if err != nil {
			h.HandleServiceError(c, err)
			return
		}

		Respond(c, http.StatusOK, "Payslip import completed", result)
	}
}

func (h *PayslipHandler) AddPayslip(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req dto.CreatePayslipRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	payslip, err := h.payslipService.AddPayslip(c.Request.Context(), h.GetDB(c), actor, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	Respond(c, http.StatusCreated, "Payslip created successfully", payslip)
}

func (h *PayslipHandler) ListPayslips(c *gin.Context) {
	page, err := h.payslipService.ListPayslips(c.Request.Context(), h.GetDB(c),
		c.Query("period"), ParseQueryInt(c, "page", 1), ParseQueryInt(c, "limit", 20))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	OK(c, page)
}

// ListUserPayslips: обычный пользователь видит только свои расчетные листы.
func (h *PayslipHandler) ListUserPayslips(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	userID, err := ParseParamUUID(c, "user_id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	payslips, err := h.payslipService.ListUserPayslips(c.Request.Context(), h.GetDB(c), actor, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	OK(c, payslips)
}

func (h *PayslipHandler) GetPayslip(c *gin.Context) {
	id, err := ParseParamUint(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	payslip, err := h.payslipService.GetPayslip(c.Request.Context(), h.GetDB(c), id)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	OK(c, payslip)
}

func (h *PayslipHandler) UpdatePayslip(c *gin.Context) {
	id, err := ParseParamUint(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	var req dto.UpdatePayslipRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	payslip, err := h.payslipService.UpdatePayslip(c.Request.Context(), h.GetDB(c), id, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	Respond(c, http.StatusOK, "Payslip updated successfully", payslip)
}

func (h *PayslipHandler) DeletePayslip(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, err := ParseParamUint(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	if err := h.payslipService.DeletePayslip(c.Request.Context(), h.GetDB(c), actor, id); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	Respond(c, http.StatusOK, "Payslip deleted successfully", nil)
}
