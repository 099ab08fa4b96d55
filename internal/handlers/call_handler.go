package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pds_backend/internal/middleware"
	"pds_backend/internal/models"
	"pds_backend/internal/services"
	"pds_backend/internal/services/dto"
	"pds_backend/internal/tabular"
)

// CallHandler - загрузка отчетов колл-центра, рейтинги агентов и справочники.
type CallHandler struct {
	*BaseHandler
	callService     services.CallUploadService
	employeeService services.EmployeeService
	maxUploadSize   int64
}

func NewCallHandler(
	base *BaseHandler,
	callService services.CallUploadService,
	employeeService services.EmployeeService,
	maxUploadSize int64,
) *CallHandler {
	return &CallHandler{
		BaseHandler:     base,
		callService:     callService,
		employeeService: employeeService,
		maxUploadSize:   maxUploadSize,
	}
}

func (h *CallHandler) RegisterRoutes(rg *gin.RouterGroup, g Guards) {
	admin := rg.Group("/admin", append(g.Authenticated(), middleware.RequireRoles(models.RoleAdmin))...)
	{
		admin.POST("/calls/upload", h.UploadCallReport)
		admin.GET("/calls/uploads", h.ListUploads)
		admin.GET("/calls/uploads/:id", h.GetUploadDetails)
		admin.POST("/calls/uploads/:id/cancel", h.CancelUpload)

		admin.GET("/metrics/filtered", h.GetFilteredCalls)
		admin.GET("/metrics/performers", h.GetPerformers)

		admin.GET("/employees", h.ListEmployees)
		admin.POST("/employees", h.CreateEmployee)
		admin.PATCH("/employees/:id/status", h.SetEmployeeStatus)
		admin.GET("/departments", h.ListDepartments)
		admin.GET("/agent-types", h.ListAgentTypes)
	}
}

func (h *CallHandler) UploadCallReport(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var meta dto.CallReportMeta
	if !h.BindAndValidate_Form(c, &meta) {
		return
	}
	file, done, ok := h.FileInput(c, "file", h.maxUploadSize)
	if !ok {
		return
	}
	defer done()
	if !CheckImportFormat(c, file, tabular.FormatCSV) {
		return
	}

	result, err := h.callService.ProcessCallReport(c.Request.Context(), h.GetDB(c), actor, file, meta)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	Respond(c, http.StatusOK, "File uploaded and processed successfully", result)
}

func (h *CallHandler) ListUploads(c *gin.Context) {
	var q dto.UploadListQuery
	if !h.BindAndValidate_Query(c, &q) {
		return
	}

	page, err := h.callService.ListUploads(c.Request.Context(), h.GetDB(c), q)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	OK(c, page)
}

func (h *CallHandler) GetUploadDetails(c *gin.Context) {
	id, err := ParseParamUint(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	details, err := h.callService.GetUploadDetails(c.Request.Context(), h.GetDB(c), id)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	OK(c, details)
}

func (h *CallHandler) CancelUpload(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, err := ParseParamUint(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	result, err := h.callService.CancelUpload(c.Request.Context(), h.GetDB(c), actor, id)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	Respond(c, http.StatusOK, "Upload cancelled successfully", result)
}

func (h *CallHandler) GetFilteredCalls(c *gin.Context) {
	var q dto.LeaderboardQuery
	if !h.BindAndValidate_Query(c, &q) {
		return
	}

	board, err := h.callService.GetFilteredCalls(c.Request.Context(), h.GetDB(c), q)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	OK(c, board)
}

func (h *CallHandler) GetPerformers(c *gin.Context) {
	var q dto.LeaderboardQuery
	if !h.BindAndValidate_Query(c, &q) {
		return
	}

	performers, err := h.callService.GetPerformers(c.Request.Context(), h.GetDB(c), q)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	OK(c, performers)
}

func (h *CallHandler) ListEmployees(c *gin.Context) {
	employees, err := h.employeeService.ListEmployees(c.Request.Context(), h.GetDB(c), ParseQueryBool(c, "active", false))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	OK(c, employees)
}

func (h *CallHandler) CreateEmployee(c *gin.Context) {
	var req dto.CreateEmployeeRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	employee, err := h.employeeService.CreateEmployee(c.Request.Context(), h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	Respond(c, http.StatusCreated, "Employee created successfully", employee)
}

func (h *CallHandler) SetEmployeeStatus(c *gin.Context) {
	id, err := ParseParamUint(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	var req dto.SetActiveRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	employee, err := h.employeeService.SetEmployeeActive(c.Request.Context(), h.GetDB(c), id, *req.IsActive)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	Respond(c, http.StatusOK, "Employee status updated", employee)
}

func (h *CallHandler) ListDepartments(c *gin.Context) {
	departments, err := h.employeeService.ListDepartments(c.Request.Context(), h.GetDB(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	OK(c, departments)
}

func (h *CallHandler) ListAgentTypes(c *gin.Context) {
	types, err := h.employeeService.ListAgentTypes(c.Request.Context(), h.GetDB(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	OK(c, types)
}
