package handler

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-wellbeing-api/internal/models"
	"github.com/noah-isme/uni-wellbeing-api/internal/service"
	"github.com/noah-isme/uni-wellbeing-api/pkg/response"
)

type reportService interface {
	AtRisk(ctx context.Context) (*models.AtRiskReport, bool, error)
	WeeklyTrend(ctx context.Context, cohort models.CohortFilter, weeks models.WeekRange) (*models.TrendReport, bool, error)
	Compare(ctx context.Context, courseID string, metric models.ComparisonMetric, weeks models.WeekRange) (*models.CourseComparison, bool, error)
	StudentAnalytics(ctx context.Context, studentID, moduleID string, weeks models.WeekRange) (*models.StudentAnalytics, bool, error)
	ModuleAcademic(ctx context.Context, moduleID string) (*models.ModuleAcademicReport, bool, error)
	EarlyWarning(ctx context.Context) (*models.EarlyWarningReport, bool, error)
	AttendanceSummary(ctx context.Context, from, to *time.Time) (*models.AttendanceReport, bool, error)
	GradingSummary(ctx context.Context) (*models.GradingSummary, bool, error)
	SystemMetrics() models.AnalyticsSystemMetrics
}

type exportService interface {
	AtRisk(ctx context.Context, format models.ExportFormat) (*service.ExportFile, error)
	Comparison(ctx context.Context, courseID string, metric models.ComparisonMetric, weeks models.WeekRange, format models.ExportFormat) (*service.ExportFile, error)
}

// ReportHandler exposes the analytics reports.
type ReportHandler struct {
	reports reportService
	exports exportService
}

// NewReportHandler constructs the report handler.
func NewReportHandler(reports reportService, exports exportService) *ReportHandler {
	return &ReportHandler{reports: reports, exports: exports}
}

// AtRisk godoc
// @Summary At-risk students
// @Description Students with at least one triggered risk factor, highest risk score first
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/at-risk [get]
func (h *ReportHandler) AtRisk(c *gin.Context) {
	report, hit, err := h.reports.AtRisk(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	respondReport(c, report, hit)
}

// AtRiskExport godoc
// @Summary Download at-risk report
// @Tags Reports
// @Produce text/csv,application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/at-risk/export [get]
func (h *ReportHandler) AtRiskExport(c *gin.Context) {
	file, err := h.exports.AtRisk(c.Request.Context(), parseFormat(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}

// Weekly godoc
// @Summary Weekly attendance and wellbeing trends
// @Description Per-week series with a week-over-week comparison of survey metrics
// @Tags Reports
// @Produce json
// @Param module_id query string false "Module ID"
// @Param student_id query string false "Student ID"
// @Param week_start query int false "First week"
// @Param week_end query int false "Last week"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/weekly [get]
func (h *ReportHandler) Weekly(c *gin.Context) {
	weeks, err := parseWeekRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	cohort := models.CohortFilter{
		StudentID: strings.TrimSpace(c.Query("student_id")),
		ModuleID:  strings.TrimSpace(c.Query("module_id")),
	}
	report, hit, err := h.reports.WeeklyTrend(c.Request.Context(), cohort, weeks)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondReport(c, report, hit)
}

// EarlyWarning godoc
// @Summary Early warning flags from latest surveys
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/early-warning [get]
func (h *ReportHandler) EarlyWarning(c *gin.Context) {
	report, hit, err := h.reports.EarlyWarning(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	respondReport(c, report, hit)
}

// Attendance godoc
// @Summary Attendance over a class date range
// @Tags Reports
// @Produce json
// @Param start_date query string false "YYYY-MM-DD"
// @Param end_date query string false "YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/attendance [get]
func (h *ReportHandler) Attendance(c *gin.Context) {
	from, err := optionalDate(c, "start_date")
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := optionalDate(c, "end_date")
	if err != nil {
		response.Error(c, err)
		return
	}
	report, hit, err := h.reports.AttendanceSummary(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondReport(c, report, hit)
}

// GradingSummary godoc
// @Summary Grading progress and distribution
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/grading-summary [get]
func (h *ReportHandler) GradingSummary(c *gin.Context) {
	summary, hit, err := h.reports.GradingSummary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	respondReport(c, summary, hit)
}

// ModuleAcademic godoc
// @Summary Module academic report
// @Tags Reports
// @Produce json
// @Param id path string true "Module ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/modules/{id}/academic [get]
func (h *ReportHandler) ModuleAcademic(c *gin.Context) {
	report, hit, err := h.reports.ModuleAcademic(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondReport(c, report, hit)
}

// StudentAnalytics godoc
// @Summary Per-student analytics
// @Tags Reports
// @Produce json
// @Param id path string true "Student ID"
// @Param module_id query string false "Module ID"
// @Param week_start query int false "First week"
// @Param week_end query int false "Last week"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id}/analytics [get]
func (h *ReportHandler) StudentAnalytics(c *gin.Context) {
	weeks, err := parseWeekRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, hit, err := h.reports.StudentAnalytics(c.Request.Context(), c.Param("id"), strings.TrimSpace(c.Query("module_id")), weeks)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondReport(c, report, hit)
}

// Comparison godoc
// @Summary Compare students of a course
// @Tags Reports
// @Produce json
// @Param id path string true "Course ID"
// @Param metric query string false "attendance, grades, wellbeing or all"
// @Param week_start query int false "First week"
// @Param week_end query int false "Last week"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/comparison [get]
func (h *ReportHandler) Comparison(c *gin.Context) {
	weeks, err := parseWeekRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	metric := models.ComparisonMetric(strings.ToLower(strings.TrimSpace(c.Query("metric"))))
	result, hit, err := h.reports.Compare(c.Request.Context(), c.Param("id"), metric, weeks)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondReport(c, result, hit)
}

// ComparisonExport downloads a course comparison as CSV or PDF.
func (h *ReportHandler) ComparisonExport(c *gin.Context) {
	weeks, err := parseWeekRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	metric := models.ComparisonMetric(strings.ToLower(strings.TrimSpace(c.Query("metric"))))
	file, err := h.exports.Comparison(c.Request.Context(), c.Param("id"), metric, weeks, parseFormat(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}

// System returns instrumentation metrics snapshots.
func (h *ReportHandler) System(c *gin.Context) {
	respondReport(c, h.reports.SystemMetrics(), false)
}
