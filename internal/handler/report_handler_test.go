package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-wellbeing-api/internal/middleware"
	"github.com/noah-isme/uni-wellbeing-api/internal/models"
	"github.com/noah-isme/uni-wellbeing-api/internal/service"
	appErrors "github.com/noah-isme/uni-wellbeing-api/pkg/errors"
)

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Error map[string]interface{} `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

type fakeReportSrv struct {
	atRiskHit  bool
	err        error
	lastCohort models.CohortFilter
	lastWeeks  models.WeekRange
	lastMetric models.ComparisonMetric
	lastFrom   *time.Time
	lastModule string
}

func (f *fakeReportSrv) AtRisk(context.Context) (*models.AtRiskReport, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	return &models.AtRiskReport{Students: []models.AtRiskStudent{{StudentID: "S1", RiskScore: 9}}, TotalCount: 1}, f.atRiskHit, nil
}

func (f *fakeReportSrv) WeeklyTrend(_ context.Context, cohort models.CohortFilter, weeks models.WeekRange) (*models.TrendReport, bool, error) {
	f.lastCohort, f.lastWeeks = cohort, weeks
	return &models.TrendReport{Cohort: cohort, Weeks: weeks}, false, f.err
}

func (f *fakeReportSrv) Compare(_ context.Context, courseID string, metric models.ComparisonMetric, weeks models.WeekRange) (*models.CourseComparison, bool, error) {
	f.lastMetric, f.lastWeeks = metric, weeks
	if f.err != nil {
		return nil, false, f.err
	}
	return &models.CourseComparison{CourseID: courseID, Metric: metric}, false, nil
}

func (f *fakeReportSrv) StudentAnalytics(_ context.Context, studentID, moduleID string, weeks models.WeekRange) (*models.StudentAnalytics, bool, error) {
	f.lastModule, f.lastWeeks = moduleID, weeks
	return &models.StudentAnalytics{StudentID: studentID}, false, f.err
}

func (f *fakeReportSrv) ModuleAcademic(_ context.Context, moduleID string) (*models.ModuleAcademicReport, bool, error) {
	f.lastModule = moduleID
	return &models.ModuleAcademicReport{ModuleID: moduleID}, false, f.err
}

func (f *fakeReportSrv) EarlyWarning(context.Context) (*models.EarlyWarningReport, bool, error) {
	return &models.EarlyWarningReport{}, false, f.err
}

func (f *fakeReportSrv) AttendanceSummary(_ context.Context, from, to *time.Time) (*models.AttendanceReport, bool, error) {
	f.lastFrom = from
	return &models.AttendanceReport{StartDate: from, EndDate: to}, false, f.err
}

func (f *fakeReportSrv) GradingSummary(context.Context) (*models.GradingSummary, bool, error) {
	return &models.GradingSummary{TotalSubmissions: 3}, true, f.err
}

func (f *fakeReportSrv) SystemMetrics() models.AnalyticsSystemMetrics {
	return models.AnalyticsSystemMetrics{CacheHits: 4}
}

type fakeExportSrv struct {
	lastFormat models.ExportFormat
}

func (f *fakeExportSrv) AtRisk(_ context.Context, format models.ExportFormat) (*service.ExportFile, error) {
	f.lastFormat = format
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	return &service.ExportFile{Filename: "at_risk_20240304.csv", ContentType: format.ContentType(), Payload: []byte("rank\n")}, nil
}

func (f *fakeExportSrv) Comparison(_ context.Context, courseID string, metric models.ComparisonMetric, weeks models.WeekRange, format models.ExportFormat) (*service.ExportFile, error) {
	f.lastFormat = format
	return &service.ExportFile{Filename: "comparison_" + courseID + ".pdf", ContentType: format.ContentType(), Payload: []byte("%PDF")}, nil
}

func newReportRouter(reports *fakeReportSrv, exports *fakeExportSrv) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewReportHandler(reports, exports)
	r := gin.New()
	r.Use(middleware.WithResponseMeta())
	r.GET("/reports/at-risk", h.AtRisk)
	r.GET("/reports/at-risk/export", h.AtRiskExport)
	r.GET("/reports/weekly", h.Weekly)
	r.GET("/reports/attendance", h.Attendance)
	r.GET("/reports/grading-summary", h.GradingSummary)
	r.GET("/reports/modules/:id/academic", h.ModuleAcademic)
	r.GET("/students/:id/analytics", h.StudentAnalytics)
	r.GET("/courses/:id/comparison", h.Comparison)
	r.GET("/courses/:id/comparison/export", h.ComparisonExport)
	return r
}

func serve(r http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestReportHandlerAtRiskReportsCacheHit(t *testing.T) {
	r := newReportRouter(&fakeReportSrv{atRiskHit: true}, &fakeExportSrv{})

	rec := serve(r, "/reports/at-risk")
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Contains(t, envelope.Meta, "processing_time_ms")
	assert.Equal(t, float64(1), envelope.Data["total_count"])
}

func TestReportHandlerMapsServiceErrors(t *testing.T) {
	r := newReportRouter(&fakeReportSrv{err: appErrors.Clone(appErrors.ErrNotFound, "course not found")}, &fakeExportSrv{})

	rec := serve(r, "/courses/C9/comparison")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "course not found", envelope.Error["message"])
}

func TestReportHandlerWeeklyParsesFilters(t *testing.T) {
	reports := &fakeReportSrv{}
	r := newReportRouter(reports, &fakeExportSrv{})

	rec := serve(r, "/reports/weekly?module_id=M001&week_start=2&week_end=6")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "M001", reports.lastCohort.ModuleID)
	require.NotNil(t, reports.lastWeeks.Start)
	assert.Equal(t, 2, *reports.lastWeeks.Start)
	assert.Equal(t, 6, *reports.lastWeeks.End)
}

func TestReportHandlerRejectsBadWeeks(t *testing.T) {
	r := newReportRouter(&fakeReportSrv{}, &fakeExportSrv{})

	assert.Equal(t, http.StatusBadRequest, serve(r, "/reports/weekly?week_start=zero").Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, "/students/S1/analytics?week_end=0").Code)
}

func TestReportHandlerComparisonNormalisesMetric(t *testing.T) {
	reports := &fakeReportSrv{}
	r := newReportRouter(reports, &fakeExportSrv{})

	rec := serve(r, "/courses/C1/comparison?metric=Grades")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.MetricGrades, reports.lastMetric)
}

func TestReportHandlerAttendanceDates(t *testing.T) {
	reports := &fakeReportSrv{}
	r := newReportRouter(reports, &fakeExportSrv{})

	assert.Equal(t, http.StatusBadRequest, serve(r, "/reports/attendance?start_date=03/01/2024").Code)

	rec := serve(r, "/reports/attendance?start_date=2024-03-01")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, reports.lastFrom)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *reports.lastFrom)
}

func TestReportHandlerExports(t *testing.T) {
	exports := &fakeExportSrv{}
	r := newReportRouter(&fakeReportSrv{}, exports)

	rec := serve(r, "/reports/at-risk/export")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ExportFormatCSV, exports.lastFormat)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "at_risk_20240304.csv")

	rec = serve(r, "/courses/C1/comparison/export?format=PDF")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ExportFormatPDF, exports.lastFormat)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusBadRequest, serve(r, "/reports/at-risk/export?format=xlsx").Code)
}

func TestReportHandlerModuleAndStudent(t *testing.T) {
	reports := &fakeReportSrv{}
	r := newReportRouter(reports, &fakeExportSrv{})

	require.Equal(t, http.StatusOK, serve(r, "/reports/modules/M002/academic").Code)
	assert.Equal(t, "M002", reports.lastModule)

	require.Equal(t, http.StatusOK, serve(r, "/students/S1/analytics?module_id=M001").Code)
	assert.Equal(t, "M001", reports.lastModule)

	rec := serve(r, "/reports/grading-summary")
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Meta["cache_hit"])
}
