package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-wellbeing-api/internal/models"
	appErrors "github.com/noah-isme/uni-wellbeing-api/pkg/errors"
	"github.com/noah-isme/uni-wellbeing-api/pkg/export"
)

// reportSource is the subset of ReportService that exports render.
type reportSource interface {
	AtRisk(ctx context.Context) (*models.AtRiskReport, bool, error)
	Compare(ctx context.Context, courseID string, metric models.ComparisonMetric, weeks models.WeekRange) (*models.CourseComparison, bool, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders report results as CSV or PDF downloads.
type ExportService struct {
	reports reportSource
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(reports reportSource, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{reports: reports, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// AtRisk renders the at-risk report.
func (s *ExportService) AtRisk(ctx context.Context, format models.ExportFormat) (*ExportFile, error) {
	if err := validateFormat(format); err != nil {
		return nil, err
	}
	report, _, err := s.reports.AtRisk(ctx)
	if err != nil {
		return nil, err
	}
	return s.render(atRiskDataset(report), "At-risk students", "at_risk", format)
}

// Comparison renders a course comparison.
func (s *ExportService) Comparison(ctx context.Context, courseID string, metric models.ComparisonMetric, weeks models.WeekRange, format models.ExportFormat) (*ExportFile, error) {
	if err := validateFormat(format); err != nil {
		return nil, err
	}
	report, _, err := s.reports.Compare(ctx, courseID, metric, weeks)
	if err != nil {
		return nil, err
	}
	title := fmt.Sprintf("%s comparison (%s)", report.CourseName, report.Metric)
	return s.render(comparisonDataset(report), title, "comparison_"+report.CourseID, format)
}

func (s *ExportService) render(data export.Dataset, title, name string, format models.ExportFormat) (*ExportFile, error) {
	var (
		payload []byte
		err     error
	)
	switch format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(data)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(data, title)
	}
	if err != nil {
		s.logger.Error("render export", zap.String("report", name), zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("%s_%s.%s", sanitizeFilename(name), s.now().UTC().Format("20060102"), format),
		ContentType: format.ContentType(),
		Payload:     payload,
	}, nil
}

func validateFormat(format models.ExportFormat) error {
	if !format.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	return nil
}

func atRiskDataset(report *models.AtRiskReport) export.Dataset {
	data := export.Dataset{Headers: []string{"rank", "student_id", "name", "email", "risk_score", "risk_factors"}}
	for i, student := range report.Students {
		factors := make([]string, 0, len(student.RiskFactors))
		for _, factor := range student.RiskFactors {
			factors = append(factors, string(factor))
		}
		data.Rows = append(data.Rows, map[string]string{
			"rank":         strconv.Itoa(i + 1),
			"student_id":   student.StudentID,
			"name":         student.Name,
			"email":        student.Email,
			"risk_score":   formatFloat(student.RiskScore),
			"risk_factors": strings.Join(factors, ";"),
		})
	}
	return data
}

func comparisonDataset(report *models.CourseComparison) export.Dataset {
	headers := []string{"rank", "student_id", "student_name"}
	showAttendance := report.Metric == models.MetricAttendance || report.Metric == models.MetricAll
	showGrades := report.Metric == models.MetricGrades || report.Metric == models.MetricAll
	showWellbeing := report.Metric == models.MetricWellbeing || report.Metric == models.MetricAll
	if showAttendance {
		headers = append(headers, "attendance_rate")
	}
	if showGrades {
		headers = append(headers, "average_grade")
	}
	if showWellbeing {
		headers = append(headers, "average_stress", "average_sleep", "average_social")
	}

	data := export.Dataset{Headers: headers}
	for i, row := range report.Students {
		record := map[string]string{
			"rank":         strconv.Itoa(i + 1),
			"student_id":   row.StudentID,
			"student_name": row.StudentName,
		}
		if row.Attendance != nil {
			record["attendance_rate"] = formatFloat(row.Attendance.Rate)
		}
		if row.Grades != nil {
			record["average_grade"] = formatFloat(row.Grades.AverageGrade)
		}
		if row.Wellbeing != nil {
			record["average_stress"] = formatFloat(row.Wellbeing.AverageStress)
			record["average_sleep"] = formatFloat(row.Wellbeing.AverageSleep)
			record["average_social"] = formatFloat(row.Wellbeing.AverageSocial)
		}
		data.Rows = append(data.Rows, record)
	}
	return data
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, name)
}
