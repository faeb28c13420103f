package service

import (
	"context"

	"github.com/noah-isme/uni-wellbeing-api/internal/analytics"
	"github.com/noah-isme/uni-wellbeing-api/internal/models"
)

// AtRisk scores every registered student and returns those with at least one triggered factor,
// highest score first. The boolean reports a cache hit.
func (s *ReportService) AtRisk(ctx context.Context) (*models.AtRiskReport, bool, error) {
	return withCache(ctx, s, makeAnalyticsCacheKey("at-risk"), func() (*models.AtRiskReport, error) {
		students, err := s.store.Students.List(ctx, models.StudentFilter{})
		if err != nil {
			return nil, storageError(err, "failed to load students")
		}
		regs, err := s.store.Registrations.List(ctx, models.RegistrationFilter{})
		if err != nil {
			return nil, storageError(err, "failed to load registrations")
		}
		records, err := s.loadRecords(ctx, "report_at_risk", regs, true, models.WeekRange{})
		if err != nil {
			return nil, err
		}
		grouped := records.byStudent()

		entries := make([]models.AtRiskStudent, 0)
		for _, student := range students {
			rec, ok := grouped[student.ID]
			if !ok {
				continue
			}
			assessment, scored := s.policy.Assess(analytics.RiskInput{
				Registrations: len(rec.registrations),
				Attendance:    rec.attendance,
				Surveys:       rec.surveys,
				Submissions:   rec.submissions,
			})
			if !scored || !assessment.Triggered() {
				continue
			}
			entries = append(entries, models.AtRiskStudent{
				StudentID:   student.ID,
				Name:        student.FullName(),
				Email:       student.Email,
				RiskFactors: assessment.Factors,
				RiskScore:   assessment.Score,
			})
		}
		analytics.RankAtRisk(entries)
		s.logger.Debug("at-risk report computed")
		return &models.AtRiskReport{Students: entries, TotalCount: len(entries)}, nil
	})
}
