package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-wellbeing-api/internal/middleware"
	"github.com/noah-isme/uni-wellbeing-api/internal/models"
	appErrors "github.com/noah-isme/uni-wellbeing-api/pkg/errors"
	"github.com/noah-isme/uni-wellbeing-api/pkg/response"
)

const dateLayout = "2006-01-02"

// parseWeekRange reads week_start and week_end. Bounds must be positive integers.
func parseWeekRange(c *gin.Context) (models.WeekRange, error) {
	var weeks models.WeekRange
	var err error
	if weeks.Start, err = optionalPositiveInt(c, "week_start"); err != nil {
		return weeks, err
	}
	if weeks.End, err = optionalPositiveInt(c, "week_end"); err != nil {
		return weeks, err
	}
	return weeks, nil
}

func optionalPositiveInt(c *gin.Context, key string) (*int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, key+" must be a positive integer")
	}
	return &v, nil
}

func optionalDate(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, key+" must use YYYY-MM-DD")
	}
	return &t, nil
}

func parseFormat(c *gin.Context) models.ExportFormat {
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", string(models.ExportFormatCSV))))
	return models.ExportFormat(format)
}

// respondReport writes a report payload with the cache flag recorded in meta.
func respondReport(c *gin.Context, data interface{}, cacheHit bool) {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{"cache_hit": cacheHit}
	}
	response.JSON(c, http.StatusOK, data, meta)
}
