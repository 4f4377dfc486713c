package quickbooks

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/businessday"
	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/icafe"
	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/models"
	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/report"
	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/utils"
)

// ReportHandler serves the aggregated report for one cafe and business
// date without sending anything.
func ReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, err := resolveUserID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		cafe, window, ok := resolveCafeAndWindow(c, userId)
		if !ok {
			return
		}

		client, err := icafe.NewClient(cafe.CafeId, cafe.ApiKey)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		rep, err := report.NewAggregator(client).Generate(c.Request.Context(), window)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, rep)
	}
}

type sendRequest struct {
	CafeId       string `json:"cafeId" binding:"required"`
	BusinessDate string `json:"businessDate" binding:"required"`
	PerShift     bool   `json:"perShift"`
}

// SendHandler triggers a manual send for one business date. An already
// delivered date answers 409 with the existing success row untouched.
func SendHandler(sender *Sender) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, err := resolveUserID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req sendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		date, err := time.Parse(businessday.DateLayout, req.BusinessDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "businessDate must be YYYY-MM-DD"})
			return
		}

		cafe, err := models.GetCafe(c.Request.Context(), userId, req.CafeId)
		if errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "cafe not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		client, err := icafe.NewClient(cafe.CafeId, cafe.ApiKey)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		logRow, err := sender.SendDailyReport(c.Request.Context(), SendParams{
			UserId:    userId,
			Cafe:      cafe,
			Date:      date,
			PerShift:  req.PerShift,
			Generator: report.NewAggregator(client),
		})
		if errors.Is(err, ErrAlreadySent) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, ErrNotConnected) || errors.Is(err, ErrRefreshTokenExpired) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "log": logRow})
			return
		}

		c.JSON(http.StatusOK, logRow)
	}
}

func SendLogsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, err := resolveUserID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		limit, _ := strconv.Atoi(c.Query("limit"))
		logs, err := models.GetReportLogs(c.Request.Context(), userId, c.Query("cafeId"), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"logs": logs})
	}
}

func GetAutoSendHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, err := resolveUserID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		cafeId := strings.TrimSpace(c.Query("cafeId"))
		if cafeId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cafeId is required"})
			return
		}

		setting, err := models.GetAutoSendSetting(c.Request.Context(), userId, cafeId)
		if errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusOK, models.QbAutoSendSetting{
				UserId:       userId,
				CafeId:       cafeId,
				Mode:         models.AutoSendModeDailyTime,
				ScheduleTime: "06:10",
			})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, setting)
	}
}

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
			_, err := time.Parse("15:04", fl.Field().String())
			return err == nil
		})
	}
}

type autoSendRequest struct {
	CafeId       string `json:"cafeId" binding:"required"`
	Enabled      bool   `json:"enabled"`
	Mode         string `json:"mode" binding:"required,oneof=daily_time business_day_end last_shift"`
	ScheduleTime string `json:"scheduleTime" binding:"omitempty,hhmm"`
}

func UpdateAutoSendHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, err := resolveUserID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req autoSendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if req.Mode == models.AutoSendModeDailyTime {
			if _, err := time.Parse("15:04", req.ScheduleTime); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "scheduleTime must be HH:MM"})
				return
			}
		}

		setting := &models.QbAutoSendSetting{
			UserId:       userId,
			CafeId:       req.CafeId,
			Enabled:      req.Enabled,
			Mode:         req.Mode,
			ScheduleTime: req.ScheduleTime,
		}
		if err := models.UpsertAutoSendSetting(c.Request.Context(), setting); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, setting)
	}
}

func resolveUserID(c *gin.Context) (string, error) {
	userId := strings.TrimSpace(c.GetHeader("X-User-Id"))
	if userId == "" {
		userId = strings.TrimSpace(c.Query("userId"))
	}
	if userId == "" {
		return "", errors.New("unauthorized")
	}
	return userId, nil
}

func resolveCafeAndWindow(c *gin.Context, userId string) (*models.Cafe, businessday.Window, bool) {
	cafeId := strings.TrimSpace(c.Query("cafeId"))
	if cafeId == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cafeId is required"})
		return nil, businessday.Window{}, false
	}

	cafe, err := models.GetCafe(c.Request.Context(), userId, cafeId)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "cafe not found"})
		return nil, businessday.Window{}, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, businessday.Window{}, false
	}

	var window businessday.Window
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		date, err := time.Parse(businessday.DateLayout, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return nil, businessday.Window{}, false
		}
		window = businessday.WindowFor(date)
	} else {
		window = businessday.CurrentWindow(time.Now(), businessday.CafeUTCOffsetHours)
	}
	return cafe, window, true
}
