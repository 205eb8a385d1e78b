package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"coach_report_bot/internal/dates"
	"coach_report_bot/internal/entities"
	"coach_report_bot/internal/interfaces"
	"coach_report_bot/internal/logger"
	"coach_report_bot/internal/report"
	"coach_report_bot/internal/usecases"
)

type ReportSender interface {
	CanSend(ctx context.Context, user *entities.User, tz string) (bool, error)
	Preview(ctx context.Context, user *entities.User, date time.Time, tz string, showDate bool) (string, error)
	Send(ctx context.Context, user *entities.User, req usecases.SendReportRequest) (*entities.Message, error)
	SendGenerated(ctx context.Context, user *entities.User, receiverID int64, tz string) (*entities.Message, error)
	SendSelf(ctx context.Context, user *entities.User, content string) error
	SendPrivate(ctx context.Context, receiverID int64, content string) error
	List(ctx context.Context, filter interfaces.MessageFilter) ([]entities.Message, error)
	FirstMessages(ctx context.Context, userIDs []string) ([]entities.Message, error)
}

type MeasurementSender interface {
	CanSend(ctx context.Context, user *entities.User, ids []string) (bool, error)
	Send(ctx context.Context, user *entities.User, values []entities.MeasurementValue, receiverID int64) (*entities.MeasurementMessage, string, error)
}

type WizardSender interface {
	CanSend(user *entities.User) bool
	Send(ctx context.Context, user *entities.User, answers report.Onboarding, receiverID int64) (string, error)
}

type Handler struct {
	reports      ReportSender
	measurements MeasurementSender
	wizard       WizardSender
}

func NewHandler(reports ReportSender, measurements MeasurementSender, wizard WizardSender) *Handler {
	return &Handler{
		reports:      reports,
		measurements: measurements,
		wizard:       wizard,
	}
}

func SetupRoutes(r *gin.Engine, h *Handler, photos *PhotoHandler, middleware *Middleware) error {
	if err := RegisterValidators(); err != nil {
		return err
	}

	r.Use(RequestLogger())
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(1 << 20))
	r.Use(middleware.CORSMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if photos != nil {
		photos.RegisterRoutes(r)
	}

	private := r.Group("/api/private")
	private.Use(middleware.APIKeyRequired())
	{
		private.POST("/message", h.SendPrivateMessage)
	}

	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerUser(rate.Limit(5), 10))
	{
		api.GET("/report", h.PreviewReport)

		message := api.Group("/message")
		message.GET("", h.ListMessages)
		message.POST("", h.SendReport)
		message.GET("/can-send", h.CanSendReport)
		message.POST("/report", h.SendGeneratedReport)
		message.POST("/self", h.SendSelfMessage)
		message.POST("/first-messages", middleware.AdminRequired(), h.FirstMessages)

		message.GET("/measurements/can-send", h.CanSendMeasurements)
		message.POST("/measurements", h.SendMeasurements)

		message.GET("/after-wizard/can-send", h.CanSendWizard)
		message.POST("/after-wizard", h.SendWizard)
	}
	return nil
}

// writeError maps service errors to HTTP statuses
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecases.ErrNoReportData):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, usecases.ErrAlreadySent):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, dates.ErrInvalidTimezone),
		errors.Is(err, usecases.ErrIncompleteProfile),
		errors.Is(err, usecases.ErrEmptyContent):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.FromContext(c.Request.Context()).Error("Request failed", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message: " + err.Error()})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
}

// parseDay accepts a calendar date or an RFC 3339 instant. Calendar dates
// resolve to noon in loc so the legacy day shift keeps them on the same day.
func parseDay(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(time.DateOnly, value, loc); err == nil {
		return t.Add(12 * time.Hour), nil
	}
	return time.Parse(time.RFC3339, value)
}

type timezoneQuery struct {
	Timezone string `form:"timezone" binding:"timezone"`
}

func (h *Handler) CanSendReport(c *gin.Context) {
	var q timezoneQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	ok, err := h.reports.CanSend(c.Request.Context(), currentUser(c), q.Timezone)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"canSend": ok})
}

type sendReportRequest struct {
	Content    string `json:"content" binding:"required"`
	ReceiverID int64  `json:"receiverId" binding:"required"`
	Timezone   string `json:"timezone" binding:"timezone"`
}

func (h *Handler) SendReport(c *gin.Context) {
	var req sendReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	msg, err := h.reports.Send(c.Request.Context(), currentUser(c), usecases.SendReportRequest{
		Content:    SanitizeString(req.Content),
		ReceiverID: req.ReceiverID,
		Timezone:   req.Timezone,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

type generatedReportRequest struct {
	ReceiverID int64  `json:"receiverId" binding:"required"`
	Timezone   string `json:"timezone" binding:"timezone"`
}

func (h *Handler) SendGeneratedReport(c *gin.Context) {
	var req generatedReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	msg, err := h.reports.SendGenerated(c.Request.Context(), currentUser(c), req.ReceiverID, req.Timezone)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

type previewQuery struct {
	Date     string `form:"date"`
	Timezone string `form:"timezone" binding:"timezone"`
	ShowDate bool   `form:"showDate"`
}

func (h *Handler) PreviewReport(c *gin.Context) {
	var q previewQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	loc, err := dates.LoadLocation(q.Timezone)
	if err != nil {
		writeError(c, err)
		return
	}
	date := time.Now()
	if q.Date != "" {
		if date, err = parseDay(q.Date, loc); err != nil {
			badRequest(c, err)
			return
		}
	}

	content, err := h.reports.Preview(c.Request.Context(), currentUser(c), date, q.Timezone, q.ShowDate)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": content})
}

type contentRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *Handler) SendSelfMessage(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.reports.SendSelf(c.Request.Context(), currentUser(c), SanitizeString(req.Content)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

type privateMessageRequest struct {
	Content    string `json:"content" binding:"required"`
	ReceiverID int64  `json:"receiverId" binding:"required"`
}

func (h *Handler) SendPrivateMessage(c *gin.Context) {
	var req privateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.reports.SendPrivate(c.Request.Context(), req.ReceiverID, SanitizeString(req.Content)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

type listQuery struct {
	StartDate      *time.Time `form:"startDate" time_format:"2006-01-02T15:04:05Z07:00"`
	EndDate        *time.Time `form:"endDate" time_format:"2006-01-02T15:04:05Z07:00"`
	Offset         int64      `form:"offset" binding:"min=0"`
	Limit          int64      `form:"limit" binding:"omitempty,min=1,max=1000"`
	OrderDirection string     `form:"orderDirection" binding:"omitempty,oneof=asc desc"`
}

func (h *Handler) ListMessages(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	messages, err := h.reports.List(c.Request.Context(), interfaces.MessageFilter{
		UserID:    currentUser(c).ID.Hex(),
		From:      q.StartDate,
		To:        q.EndDate,
		Offset:    q.Offset,
		Limit:     q.Limit,
		Ascending: q.OrderDirection != "desc",
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

type firstMessagesRequest struct {
	Users []string `json:"users" binding:"required,min=1,dive,objectid"`
}

func (h *Handler) FirstMessages(c *gin.Context) {
	var req firstMessagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	messages, err := h.reports.FirstMessages(c.Request.Context(), req.Users)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// measurementIDsQuery names the stored measurement behind every submitted value
type measurementIDsQuery struct {
	Weight   string `form:"weight" binding:"required,objectid"`
	Waist    string `form:"waist" binding:"required,objectid"`
	Shoulder string `form:"shoulder" binding:"required,objectid"`
	Hip      string `form:"hip" binding:"required,objectid"`
	Hips     string `form:"hips" binding:"required,objectid"`
	Chest    string `form:"chest" binding:"required,objectid"`
}

func (h *Handler) CanSendMeasurements(c *gin.Context) {
	var q measurementIDsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	ids := []string{q.Weight, q.Waist, q.Shoulder, q.Hip, q.Hips, q.Chest}
	ok, err := h.measurements.CanSend(c.Request.Context(), currentUser(c), ids)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"canSend": ok})
}

type measurementInput struct {
	ID         string           `json:"id" binding:"omitempty,objectid"`
	Value      *entities.Number `json:"value" binding:"required"`
	LastValue  *entities.Number `json:"lastValue"`
	StartValue *entities.Number `json:"startValue"`
	Goal       *entities.Number `json:"goal"`
}

type measurementsRequest struct {
	Weight     *measurementInput `json:"weight" binding:"required"`
	Waist      *measurementInput `json:"waist" binding:"required"`
	Shoulder   *measurementInput `json:"shoulder" binding:"required"`
	Hip        *measurementInput `json:"hip" binding:"required"`
	Hips       *measurementInput `json:"hips" binding:"required"`
	Chest      *measurementInput `json:"chest" binding:"required"`
	ReceiverID int64             `json:"receiverId" binding:"required"`
}

// values lists the submitted measurements in display order
func (r measurementsRequest) values() []entities.MeasurementValue {
	inputs := map[entities.BodyMetric]*measurementInput{
		entities.Weight:   r.Weight,
		entities.Waist:    r.Waist,
		entities.Shoulder: r.Shoulder,
		entities.Hip:      r.Hip,
		entities.Hips:     r.Hips,
		entities.Chest:    r.Chest,
	}
	values := make([]entities.MeasurementValue, 0, len(entities.BodyMetrics))
	for _, kind := range entities.BodyMetrics {
		in := inputs[kind]
		values = append(values, entities.MeasurementValue{
			ID:         in.ID,
			Kind:       kind,
			Value:      *in.Value,
			LastValue:  in.LastValue,
			StartValue: in.StartValue,
			Goal:       in.Goal,
		})
	}
	return values
}

func (h *Handler) SendMeasurements(c *gin.Context) {
	var req measurementsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	msg, _, err := h.measurements.Send(c.Request.Context(), currentUser(c), req.values(), req.ReceiverID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *Handler) CanSendWizard(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"canSend": h.wizard.CanSend(currentUser(c))})
}

type wizardRequest struct {
	Sex           string           `json:"sex" binding:"required,oneof=male female"`
	Birthday      string           `json:"birthday" binding:"required"`
	Height        *entities.Number `json:"height" binding:"required"`
	Weight        *entities.Number `json:"weight" binding:"required"`
	Waist         *entities.Number `json:"waist" binding:"required"`
	Shoulder      *entities.Number `json:"shoulder" binding:"required"`
	Hip           *entities.Number `json:"hip" binding:"required"`
	Hips          *entities.Number `json:"hips" binding:"required"`
	Chest         *entities.Number `json:"chest" binding:"required"`
	GoalWeight    *entities.Number `json:"goalWeight" binding:"required"`
	WhereDoSports string           `json:"whereDoSports" binding:"required,oneof=gym home both"`
	IsGaveBirth   string           `json:"isGaveBirth" binding:"omitempty,oneof=no yes"`
	GaveBirth     string           `json:"gaveBirth"`
	Breastfeeding string           `json:"breastfeeding" binding:"omitempty,oneof=no yes"`
	ReceiverID    int64            `json:"receiverId" binding:"required"`
}

func (r wizardRequest) onboarding() (report.Onboarding, error) {
	birthday, err := parseDay(r.Birthday, time.UTC)
	if err != nil {
		return report.Onboarding{}, errors.New("birthday must be a date")
	}
	if r.GoalWeight.LessThan(decimal.NewFromInt(1)) {
		return report.Onboarding{}, errors.New("goalWeight must be at least 1")
	}
	o := report.Onboarding{
		Sex:           r.Sex,
		Birthday:      birthday,
		Height:        r.Height,
		Weight:        r.Weight,
		Waist:         r.Waist,
		Shoulder:      r.Shoulder,
		Hip:           r.Hip,
		Hips:          r.Hips,
		Chest:         r.Chest,
		GoalWeight:    r.GoalWeight,
		WhereDoSports: r.WhereDoSports,
		IsGaveBirth:   r.IsGaveBirth,
		Breastfeeding: r.Breastfeeding,
	}
	if strings.TrimSpace(r.GaveBirth) != "" {
		gaveBirth, err := parseDay(r.GaveBirth, time.UTC)
		if err != nil {
			return report.Onboarding{}, errors.New("gaveBirth must be a date")
		}
		o.GaveBirth = &gaveBirth
	}
	return o, nil
}

func (h *Handler) SendWizard(c *gin.Context) {
	var req wizardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	answers, err := req.onboarding()
	if err != nil {
		badRequest(c, err)
		return
	}
	if _, err := h.wizard.Send(c.Request.Context(), currentUser(c), answers, req.ReceiverID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}
