package report

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"coach_report_bot/internal/dates"
	"coach_report_bot/internal/entities"
	"coach_report_bot/internal/markdown"
)

// indicatorInput is one metric with its optional history
type indicatorInput struct {
	kind     entities.BodyMetric
	value    entities.Number
	previous *entities.Number
	start    *entities.Number
	goal     *entities.Number
}

func (in indicatorInput) format(n entities.Number) string {
	return in.kind.Format(n)
}

// indicators renders every optional line whose inputs are present
func (in indicatorInput) indicators() []string {
	var lines []string
	if in.previous != nil {
		lines = append(lines, ">*Попереднє значення:* "+markdown.Escape(in.format(*in.previous)))
	}
	if in.start != nil {
		lines = append(lines, ">*Початкове значення:* "+markdown.Escape(in.format(*in.start)))
	}
	if in.goal != nil {
		lines = append(lines, ">*Цільове значення:* "+markdown.Escape(in.format(*in.goal)))
	}
	if in.previous != nil {
		title := "Набрано"
		if in.previous.GreaterThan(in.value.Decimal) {
			title = "Втрачено"
		}
		change := entities.Number{Decimal: in.previous.Sub(in.value.Decimal).Abs()}
		lines = append(lines, ">*"+title+" з минулого раза:* "+markdown.Escape(in.format(change)))
	}
	if in.start != nil && in.goal != nil && !in.start.Equal(in.goal.Decimal) {
		progress := in.value.Sub(in.start.Decimal).
			Div(in.goal.Sub(in.start.Decimal)).
			Mul(decimal.NewFromInt(100))
		lines = append(lines, ">*Прогрес від початку:* "+markdown.Escape(progress.StringFixed(2))+"%")
	}
	return lines
}

func metricTitle(kind entities.BodyMetric) string {
	title, err := kind.Title()
	if err != nil {
		return string(kind)
	}
	return title
}

func renderMetric(in indicatorInput, dateLine string) string {
	var b strings.Builder
	b.WriteString(">*" + markdown.Escape(metricTitle(in.kind)) + ":*\n")
	if dateLine != "" {
		b.WriteString(dateLine + "\n")
	}
	b.WriteString(">*Поточне значення:* " + markdown.Escape(in.format(in.value)))
	if lines := in.indicators(); len(lines) > 0 {
		b.WriteString("\n" + strings.Join(lines, "\n"))
	}
	return b.String()
}

func displayOrUnknown(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return entities.UnknownName
	}
	return name
}

// RenderMeasurementSummary builds the notification for a full set of submitted
// body measurements
func RenderMeasurementSummary(values []entities.MeasurementValue, userName string, telegramID int64) string {
	blocks := make([]string, 0, len(values))
	for _, v := range values {
		blocks = append(blocks, renderMetric(indicatorInput{
			kind:     v.Kind,
			value:    v.Value,
			previous: v.LastValue,
			start:    v.StartValue,
			goal:     v.Goal,
		}, ""))
	}

	return "_*Користувач заповнив усі заміри:*_\n" +
		"*Користувач:* " + markdown.UserLink(displayOrUnknown(userName), telegramID) +
		"\n\n" +
		strings.Join(blocks, "\n\n")
}

// RenderDayMeasurements renders a user's body measurements of one day together
// with the previous and first values of each metric. Weight gets the coach-set
// goal, 70 kg when unset.
func RenderDayMeasurements(u *entities.MeasurementsUser, date time.Time, timezone string) string {
	goalWeight := entities.NumberFromFloat(entities.DefaultGoalWeight)
	if d, ok := u.Meta.Decimal("goal-weight"); ok {
		goalWeight = entities.Number{Decimal: d}
	}

	blocks := make([]string, 0, len(u.Measurements))
	for _, m := range u.Measurements {
		in := indicatorInput{
			kind:     m.Type,
			value:    m.Value,
			previous: m.PreviousValue,
			start:    m.StartValue,
		}
		if m.Type == entities.Weight {
			goal := goalWeight
			in.goal = &goal
		}
		dateLine := ">*Дата:* " + markdown.Escape(dates.FormatDay(time.UnixMilli(m.Timestamp), timezone))
		blocks = append(blocks, renderMetric(in, dateLine))
	}

	return "_*Заміри користувача заповнені за " + markdown.Escape(dates.FormatDay(date, timezone)) + ":*_\n" +
		"*Користувач:* " + markdown.UserLink(u.DisplayName(), u.TelegramID) +
		"\n\n" +
		strings.Join(blocks, "\n\n")
}
