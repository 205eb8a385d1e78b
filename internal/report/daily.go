// Package report renders the MarkdownV2 texts delivered to coaches: the daily
// report, measurement summaries and the onboarding summary.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"coach_report_bot/internal/dates"
	"coach_report_bot/internal/entities"
	"coach_report_bot/internal/markdown"
)

var hundred = decimal.NewFromInt(100)

const quoteGap = "\n>\n"

type Options struct {
	Date     time.Time
	ShowDate bool
	Timezone string
	// MaxConsumptionPercent scales the calorie recommendation, 100 when invalid
	MaxConsumptionPercent decimal.NullDecimal
}

func (o Options) percent() decimal.Decimal {
	if o.MaxConsumptionPercent.Valid {
		return o.MaxConsumptionPercent.Decimal
	}
	return hundred
}

// RenderReport builds the daily report of u. balance is the remaining
// subscription days.
func RenderReport(u *entities.ReportUser, balance decimal.Decimal, opts Options) (string, error) {
	if u == nil {
		return "", fmt.Errorf("report user is nil")
	}
	if opts.Date.IsZero() {
		opts.Date = time.Now()
	}
	if _, err := dates.LoadLocation(opts.Timezone); err != nil {
		return "", err
	}

	plan := u.MealPlan()
	sections := []string{
		renderHeading(u, balance, opts),
		renderNutrition(plan, opts),
		renderExercise(u.Exercise()),
		renderWeeklyWorkouts(u.WeeklyWorkoutsCount),
		renderSteps(u),
	}
	return strings.Join(sections, "\n\n"), nil
}

// ProgramDay is the 1-based day number of the user's program on date
func ProgramDay(u *entities.ReportUser, date time.Time) int64 {
	utcStart := utcDayStart(date)

	var programStart time.Time
	if t, ok := u.Meta.Time("programStart"); ok {
		programStart = t
	} else if first := u.FirstMessage(); first != nil {
		programStart = utcDayStart(first.CreatedAt)
	} else {
		return 1
	}

	// whole days elapsed, truncated toward zero
	days := math.Trunc(utcStart.Sub(programStart).Hours() / 24)
	return int64(days) + 1
}

func utcDayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func renderHeading(u *entities.ReportUser, balance decimal.Decimal, opts Options) string {
	var b strings.Builder
	if opts.ShowDate {
		b.WriteString("*_Щоденний звіт за " + markdown.Escape(dates.FormatDay(opts.Date, opts.Timezone)) + ":_*\n")
	}
	b.WriteString("*Користувач:* " + markdown.UserLink(u.DisplayName(), u.TelegramID) + "\n")
	b.WriteString(markdown.Escapef("*Кількість днів на програмі:* %v", ProgramDay(u, opts.Date)) + "\n")
	b.WriteString(markdown.Escapef("*Кількість днів до завершення підписки:* %v", balance.String()))
	return b.String()
}

// ingredientValue is the per-portion amount of a nutrient for the plan's
// catalog generation
func ingredientValue(plan entities.MealPlan, ing *entities.Ingredient, nutrient entities.Number) decimal.Decimal {
	switch plan.(type) {
	case entities.MealsV2:
		if ing.Unit == entities.UnitPieces {
			return ing.Grams.Mul(nutrient.Decimal).Round(0)
		}
		return nutrient.Mul(ing.Grams.Decimal).Div(hundred).Round(0)
	default:
		return nutrient.Round(0)
	}
}

func calories(i *entities.Ingredient) entities.Number { return i.Calories }
func proteins(i *entities.Ingredient) entities.Number { return i.Proteins }

// itemTotal sums the consumed amount of a nutrient, rounding each item first
func itemTotal(plan entities.MealPlan, items []entities.SetItem, nutrient func(*entities.Ingredient) entities.Number) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		value := ingredientValue(plan, item.Ingredient, nutrient(item.Ingredient))
		total = total.Add(value.Mul(item.Value.Decimal).Round(0))
	}
	return total
}

// Recommendation is the calorie ceiling: the richest ingredient of every
// category summed up and scaled by percent
func Recommendation(plan entities.MealPlan, percent decimal.Decimal) decimal.Decimal {
	best := map[bson.ObjectID]decimal.Decimal{}
	for i := range plan.Catalog() {
		ing := &plan.Catalog()[i]
		value := ingredientValue(plan, ing, ing.Calories)
		if value.GreaterThanOrEqual(best[ing.CategoryID]) {
			best[ing.CategoryID] = value
		}
	}
	sum := decimal.Zero
	for _, v := range best {
		sum = sum.Add(v)
	}
	return sum.Mul(percent).Div(hundred).Round(0)
}

func renderItem(plan entities.MealPlan, item entities.SetItem) string {
	ing := item.Ingredient
	var line string
	switch plan.(type) {
	case entities.MealsV2:
		amount := ing.Grams.Mul(item.Value.Decimal).Round(0).String()
		if ing.Unit == entities.UnitPieces {
			amount += " шт."
		} else {
			amount += "г"
		}
		line = ">• *" + markdown.Escape(ing.Name) + "* \\(" + markdown.Escape(amount) + "\\) \\(" +
			markdown.Escape(item.Value.Mul(hundred).Round(0).String()) + "\\% від рекомендованої\\)"
	default:
		line = ">• *" + markdown.Escape(ing.Name) + "* \\(" + markdown.Escape(ing.Grams.String()) + "г\\): " +
			markdown.Escape(item.Value.Mul(hundred).String()) + "%"
	}
	if info := strings.TrimSpace(item.AdditionalInfo); info != "" {
		line += ` \- "` + markdown.Escape(info) + `"`
	}
	return line
}

var ukrainian = language.Ukrainian

func renderCategories(plan entities.MealPlan, items []entities.SetItem) string {
	groups := map[string][]entities.SetItem{}
	var names []string
	for _, item := range items {
		name := item.Ingredient.Category.Name
		if _, ok := groups[name]; !ok {
			names = append(names, name)
		}
		groups[name] = append(groups[name], item)
	}
	if len(names) == 0 {
		return ">*Немає інформації про інгредієнти*"
	}

	c := collate.New(ukrainian)
	sort.SliceStable(names, func(i, j int) bool {
		return c.CompareString(names[i], names[j]) < 0
	})

	blocks := make([]string, 0, len(names))
	for _, name := range names {
		lines := []string{">*Категорія " + markdown.Escape(name) + ":*"}
		for _, item := range groups[name] {
			lines = append(lines, renderItem(plan, item))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, quoteGap)
}

func renderNotes(notes []entities.Note) string {
	if len(notes) == 0 {
		return ""
	}
	lines := []string{">*Примітки користувача:*"}
	for _, n := range notes {
		lines = append(lines, ">• "+markdown.Escape(n.Content))
	}
	return quoteGap + strings.Join(lines, "\n")
}

func renderNutrition(plan entities.MealPlan, opts Options) string {
	items := plan.Items()
	return "**>*_Харчування:_*\n" +
		markdown.Escapef(">*Калорії:* %v ккал / %v ккал", itemTotal(plan, items, calories).String(), Recommendation(plan, opts.percent()).String()) + "\n" +
		markdown.Escapef(">*Білки:* %v г", itemTotal(plan, items, proteins).String()) +
		quoteGap +
		renderCategories(plan, items) +
		renderNotes(plan.DayNotes())
}

func numberOrZero(n *entities.Number) string {
	if n == nil {
		return "0"
	}
	return n.String()
}

func renderExercise(exercise *entities.Measurement) string {
	header := ">*_Фізична активність:_*\n"
	if exercise == nil {
		return header + ">Сьогодні не було проведено тренування"
	}

	meta := exercise.Meta
	var lines []string
	if meta.Type == entities.ExerciseHome {
		lines = []string{
			">• *Тип:* Домашнє",
			">• *Кількість кругів:* " + markdown.Escape(numberOrZero(meta.Rounds)),
			">• *Кількість повторень:* " + markdown.Escape(numberOrZero(meta.Exercises)),
		}
	} else {
		progress := "Немає"
		if meta.StrengthProgress {
			progress = "Є"
		}
		lines = []string{
			">• *Тип:* В залі",
			">• *Тренувальний день:* " + markdown.Escape("День "+numberOrZero(meta.TrainingDay)),
			">• *Прогрес в силових:* " + progress,
		}
	}
	lines = append(lines, ">• *Ваші почуття:* "+markdown.Escape(meta.Feeling))
	return header + strings.Join(lines, "\n")
}

func renderWeeklyWorkouts(count int64) string {
	return ">*_Тренування за тиждень \\(понеділок — неділя\\):_*\n" +
		markdown.Escapef(">*Проведено:* %v", count)
}

// StepsGoal is the user's daily step goal, 7000 when not configured
func StepsGoal(u *entities.User) decimal.Decimal {
	if goal, ok := u.Meta.Decimal("stepsGoal"); ok {
		return goal
	}
	return decimal.NewFromInt(entities.DefaultStepsGoal)
}

func renderSteps(u *entities.ReportUser) string {
	steps, _ := u.Steps()
	goal := StepsGoal(&u.User)

	verdict := ">Мета не досягнута 😔"
	if steps.GreaterThanOrEqual(goal) {
		verdict = ">Мета досягнута 🎉"
	}
	return ">*_Кроки:_*\n" +
		markdown.Escapef(">*Пройдено*: %v із %v", steps.String(), goal.String()) + "\n" +
		verdict
}
