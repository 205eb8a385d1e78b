package report

import (
	"strings"
	"time"

	"coach_report_bot/internal/entities"
	"coach_report_bot/internal/markdown"
)

// Onboarding holds the answers of the mini-app onboarding wizard merged with
// the coach-visible profile fields
type Onboarding struct {
	FirstName          string
	LastName           string
	Contraindications  string
	EatingDisorder     string
	SpineIssues        string
	EndocrineDisorders string
	PhysicalActivity   string
	FoodIntolerances   string

	Sex           string
	Birthday      time.Time
	Height        *entities.Number
	Weight        *entities.Number
	Waist         *entities.Number
	Shoulder      *entities.Number
	Hip           *entities.Number
	Hips          *entities.Number
	Chest         *entities.Number
	GoalWeight    *entities.Number
	WhereDoSports string
	IsGaveBirth   string
	GaveBirth     *time.Time
	Breastfeeding string
}

func (o Onboarding) Name() string {
	return strings.TrimSpace(o.FirstName + " " + o.LastName)
}

type wizardField struct {
	title string
	value string
}

func yesNo(v string) string {
	if v == "yes" {
		return "Так"
	}
	return "Ні"
}

func sportsPlace(v string) string {
	switch v {
	case "gym":
		return "В залі"
	case "home":
		return "Вдома"
	case "both":
		return "Вдома та в залі"
	}
	return v
}

// withUnit is empty for unanswered fields; zero is a valid answer
func withUnit(n *entities.Number, unit string) string {
	if n == nil {
		return ""
	}
	return n.String() + " " + unit
}

func day(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("02.01.2006")
}

func (o Onboarding) fields() []wizardField {
	sex := ""
	switch o.Sex {
	case "male":
		sex = "Чоловіча"
	case "female":
		sex = "Жіноча"
	}
	gaveBirth := ""
	if o.GaveBirth != nil {
		gaveBirth = day(*o.GaveBirth)
	}
	isGaveBirth, breastfeeding := "", ""
	if o.IsGaveBirth != "" {
		isGaveBirth = yesNo(o.IsGaveBirth)
	}
	if o.Breastfeeding != "" {
		breastfeeding = yesNo(o.Breastfeeding)
	}

	return []wizardField{
		{"Ім'я", o.FirstName},
		{"Прізвище", o.LastName},
		{"Протипоказання до вправ від лікаря", o.Contraindications},
		{"Розлад харчової поведінки", o.EatingDisorder},
		{"Проблеми з хребтом, колінами, нирками, з тиском і т.д.", o.SpineIssues},
		{"Ендокринні розлади", o.EndocrineDisorders},
		{"Рухова активність за останній рік", o.PhysicalActivity},
		{"Непереносимість певних продуктів", o.FoodIntolerances},
		{"Стать", sex},
		{"Дата народження", day(o.Birthday)},
		{"Зріст", withUnit(o.Height, "см")},
		{"Вага", withUnit(o.Weight, "кг")},
		{"Талія", withUnit(o.Waist, "см")},
		{"Плечі", withUnit(o.Shoulder, "см")},
		{"Стегно", withUnit(o.Hip, "см")},
		{"Стегна", withUnit(o.Hips, "см")},
		{"Груди", withUnit(o.Chest, "см")},
		{"Цільова вага", withUnit(o.GoalWeight, "кг")},
		{"Де буде займатись", sportsPlace(o.WhereDoSports)},
		{"Чи народжували", isGaveBirth},
		{"Коли народжували", gaveBirth},
		{"Чи годуєте грудьми", breastfeeding},
	}
}

// RenderOnboarding builds the "new user registered" message. The profile line
// is left out when the receiver cannot open the user's profile.
func RenderOnboarding(o Onboarding, telegramID int64, appLink string, withProfile bool) string {
	var b strings.Builder
	b.WriteString("_*Зареестрований новий користувач:*_\n")
	if withProfile {
		b.WriteString("*Користувач:* " + markdown.UserLink(displayOrUnknown(o.Name()), telegramID) + "\n")
	}
	b.WriteString("*Профіль в додатку:* " + markdown.Link("Відкрити", appLink) + "\n\n")

	lines := make([]string, 0, 22)
	for _, f := range o.fields() {
		if f.value == "" {
			continue
		}
		lines = append(lines, "*"+markdown.Escape(f.title)+":* "+markdown.Escape(f.value))
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}
