package entities

// ReportUser is the user projection assembled for one report day
type ReportUser struct {
	User                `bson:",inline"`
	Measurements        []Measurement `bson:"measurements"`
	AllIngredients      []Ingredient  `bson:"allIngredients"`
	AllIngredientsV2    []Ingredient  `bson:"allIngredientsV2"`
	Sets                []Set         `bson:"sets"`
	SetsV2              []Set         `bson:"setsV2"`
	Messages            []Message     `bson:"messages"`
	Notes               []Note        `bson:"notes"`
	NotesV2             []Note        `bson:"notesV2"`
	WeeklyWorkoutsCount int64         `bson:"weeklyWorkoutsCount"`
}

// MealPlan is either LegacyMeals or MealsV2
type MealPlan interface {
	Catalog() []Ingredient
	Items() []SetItem
	DayNotes() []Note
	mealPlan()
}

type LegacyMeals struct {
	Ingredients []Ingredient
	Set         *Set
	Notes       []Note
}

func (m LegacyMeals) Catalog() []Ingredient { return m.Ingredients }
func (m LegacyMeals) Items() []SetItem      { return m.Set.Resolved() }
func (m LegacyMeals) DayNotes() []Note      { return m.Notes }
func (LegacyMeals) mealPlan()               {}

type MealsV2 struct {
	Ingredients []Ingredient
	Set         *Set
	Notes       []Note
}

func (m MealsV2) Catalog() []Ingredient { return m.Ingredients }
func (m MealsV2) Items() []SetItem      { return m.Set.Resolved() }
func (m MealsV2) DayNotes() []Note      { return m.Notes }
func (MealsV2) mealPlan()               {}

func firstSet(sets []Set) *Set {
	if len(sets) == 0 {
		return nil
	}
	return &sets[0]
}

// MealPlan selects the catalog generation by the user's feature flag
func (u *ReportUser) MealPlan() MealPlan {
	if u.HasFeature(FeatureMealsV2) {
		return MealsV2{Ingredients: u.AllIngredientsV2, Set: firstSet(u.SetsV2), Notes: u.NotesV2}
	}
	return LegacyMeals{Ingredients: u.AllIngredients, Set: firstSet(u.Sets), Notes: u.Notes}
}

func (u *ReportUser) find(kind string) *Measurement {
	for i := range u.Measurements {
		if u.Measurements[i].Type == kind {
			return &u.Measurements[i]
		}
	}
	return nil
}

// Steps is the day's step count, ok is false when none was recorded
func (u *ReportUser) Steps() (Number, bool) {
	m := u.find(MeasurementSteps)
	if m == nil || m.Meta.Value == nil {
		return Number{}, false
	}
	return *m.Meta.Value, true
}

// Exercise is the day's workout, nil when none
func (u *ReportUser) Exercise() *Measurement {
	return u.find(MeasurementExercise)
}

// FirstMessage is the earliest message ever recorded for the user
func (u *ReportUser) FirstMessage() *Message {
	if len(u.Messages) == 0 {
		return nil
	}
	return &u.Messages[0]
}

// ReminderUser is a managed user with their latest message, if any
type ReminderUser struct {
	User     `bson:",inline"`
	Messages []Message `bson:"messages"`
}

// ManagerID is the Telegram id of the user's coach
func (u *User) ManagerID() (int64, bool) {
	return u.Meta.Int64("managerId")
}
