package entities

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	UnitGrams  = "grams"
	UnitPieces = "pieces"
)

type Category struct {
	ID         bson.ObjectID  `bson:"_id,omitempty" json:"_id"`
	Name       string         `bson:"name" json:"name"`
	UserID     string         `bson:"userId" json:"userId"`
	MealID     *bson.ObjectID `bson:"mealId,omitempty" json:"mealId,omitempty"`
	TemplateID *bson.ObjectID `bson:"templateId,omitempty" json:"templateId,omitempty"`
	CreatedAt  time.Time      `bson:"createdAt,omitempty" json:"createdAt"`
}

// Ingredient is a catalog entry. In the legacy catalog Calories and Proteins
// are already per portion; in the v2 catalog they are per 100 g or per piece
// depending on Unit.
type Ingredient struct {
	ID         bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name       string        `bson:"name" json:"name"`
	UserID     string        `bson:"userId" json:"userId"`
	Calories   Number        `bson:"calories" json:"calories"`
	Proteins   Number        `bson:"proteins" json:"proteins"`
	Grams      Number        `bson:"grams" json:"grams"`
	Unit       string        `bson:"unit,omitempty" json:"unit,omitempty"`
	CategoryID bson.ObjectID `bson:"categoryId" json:"categoryId"`
	Category   *Category     `bson:"category,omitempty" json:"category,omitempty"`
	CreatedAt  time.Time     `bson:"createdAt,omitempty" json:"createdAt"`
}

// SetItem is one consumed ingredient of a day set; Value is the fraction of the
// recommended portion
type SetItem struct {
	ID             string      `bson:"id" json:"id"`
	Value          Number      `bson:"value" json:"value"`
	AdditionalInfo string      `bson:"additionalInfo,omitempty" json:"additionalInfo,omitempty"`
	Ingredient     *Ingredient `bson:"ingredient,omitempty" json:"ingredient,omitempty"`
}

// Set is the list of ingredients consumed in one day
type Set struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID      string        `bson:"userId" json:"userId"`
	Ingredients []SetItem     `bson:"ingredients" json:"ingredients"`
	CreatedAt   time.Time     `bson:"createdAt,omitempty" json:"createdAt"`
}

// Resolved drops items whose ingredient or category no longer exists
func (s *Set) Resolved() []SetItem {
	if s == nil {
		return nil
	}
	items := make([]SetItem, 0, len(s.Ingredients))
	for _, item := range s.Ingredients {
		if item.Ingredient == nil || item.Ingredient.Category == nil {
			continue
		}
		items = append(items, item)
	}
	return items
}

type Note struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID    string        `bson:"userId" json:"userId"`
	Content   string        `bson:"content" json:"content"`
	CreatedAt time.Time     `bson:"createdAt,omitempty" json:"createdAt"`
}
