package entities

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	RoleAdmin           = "admin"
	RoleManager         = "manager"
	RoleUser            = "user"
	RoleTemplateManager = "template-manager"

	FeatureMealsV2 = "ffMealsV2"

	// UnknownName is shown when a user has neither a coach-set nor a profile name
	UnknownName = "Невідомий"
)

type User struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	TelegramID   int64         `bson:"id" json:"id"`
	FirstName    string        `bson:"firstName,omitempty" json:"firstName,omitempty"`
	LastName     string        `bson:"lastName,omitempty" json:"lastName,omitempty"`
	Username     string        `bson:"username,omitempty" json:"username,omitempty"`
	PhotoURL     string        `bson:"photoUrl,omitempty" json:"photoUrl,omitempty"`
	Role         string        `bson:"role,omitempty" json:"role,omitempty"`
	Permissions  []string      `bson:"permissions,omitempty" json:"permissions,omitempty"`
	FeatureFlags []string      `bson:"featureFlags,omitempty" json:"featureFlags,omitempty"`
	Address      string        `bson:"address,omitempty" json:"address,omitempty"`
	Meta         Meta          `bson:"meta,omitempty" json:"meta,omitempty"`
	CreatedAt    time.Time     `bson:"createdAt,omitempty" json:"createdAt"`
	UpdatedAt    time.Time     `bson:"updatedAt,omitempty" json:"updatedAt"`
}

// Account lets aggregate projections expose their base user record
func (u *User) Account() *User { return u }

func (u *User) EffectiveRole() string {
	if u.Role == "" {
		return RoleUser
	}
	return u.Role
}

func (u *User) HasFeature(flag string) bool {
	for _, f := range u.FeatureFlags {
		if f == flag {
			return true
		}
	}
	return false
}

// DisplayName prefers coach-set names, then the Telegram profile, then UnknownName
func (u *User) DisplayName() string {
	first := strings.TrimSpace(u.Meta.String("firstName"))
	if first == "" {
		first = strings.TrimSpace(u.FirstName)
	}
	last := strings.TrimSpace(u.Meta.String("lastName"))
	if last == "" {
		last = strings.TrimSpace(u.LastName)
	}
	if name := strings.TrimSpace(first + " " + last); name != "" {
		return name
	}
	return UnknownName
}

// ProfileName is the plain Telegram profile name
func (u *User) ProfileName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Meta is the coach-configured open map stored on the user document
type Meta map[string]any

func (m Meta) String(key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func (m Meta) Bool(key string) bool {
	if m == nil {
		return false
	}
	v, _ := m[key].(bool)
	return v
}

// Decimal reads a numeric meta value, ok is false when missing or not numeric
func (m Meta) Decimal(key string) (decimal.Decimal, bool) {
	if m == nil {
		return decimal.Zero, false
	}
	switch v := m[key].(type) {
	case int32:
		return decimal.NewFromInt32(v), true
	case int64:
		return decimal.NewFromInt(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case float64:
		return decimal.NewFromFloat(v), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		return d, err == nil
	}
	return decimal.Zero, false
}

func (m Meta) Int64(key string) (int64, bool) {
	d, ok := m.Decimal(key)
	if !ok {
		return 0, false
	}
	return d.IntPart(), true
}

// Time reads a date stored either as a BSON date or an ISO string
func (m Meta) Time(key string) (time.Time, bool) {
	if m == nil {
		return time.Time{}, false
	}
	switch v := m[key].(type) {
	case time.Time:
		return v, !v.IsZero()
	case bson.DateTime:
		return v.Time(), true
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
