package usecases

import (
	"fmt"
	"net/url"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Contact is the Telegram account the profile and chat buttons point to
type Contact struct {
	TelegramID   int64
	ProfileLabel string
	MessageLabel string
}

// UserContact is shown to coaches receiving something from a user
func UserContact(telegramID int64) *Contact {
	return &Contact{
		TelegramID:   telegramID,
		ProfileLabel: "Показати користувача",
		MessageLabel: "Написати користувачеві",
	}
}

// ReceiverContact is shown to users on the confirmation copy
func ReceiverContact(telegramID int64) *Contact {
	return &Contact{
		TelegramID:   telegramID,
		ProfileLabel: "Показати отримувача",
		MessageLabel: "Написати отримувачеві",
	}
}

func ProfileURL(telegramID int64) string {
	return fmt.Sprintf("tg://user?id=%d", telegramID)
}

func OpenMessageURL(telegramID int64) string {
	return fmt.Sprintf("tg://openmessage?user_id=%d", telegramID)
}

// AppLink deep-links into the mini app on the user's page. Empty when the app
// name is not configured.
func AppLink(botUsername, app string, userID bson.ObjectID) string {
	if botUsername == "" || app == "" {
		return ""
	}
	return fmt.Sprintf("https://t.me/%s/%s?startapp=user_%s", botUsername, app, url.QueryEscape(userID.Hex()))
}

// BuildKeyboard returns the buttons a tier allows, nil when none remain
func BuildKeyboard(contact *Contact, tier Tier, appLink, appLabel string) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	if contact != nil {
		var row []tgbotapi.InlineKeyboardButton
		if tier.Profile {
			row = append(row, tgbotapi.NewInlineKeyboardButtonURL(contact.ProfileLabel, ProfileURL(contact.TelegramID)))
		}
		if tier.Messaging {
			row = append(row, tgbotapi.NewInlineKeyboardButtonURL(contact.MessageLabel, OpenMessageURL(contact.TelegramID)))
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	if tier.App && appLink != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(appLabel, appLink)))
	}

	if len(rows) == 0 {
		return nil
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

// UserPageKeyboard is the single button attached to inline query articles
func UserPageKeyboard(appLink string) *tgbotapi.InlineKeyboardMarkup {
	if appLink == "" {
		return nil
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonURL("Перейти до користувача", appLink),
	))
	return &markup
}
