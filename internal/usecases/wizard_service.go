package usecases

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"coach_report_bot/internal/config"
	"coach_report_bot/internal/entities"
	"coach_report_bot/internal/interfaces"
	"coach_report_bot/internal/report"
)

// MetaWizardMessageSent marks users whose onboarding summary went out
const MetaWizardMessageSent = "wizardMessageSent"

// wizardProfile is the part of the onboarding stored in user meta by the app
type wizardProfile struct {
	FirstName          string `validate:"min=3,max=20"`
	LastName           string `validate:"min=3,max=20"`
	Contraindications  string
	EatingDisorder     string
	SpineIssues        string
	EndocrineDisorders string
	PhysicalActivity   string
	FoodIntolerances   string
}

func profileFromMeta(meta entities.Meta) wizardProfile {
	return wizardProfile{
		FirstName:          meta.String("firstName"),
		LastName:           meta.String("lastName"),
		Contraindications:  meta.String("contraindications"),
		EatingDisorder:     meta.String("eatingDisorder"),
		SpineIssues:        meta.String("spineIssues"),
		EndocrineDisorders: meta.String("endocrineDisorders"),
		PhysicalActivity:   meta.String("physicalActivity"),
		FoodIntolerances:   meta.String("foodIntolerances"),
	}
}

type WizardService struct {
	users      interfaces.UserStore
	dispatcher *Dispatcher
	messenger  interfaces.Messenger
	cfg        *config.Config
	validate   *validator.Validate
}

func NewWizardService(users interfaces.UserStore, dispatcher *Dispatcher, messenger interfaces.Messenger, cfg *config.Config) *WizardService {
	return &WizardService{
		users:      users,
		dispatcher: dispatcher,
		messenger:  messenger,
		cfg:        cfg,
		validate:   validator.New(),
	}
}

func (s *WizardService) CanSend(user *entities.User) bool {
	return !user.Meta.Bool(MetaWizardMessageSent)
}

// Send delivers the onboarding summary to the coach, once per user. answers
// carries the wizard form; the profile part is taken from the user's meta.
func (s *WizardService) Send(ctx context.Context, user *entities.User, answers report.Onboarding, receiverID int64) (string, error) {
	if !s.CanSend(user) {
		return "", ErrAlreadySent
	}

	profile := profileFromMeta(user.Meta)
	if err := s.validate.Struct(profile); err != nil {
		return "", fmt.Errorf("%w: %v", ErrIncompleteProfile, err)
	}
	answers.FirstName = profile.FirstName
	answers.LastName = profile.LastName
	answers.Contraindications = profile.Contraindications
	answers.EatingDisorder = profile.EatingDisorder
	answers.SpineIssues = profile.SpineIssues
	answers.EndocrineDisorders = profile.EndocrineDisorders
	answers.PhysicalActivity = profile.PhysicalActivity
	answers.FoodIntolerances = profile.FoodIntolerances

	appLink := AppLink(s.messenger.BotUsername(), s.cfg.TelegramApp, user.ID)
	var content string
	err := s.dispatcher.Deliver(ctx, Delivery{
		ChatID: receiverID,
		Render: func(tier Tier) string {
			content = report.RenderOnboarding(answers, user.TelegramID, appLink, tier.Profile)
			return content
		},
		Contact: UserContact(user.TelegramID),
		AppLink: appLink,
	})
	if err != nil {
		return "", err
	}

	if err := s.users.SetMeta(ctx, user.ID, MetaWizardMessageSent, true); err != nil {
		return "", fmt.Errorf("failed to mark onboarding summary as sent: %w", err)
	}
	return content, nil
}
