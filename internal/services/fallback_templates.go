package services

import "github.com/l3v3l-match/backend/internal/models"

// fallbackTemplates cover triggers that have no active authored template in
// the store. Kept deliberately plain; authored templates should win.
var fallbackTemplates = map[models.Trigger]models.MessageTemplate{
	models.TriggerNewMatch: {
		Subject: "You have a new match!",
		Body:    "Hi {{firstName}}, {{match.firstName}} matched with you.{% if matchScore >= 90 %} This one looks especially promising.{% endif %}",
	},
	models.TriggerMutualFavorite: {
		Subject: "It's mutual!",
		Body:    "Hi {{firstName}}, you and {{match.firstName}} favorited each other.",
	},
	models.TriggerNewMessage: {
		Subject: "New message from {{sender.firstName}}",
		Body:    "{{sender.firstName}} sent you a message: {{preview}}",
	},
	models.TriggerProfileView: {
		Subject: "Your profile was viewed",
		Body:    "Hi {{firstName}}, {{viewCount}} people viewed your profile recently.",
	},
	models.TriggerPIIRequest: {
		Subject: "Contact details requested",
		Body:    "Hi {{firstName}}, {{requester.firstName}} asked to see your contact details.",
	},
	models.TriggerPIIGranted: {
		Subject: "Contact details shared",
		Body:    "Hi {{firstName}}, {{granter.firstName}} shared their contact details with you.",
	},
	models.TriggerSuspiciousLogin: {
		Subject: "Security alert: new sign-in",
		Body:    "We noticed a sign-in to your account from {{location}}. If this wasn't you, change your password now.",
	},
	models.TriggerAccountStatusChange: {
		Subject: "Your account status changed",
		Body:    "Hi {{firstName}}, your account status is now {{newStatus}}.",
	},
	models.TriggerWeeklyDigest: {
		Subject: "Your week in review",
		Body:    "Hi {{firstName}}, this week you had {{matchCount}} new matches and {{viewCount}} profile views.",
	},
}

var genericFallback = models.MessageTemplate{
	Subject: "You have a new notification",
	Body:    "Hi {{firstName}}, there is new activity on your profile.",
}

// fallbackTemplate returns the hardcoded template for a trigger, or a
// generic one when the trigger has no dedicated fallback.
func fallbackTemplate(trigger models.Trigger) models.MessageTemplate {
	if tmpl, ok := fallbackTemplates[trigger]; ok {
		return tmpl
	}
	return genericFallback
}
