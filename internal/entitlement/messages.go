package entitlement

import (
	"golang.org/x/text/language"
)

// The storefront serves a Spanish-speaking marketplace, so denial prompts
// ship in Spanish and English and follow the caller's negotiated locale.
var promptLanguages = []language.Tag{
	language.English,
	language.Spanish,
}

var promptMatcher = language.NewMatcher(promptLanguages)

var upgradePrompts = map[language.Tag]map[string]string{
	language.English: {
		FeaturePhotoSpin: "360° spins are available on the Dealer plan. Upgrade to showcase your vehicle from every angle.",
		FeatureVideoSpin: "Video-based 360° spins are available on the Dealer plan. Upgrade to turn a walkaround video into an interactive spin.",
		FeatureVideoTour: "Video tours are available on the Dealer plan. Upgrade to generate a guided tour from your photos.",
	},
	language.Spanish: {
		FeaturePhotoSpin: "Los giros 360° están disponibles en el plan Agencia. Mejora tu plan para mostrar tu vehículo desde todos los ángulos.",
		FeatureVideoSpin: "Los giros 360° desde video están disponibles en el plan Agencia. Mejora tu plan para convertir un video en un giro interactivo.",
		FeatureVideoTour: "Los recorridos en video están disponibles en el plan Agencia. Mejora tu plan para generar un recorrido guiado con tus fotos.",
	},
}

var genericUpgradePrompt = map[language.Tag]string{
	language.English: "This feature is available on the Dealer plan. Upgrade your account to use it.",
	language.Spanish: "Esta función está disponible en el plan Agencia. Mejora tu cuenta para usarla.",
}

// upgradePrompt picks the denial message for the caller's locale, falling
// back to English for anything the matcher cannot place.
func upgradePrompt(locale, feature string) string {
	_, index := language.MatchStrings(promptMatcher, locale)
	tag := promptLanguages[index]
	if msg, ok := upgradePrompts[tag][feature]; ok {
		return msg
	}
	return genericUpgradePrompt[tag]
}
