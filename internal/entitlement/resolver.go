package entitlement

import (
	"autostudio/internal/domain"
)

// Feature names a transformation capability a caller may request.
const (
	FeatureEnhance   = "enhance"
	FeaturePhotoSpin = "photo_spin"
	FeatureVideoSpin = "video_spin"
	FeatureVideoTour = "video_tour"
)

// Preset names the visual styles selectable for a transformation.
const (
	PresetShowroom   = "showroom"
	PresetStudio     = "studio"
	PresetDusk       = "dusk"
	PresetDealership = "dealership"
	PresetOutdoor    = "outdoor"
)

// Denial reasons, machine readable.
const (
	ReasonSubscriptionRequired = "subscription_required"
	ReasonFeatureNotInPlan     = "feature_not_in_plan"
)

var (
	freePresets = map[string]bool{
		PresetShowroom: true,
	}
	privilegedPresets = map[string]bool{
		PresetShowroom:   true,
		PresetStudio:     true,
		PresetDusk:       true,
		PresetDealership: true,
		PresetOutdoor:    true,
	}
	freeFeatures = map[string]bool{
		FeatureEnhance: true,
	}
	privilegedFeatures = map[string]bool{
		FeatureEnhance:   true,
		FeaturePhotoSpin: true,
		FeatureVideoSpin: true,
		FeatureVideoTour: true,
	}
)

const (
	freeDefaultPreset       = PresetShowroom
	privilegedDefaultPreset = PresetStudio
)

// Resolution is the outcome of one entitlement check.
type Resolution struct {
	Allowed         bool
	EffectivePreset string
	// Substituted is true when the requested preset was outside the tier and
	// the tier default was applied instead.
	Substituted  bool
	DenialReason string
	// Prompt carries the localized upgrade message for denials.
	Prompt string
}

// FeatureForKind maps a job kind to the feature that gates it.
func FeatureForKind(kind domain.JobKind) string {
	switch kind {
	case domain.JobKindPhotoSpin360:
		return FeaturePhotoSpin
	case domain.JobKindVideoSpin360:
		return FeatureVideoSpin
	case domain.JobKindVideoTour:
		return FeatureVideoTour
	default:
		return FeatureEnhance
	}
}

// Resolve derives the caller's entitlement from current account facts and
// checks the requested feature and preset against it. Pure and stateless:
// identical inputs always produce identical results, so it is safe to call
// concurrently and per request.
//
// The two axes deliberately behave differently. A preset outside the tier is
// substituted with the tier default rather than failing the request; a
// composite feature outside the tier is denied outright with a reason and a
// localized upgrade prompt.
func Resolve(acct domain.Account, feature, preset string) Resolution {
	features := freeFeatures
	presets := freePresets
	defaultPreset := freeDefaultPreset
	if acct.Privileged() {
		features = privilegedFeatures
		presets = privilegedPresets
		defaultPreset = privilegedDefaultPreset
	}

	if feature == "" {
		feature = FeatureEnhance
	}
	if !features[feature] {
		reason := ReasonFeatureNotInPlan
		if acct.Type == domain.AccountTypeDealer && !acct.HasActiveSubscription {
			reason = ReasonSubscriptionRequired
		}
		return Resolution{
			Allowed:      false,
			DenialReason: reason,
			Prompt:       upgradePrompt(acct.Locale, feature),
		}
	}

	res := Resolution{Allowed: true, EffectivePreset: preset}
	if preset == "" {
		res.EffectivePreset = defaultPreset
	} else if !presets[preset] {
		res.EffectivePreset = defaultPreset
		res.Substituted = true
	}
	return res
}
