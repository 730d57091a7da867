package entitlement

import (
	"strings"
	"testing"

	"autostudio/internal/domain"
)

func TestResolvePresetSubstitution(t *testing.T) {
	tests := []struct {
		name        string
		acct        domain.Account
		preset      string
		wantPreset  string
		substituted bool
	}{
		{
			name:        "free caller requesting privileged preset gets tier default",
			acct:        domain.Account{Type: domain.AccountTypePersonal},
			preset:      PresetStudio,
			wantPreset:  PresetShowroom,
			substituted: true,
		},
		{
			name:       "free caller requesting the free preset keeps it",
			acct:       domain.Account{Type: domain.AccountTypePersonal},
			preset:     PresetShowroom,
			wantPreset: PresetShowroom,
		},
		{
			name:       "empty preset resolves to tier default",
			acct:       domain.Account{Type: domain.AccountTypePersonal},
			preset:     "",
			wantPreset: PresetShowroom,
		},
		{
			name:       "subscribed dealer keeps privileged preset",
			acct:       domain.Account{Type: domain.AccountTypeDealer, HasActiveSubscription: true},
			preset:     PresetDusk,
			wantPreset: PresetDusk,
		},
		{
			name:        "unknown preset substituted for privileged tier too",
			acct:        domain.Account{Type: domain.AccountTypeDealer, HasActiveSubscription: true},
			preset:      "vaporwave",
			wantPreset:  PresetStudio,
			substituted: true,
		},
		{
			name:       "admin override is always privileged",
			acct:       domain.Account{Type: domain.AccountTypeAdmin},
			preset:     PresetDealership,
			wantPreset: PresetDealership,
		},
		{
			name:        "lapsed dealer falls back to free tier",
			acct:        domain.Account{Type: domain.AccountTypeDealer},
			preset:      PresetStudio,
			wantPreset:  PresetShowroom,
			substituted: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Resolve(tc.acct, FeatureEnhance, tc.preset)
			if !res.Allowed {
				t.Fatalf("enhance denied: %+v", res)
			}
			if res.EffectivePreset != tc.wantPreset {
				t.Fatalf("preset = %s, want %s", res.EffectivePreset, tc.wantPreset)
			}
			if res.Substituted != tc.substituted {
				t.Fatalf("substituted = %v, want %v", res.Substituted, tc.substituted)
			}
		})
	}
}

func TestResolveCompositeFeatureDenial(t *testing.T) {
	free := domain.Account{Type: domain.AccountTypePersonal, Locale: "en"}
	for _, feature := range []string{FeaturePhotoSpin, FeatureVideoSpin, FeatureVideoTour} {
		res := Resolve(free, feature, "")
		if res.Allowed {
			t.Fatalf("%s allowed for free tier", feature)
		}
		if res.DenialReason != ReasonFeatureNotInPlan {
			t.Fatalf("%s reason = %s", feature, res.DenialReason)
		}
		if res.Prompt == "" {
			t.Fatalf("%s denial missing upgrade prompt", feature)
		}
	}
}

func TestResolveLapsedDealerDenialReason(t *testing.T) {
	lapsed := domain.Account{Type: domain.AccountTypeDealer, HasActiveSubscription: false}
	res := Resolve(lapsed, FeaturePhotoSpin, "")
	if res.Allowed {
		t.Fatalf("lapsed dealer allowed composite feature")
	}
	if res.DenialReason != ReasonSubscriptionRequired {
		t.Fatalf("reason = %s, want %s", res.DenialReason, ReasonSubscriptionRequired)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	acct := domain.Account{Type: domain.AccountTypePersonal}
	first := Resolve(acct, FeatureEnhance, PresetDusk)
	for i := 0; i < 50; i++ {
		if got := Resolve(acct, FeatureEnhance, PresetDusk); got != first {
			t.Fatalf("resolution drifted on call %d: %+v != %+v", i, got, first)
		}
	}
}

func TestUpgradePromptLocale(t *testing.T) {
	es := Resolve(domain.Account{Type: domain.AccountTypePersonal, Locale: "es-MX"}, FeatureVideoTour, "")
	if !strings.Contains(es.Prompt, "recorridos") {
		t.Fatalf("expected spanish prompt, got %q", es.Prompt)
	}
	en := Resolve(domain.Account{Type: domain.AccountTypePersonal, Locale: "en-US"}, FeatureVideoTour, "")
	if !strings.Contains(en.Prompt, "Video tours") {
		t.Fatalf("expected english prompt, got %q", en.Prompt)
	}
	fallback := Resolve(domain.Account{Type: domain.AccountTypePersonal, Locale: "zz"}, FeatureVideoTour, "")
	if fallback.Prompt == "" {
		t.Fatalf("fallback prompt empty")
	}
}

func TestFeatureForKind(t *testing.T) {
	if FeatureForKind(domain.JobKindImageBatchTransform) != FeatureEnhance {
		t.Fatalf("batch transform should be gated by enhance")
	}
	if FeatureForKind(domain.JobKindPhotoSpin360) != FeaturePhotoSpin {
		t.Fatalf("photo spin mapping wrong")
	}
	if FeatureForKind(domain.JobKindVideoSpin360) != FeatureVideoSpin {
		t.Fatalf("video spin mapping wrong")
	}
	if FeatureForKind(domain.JobKindVideoTour) != FeatureVideoTour {
		t.Fatalf("video tour mapping wrong")
	}
}
