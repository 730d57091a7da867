package domain

// AccountType enumerates caller account categories.
type AccountType string

const (
	AccountTypePersonal AccountType = "personal"
	AccountTypeDealer   AccountType = "dealer"
	AccountTypeAdmin    AccountType = "admin"
)

// Account carries the facts entitlement is derived from. Entitlement is
// recomputed per request from these facts, never persisted, so subscription
// changes apply immediately to new submissions and never retroactively to
// in-flight jobs.
type Account struct {
	ID                    string
	Type                  AccountType
	HasActiveSubscription bool
	Locale                string
}

// Privileged reports whether the account belongs to the expanded tier.
func (a Account) Privileged() bool {
	if a.Type == AccountTypeAdmin {
		return true
	}
	return a.Type == AccountTypeDealer && a.HasActiveSubscription
}
