package model

// LicenseStatus is the entitlement tier of a license record.
type LicenseStatus string

const (
	LicenseFree    LicenseStatus = "free"
	LicensePremium LicenseStatus = "premium"
	LicenseMaster  LicenseStatus = "master"
)

// LicenseRecord is the cached premium entitlement snapshot. It is mutated
// only through the verify/restore flows and persisted in the settings store.
type LicenseRecord struct {
	Status       LicenseStatus `json:"status"`
	ProductType  string        `json:"productType,omitempty"`
	Key          string        `json:"key,omitempty"`
	Email        string        `json:"email,omitempty"`
	OrderID      string        `json:"orderId,omitempty"`
	PurchaseDate string        `json:"purchaseDate,omitempty"`
}

// Premium reports whether the record unlocks gated features.
func (l LicenseRecord) Premium() bool {
	return l.Status == LicensePremium || l.Status == LicenseMaster
}
