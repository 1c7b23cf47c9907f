package models

// User represents the GDPR_USER table. Only the columns this service
// owns are mapped; the denormalized consent summary mirrors the latest
// ledger state for cheap reads by other services.
type User struct {
	UserID             string  `db:"USER_ID" json:"userId"`
	Name               *string `db:"NAME" json:"name,omitempty"`
	Email              *string `db:"EMAIL" json:"email,omitempty"`
	WalletAddress      *string `db:"WALLET_ADDRESS" json:"walletAddress,omitempty"`
	ConsentSummary     JSON    `db:"CONSENT_SUMMARY" json:"consentSummary,omitempty"`
	ConsentUpdatedTime *int64  `db:"CONSENT_UPDATED_TIME" json:"consentUpdatedTime,omitempty"`
	CreatedTime        int64   `db:"CREATED_TIME" json:"createdTime"`
	UpdatedTime        int64   `db:"UPDATED_TIME" json:"updatedTime"`
}
