package models

import "time"

// Order is a placed order persisted after a verified checkout. The contact
// email is envelope-encrypted at rest; only its hash is queryable.
type Order struct {
	OrderID          string    `db:"order_id" json:"id"`
	EmailHash        string    `db:"email_hash" json:"-"`
	EmailEncrypted   []byte    `db:"email_encrypted" json:"-"`
	EmailKeyID       string    `db:"email_key_id" json:"-"`
	StoreURL         string    `db:"store_url" json:"store_link"`
	CollaboratorCode string    `db:"collaborator_code" json:"collaborator_code,omitempty"`
	ServiceID        string    `db:"service_id" json:"service_id"`
	ServiceTitle     string    `db:"service_title" json:"service_title"`
	PackageName      string    `db:"package_name" json:"package_name"`
	PackagePriceUSD  float64   `db:"package_price_usd" json:"package_price_usd"`
	PaymentReference string    `db:"payment_reference" json:"payment_reference,omitempty"`
	PaymentStatus    string    `db:"payment_status" json:"payment_status"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// Order payment statuses.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusConfirmed = "confirmed"
	PaymentStatusFree      = "free"
)
