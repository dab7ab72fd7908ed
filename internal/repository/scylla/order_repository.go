package scylla

import (
	"context"
	"errors"
	"fmt"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"onboarding-service/internal/models"
	"onboarding-service/internal/util"
)

// ErrOrderNotFound is returned when no order matches the lookup.
var ErrOrderNotFound = errors.New("order not found")

// OrderRepository persists placed orders. Lookup is by order id or by the
// contact email hash; the email itself is stored encrypted.
type OrderRepository struct {
	client *ScyllaClient
	logger *zap.Logger
}

func NewOrderRepository(client *ScyllaClient, logger *zap.Logger) *OrderRepository {
	return &OrderRepository{
		client: client,
		logger: logger,
	}
}

const orderColumns = `order_id, email_hash, email_encrypted, email_key_id, store_url,
	collaborator_code, service_id, service_title, package_name, package_price_usd,
	payment_reference, payment_status, created_at`

func (r *OrderRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	query := r.client.Query(`
		INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.OrderID, order.EmailHash, order.EmailEncrypted, order.EmailKeyID,
		order.StoreURL, order.CollaboratorCode, order.ServiceID, order.ServiceTitle,
		order.PackageName, order.PackagePriceUSD, order.PaymentReference,
		order.PaymentStatus, order.CreatedAt,
	).WithContext(ctx)

	if err := query.Exec(); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	// Secondary lookup table keyed by email hash.
	lookup := r.client.Query(`
		INSERT INTO orders_by_email (email_hash, order_id, created_at)
		VALUES (?, ?, ?)`,
		order.EmailHash, order.OrderID, order.CreatedAt,
	).WithContext(ctx)

	if err := lookup.Exec(); err != nil {
		return fmt.Errorf("failed to insert order email lookup: %w", err)
	}

	r.logger.Info("Order persisted",
		util.String("order_id", order.OrderID),
		util.String("package", order.PackageName),
		util.Float64("price_usd", order.PackagePriceUSD))

	return nil
}

func (r *OrderRepository) GetOrderByID(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := r.client.Query(`
		SELECT `+orderColumns+` FROM orders WHERE order_id = ?`, orderID,
	).WithContext(ctx).Scan(
		&order.OrderID, &order.EmailHash, &order.EmailEncrypted, &order.EmailKeyID,
		&order.StoreURL, &order.CollaboratorCode, &order.ServiceID, &order.ServiceTitle,
		&order.PackageName, &order.PackagePriceUSD, &order.PaymentReference,
		&order.PaymentStatus, &order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// GetOrderIDsByEmailHash lists order ids for one contact, newest first.
func (r *OrderRepository) GetOrderIDsByEmailHash(ctx context.Context, emailHash string) ([]string, error) {
	iter := r.client.Query(`
		SELECT order_id FROM orders_by_email WHERE email_hash = ?`, emailHash,
	).WithContext(ctx).Iter()

	var ids []string
	var id string
	for iter.Scan(&id) {
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list orders by email: %w", err)
	}
	return ids, nil
}

// UpdatePaymentStatus records the outcome of a post-redirect verification.
func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, orderID, reference, status string) error {
	query := r.client.Query(`
		UPDATE orders SET payment_reference = ?, payment_status = ?
		WHERE order_id = ?`,
		reference, status, orderID,
	).WithContext(ctx)

	if err := query.Exec(); err != nil {
		return fmt.Errorf("failed to update order payment status: %w", err)
	}
	return nil
}

func (r *OrderRepository) HealthCheck(ctx context.Context) error {
	return r.client.HealthCheck()
}
