package orders

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rmarin-dev/shopline-backend/pkg/config"
	"github.com/rmarin-dev/shopline-backend/pkg/db"
	"github.com/rmarin-dev/shopline-backend/pkg/db/models"
	pkgerrors "github.com/rmarin-dev/shopline-backend/pkg/errors"
	"github.com/rmarin-dev/shopline-backend/pkg/mail"
	"github.com/rmarin-dev/shopline-backend/pkg/pagination"
	"github.com/rmarin-dev/shopline-backend/pkg/stripe"
	"github.com/rmarin-dev/shopline-backend/pkg/types"
)

type stubGateway struct {
	created   []decimal.Decimal
	cancelled []string
	intents   map[string]*stripe.PaymentIntent
	createErr error
}

func newStubGateway() *stubGateway {
	return &stubGateway{intents: map[string]*stripe.PaymentIntent{}}
}

func (g *stubGateway) CreatePaymentIntent(_ context.Context, amount decimal.Decimal, _, _ string) (*stripe.PaymentIntent, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created = append(g.created, amount)
	intent := &stripe.PaymentIntent{
		ID:           fmt.Sprintf("pi_%d", len(g.created)),
		ClientSecret: fmt.Sprintf("pi_%d_secret", len(g.created)),
		Status:       "requires_payment_method",
	}
	g.intents[intent.ID] = intent
	return intent, nil
}

func (g *stubGateway) GetPaymentIntent(_ context.Context, id string) (*stripe.PaymentIntent, error) {
	intent, ok := g.intents[id]
	if !ok {
		return nil, fmt.Errorf("no such intent %s", id)
	}
	return intent, nil
}

func (g *stubGateway) CancelPaymentIntent(_ context.Context, id string) error {
	g.cancelled = append(g.cancelled, id)
	return nil
}

// markSucceeded flips a stub intent into the succeeded state, as the
// hosted checkout flow would.
func (g *stubGateway) markSucceeded(id, receiptEmail string) {
	g.intents[id].Status = "succeeded"
	g.intents[id].ReceiptEmail = receiptEmail
}

type stubCartClearer struct {
	cleared []uuid.UUID
}

func (c *stubCartClearer) Clear(_ context.Context, userID uuid.UUID) error {
	c.cleared = append(c.cleared, userID)
	return nil
}

type recorderMailer struct {
	sent []mail.Message
}

func (m *recorderMailer) Send(_ context.Context, msg mail.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

type orderTestEnv struct {
	svc     Service
	conn    *gorm.DB
	gateway *stubGateway
	carts   *stubCartClearer
	mailer  *recorderMailer
}

func buildTestService(t *testing.T) *orderTestEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Category{}, &models.Product{},
		&models.Order{}, &models.OrderItem{}, &models.OrderTrackingEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	env := &orderTestEnv{
		conn:    conn,
		gateway: newStubGateway(),
		carts:   &stubCartClearer{},
		mailer:  &recorderMailer{},
	}
	env.svc, err = NewService(ServiceParams{
		DB:      db.FromGorm(conn),
		Gateway: env.gateway,
		Carts:   env.carts,
		Mailer:  env.mailer,
		Config:  config.OrdersConfig{PaymentTTL: 30 * time.Minute, ExpiryJobInterval: 5 * time.Minute},
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return env
}

func seedProduct(t *testing.T, conn *gorm.DB, name, listPrice string, discountPrice *string, stock int) *models.Product {
	t.Helper()

	category := &models.Category{Name: name + " category", Slug: name + "-category"}
	if err := conn.Create(category).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	product := &models.Product{
		Name:       name,
		Slug:       strings.ToLower(strings.ReplaceAll(name, " ", "-")),
		SKU:        strings.ToUpper(strings.ReplaceAll(name, " ", "-")),
		CategoryID: category.ID,
		ListPrice:  decimal.RequireFromString(listPrice),
		Stock:      stock,
		IsActive:   true,
	}
	if discountPrice != nil {
		d := decimal.RequireFromString(*discountPrice)
		product.DiscountPrice = &d
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func testAddress() types.Address {
	return types.Address{
		FullName:   "Avery Quinn",
		Line1:      "12 Harbor Way",
		City:       "Portland",
		State:      "OR",
		PostalCode: "97209",
		Country:    "US",
	}
}

func stockOf(t *testing.T, conn *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := conn.First(&product, "id = ?", id).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return product.Stock
}

func wantAmount(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("%s = %s, want %s", name, got, want)
	}
}

func TestCreateCODOrderReservesStock(t *testing.T) {
	env := buildTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	discount := "20"
	product := seedProduct(t, env.conn, "Desk Lamp", "25", &discount, 5)

	out, err := env.svc.Create(ctx, userID, CreateOrderRequest{
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 2}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "cod",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	order := out.Order
	if !strings.HasPrefix(order.Reference, "ORD-") {
		t.Fatalf("reference = %q", order.Reference)
	}
	if order.Status != "pending" || order.PaymentStatus != "pending" {
		t.Fatalf("status = %s/%s, want pending/pending", order.Status, order.PaymentStatus)
	}
	wantAmount(t, "subtotal", order.Subtotal, "50")
	wantAmount(t, "grand total", order.GrandTotal, "40")
	if out.ClientSecret != "" {
		t.Fatalf("cod order should not carry a client secret")
	}
	if order.PaymentDueAt != nil {
		t.Fatalf("cod order should not have a payment deadline")
	}
	if len(order.TrackingEvents) != 1 || order.TrackingEvents[0].Status != "pending" {
		t.Fatalf("tracking events = %+v", order.TrackingEvents)
	}
	if got := stockOf(t, env.conn, product.ID); got != 3 {
		t.Fatalf("stock = %d, want 3", got)
	}
	if len(env.carts.cleared) != 1 || env.carts.cleared[0] != userID {
		t.Fatalf("cart was not cleared for %s", userID)
	}
	if len(env.gateway.created) != 0 {
		t.Fatalf("cod order should not touch the gateway")
	}
}

func TestCreateCardOrderOpensPaymentIntent(t *testing.T) {
	env := buildTestService(t)
	ctx := context.Background()

	product := seedProduct(t, env.conn, "Standing Desk", "299.99", nil, 4)

	out, err := env.svc.Create(ctx, uuid.New(), CreateOrderRequest{
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if out.ClientSecret == "" {
		t.Fatalf("card order must return the intent client secret")
	}
	if out.Order.PaymentIntentID == nil {
		t.Fatalf("card order must store the intent id")
	}
	if out.Order.PaymentDueAt == nil {
		t.Fatalf("card order must carry a payment deadline")
	}
	wantAmount(t, "intent amount", env.gateway.created[0], "299.99")
}

func TestCreateRejectsUnknownProductAndRollsBack(t *testing.T) {
	env := buildTestService(t)
	ctx := context.Background()

	product := seedProduct(t, env.conn, "Notebook", "5", nil, 10)

	_, err := env.svc.Create(ctx, uuid.New(), CreateOrderRequest{
		Items: []ItemInput{
			{ProductID: product.ID, Quantity: 3},
			{ProductID: uuid.New(), Quantity: 1},
		},
		ShippingAddress: testAddress(),
		PaymentMethod:   "cod",
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	// the whole transaction rolled back, including the first line's reservation
	if got := stockOf(t, env.conn, product.ID); got != 10 {
		t.Fatalf("stock = %d, want 10", got)
	}
	var count int64
	env.conn.Model(&models.Order{}).Count(&count)
	if count != 0 {
		t.Fatalf("order rows = %d, want 0", count)
	}
}

func TestCreateInsufficientStockAbortsOrder(t *testing.T) {
	env := buildTestService(t)
	ctx := context.Background()

	product := seedProduct(t, env.conn, "Webcam", "60", nil, 1)

	_, err := env.svc.Create(ctx, uuid.New(), CreateOrderRequest{
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 2}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "cod",
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if got := stockOf(t, env.conn, product.ID); got != 1 {
		t.Fatalf("stock = %d, want 1", got)
	}
	if len(env.carts.cleared) != 0 {
		t.Fatalf("failed checkout must not clear the cart")
	}
}

func TestCreateGatewayFailureRestoresStock(t *testing.T) {
	env := buildTestService(t)
	ctx := context.Background()
	env.gateway.createErr = fmt.Errorf("card network unavailable")

	product := seedProduct(t, env.conn, "Monitor Arm", "80", nil, 2)

	_, err := env.svc.Create(ctx, uuid.New(), CreateOrderRequest{
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodePaymentFailed {
		t.Fatalf("expected payment failure, got %v", err)
	}
	if got := stockOf(t, env.conn, product.ID); got != 2 {
		t.Fatalf("stock = %d, want 2", got)
	}
}

func TestCreateWithCoupon(t *testing.T) {
	env := buildTestService(t)
	ctx := context.Background()

	product := seedProduct(t, env.conn, "Coffee Beans", "18", nil, 20)

	out, err := env.svc.Create(ctx, uuid.New(), CreateOrderRequest{
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 5}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "cod",
		Coupon: &CouponInput{
			Code:     "SAVE10",
			Type:     "percentage",
			Discount: decimal.RequireFromString("10"),
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	wantAmount(t, "subtotal", out.Order.Subtotal, "90")
	wantAmount(t, "coupon savings", out.Order.CouponSavings, "9")
	wantAmount(t, "grand total", out.Order.GrandTotal, "81")
	if out.Order.CouponCode == nil || *out.Order.CouponCode != "SAVE10" {
		t.Fatalf("coupon code not recorded")
	}

	_, err = env.svc.Create(ctx, uuid.New(), CreateOrderRequest{
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "cod",
		Coupon: &CouponInput{
			Code:     "MEGA",
			Type:     "percentage",
			Discount: decimal.RequireFromString("150"),
		},
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for oversized percentage, got %v", err)
	}
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	env := buildTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	product := seedProduct(t, env.conn, "Keyboard", "120", nil, 6)
	out, err := env.svc.Create(ctx, userID, CreateOrderRequest{
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	intentID := *out.Order.PaymentIntentID
	env.gateway.markSucceeded(intentID, "buyer@example.com")

	confirmed, err := env.svc.ConfirmPayment(ctx, ConfirmPaymentRequest{
		PaymentIntentID: intentID,
		OrderID:         out.Order.ID,
		UserID:          userID,
	})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.PaymentStatus != "paid" || confirmed.Status != "processing" {
		t.Fatalf("status = %s/%s, want processing/paid", confirmed.Status, confirmed.PaymentStatus)
	}
	if confirmed.PaidAt == nil {
		t.Fatalf("paid timestamp missing")
	}
	if confirmed.PayerEmail == nil || *confirmed.PayerEmail != "buyer@example.com" {
		t.Fatalf("payer email not captured")
	}
	if len(confirmed.TrackingEvents) != 2 {
		t.Fatalf("tracking events = %d, want 2", len(confirmed.TrackingEvents))
	}
	if len(env.mailer.sent) != 1 || env.mailer.sent[0].To != "buyer@example.com" {
		t.Fatalf("confirmation mail not sent")
	}
	// stock was reserved at creation; confirming must not touch it again
	if got := stockOf(t, env.conn, product.ID); got != 5 {
		t.Fatalf("stock = %d, want 5", got)
	}

	again, err := env.svc.ConfirmPayment(ctx, ConfirmPaymentRequest{
		PaymentIntentID: intentID,
		OrderID:         out.Order.ID,
		UserID:          userID,
	})
	if err != nil {
		t.Fatalf("second confirm: %v", err)
	}
	if len(again.TrackingEvents) != 2 {
		t.Fatalf("second confirm appended tracking events")
	}
	if got := stockOf(t, env.conn, product.ID); got != 5 {
		t.Fatalf("stock = %d after second confirm, want 5", got)
	}
	if len(env.mailer.sent) != 1 {
		t.Fatalf("second confirm re-sent the confirmation mail")
	}
}

func TestConfirmPaymentRejectsMismatchedIntent(t *testing.T) {
	env := buildTestService(t)
	ctx := context.Background()

	product := seedProduct(t, env.conn, "Mouse", "35", nil, 3)
	userID := uuid.New()
	out, err := env.svc.Create(ctx, userID, CreateOrderRequest{
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	stray := &stripe.PaymentIntent{ID: "pi_other", Status: "succeeded"}
	env.gateway.intents[stray.ID] = stray

	_, err = env.svc.ConfirmPayment(ctx, ConfirmPaymentRequest{
		PaymentIntentID: stray.ID,
		OrderID:         out.Order.ID,
		UserID:          userID,
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConfirmPaymentRejectsForeignUser(t *testing.T) {
	env := buildTestService(t)
	ctx := context.Background()
	ownerID := uuid.New()

	product := seedProduct(t, env.conn, "Monitor Arm", "89", nil, 3)
	out, err := env.svc.Create(ctx, ownerID, CreateOrderRequest{
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	intentID := *out.Order.PaymentIntentID
	env.gateway.markSucceeded(intentID, "owner@example.com")

	_, err = env.svc.ConfirmPayment(ctx, ConfirmPaymentRequest{
		PaymentIntentID: intentID,
		OrderID:         out.Order.ID,
		UserID:          uuid.New(),
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}

	// the rejected call must leave the order untouched
	order, err := env.svc.GetByID(ctx, out.Order.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if order.PaymentStatus != "pending" {
		t.Fatalf("payment status = %s, want pending", order.PaymentStatus)
	}
	if len(env.mailer.sent) != 0 {
		t.Fatalf("rejected confirm sent mail")
	}

	// admins may confirm on a customer's behalf
	confirmed, err := env.svc.ConfirmPayment(ctx, ConfirmPaymentRequest{
		PaymentIntentID: intentID,
		OrderID:         out.Order.ID,
		UserID:          uuid.New(),
		Admin:           true,
	})
	if err != nil {
		t.Fatalf("admin confirm: %v", err)
	}
	if confirmed.PaymentStatus != "paid" {
		t.Fatalf("payment status = %s, want paid", confirmed.PaymentStatus)
	}
}

func TestConfirmPaymentAfterFailedAttempt(t *testing.T) {
	env := buildTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	product := seedProduct(t, env.conn, "Webcam", "65", nil, 4)
	out, err := env.svc.Create(ctx, userID, CreateOrderRequest{
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	intentID := *out.Order.PaymentIntentID

	// first attempt declines, the retry goes through
	if err := env.svc.MarkPaymentFailed(ctx, intentID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	env.gateway.markSucceeded(intentID, "retry@example.com")

	confirmed, err := env.svc.ConfirmPayment(ctx, ConfirmPaymentRequest{
		PaymentIntentID: intentID,
		OrderID:         out.Order.ID,
		UserID:          userID,
	})
	if err != nil {
		t.Fatalf("confirm after failed attempt: %v", err)
	}
	if confirmed.PaymentStatus != "paid" || confirmed.Status != "processing" {
		t.Fatalf("status = %s/%s, want processing/paid", confirmed.Status, confirmed.PaymentStatus)
	}
	if len(env.mailer.sent) != 1 {
		t.Fatalf("confirmation mail not sent")
	}
}

func TestMarkPaymentSucceededViaWebhook(t *testing.T) {
	env := buildTestService(t)
	ctx := context.Background()

	product := seedProduct(t, env.conn, "Headphones", "150", nil, 2)
	out, err := env.svc.Create(ctx, uuid.New(), CreateOrderRequest{
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	intentID := *out.Order.PaymentIntentID

	if err := env.svc.MarkPaymentSucceeded(ctx, intentID, "hook@example.com"); err != nil {
		t.Fatalf("mark succeeded: %v", err)
	}
	order, err := env.svc.GetByID(ctx, out.Order.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if order.PaymentStatus != "paid" {
		t.Fatalf("payment status = %s, want paid", order.PaymentStatus)
	}

	// replayed delivery must be a no-op
	if err := env.svc.MarkPaymentSucceeded(ctx, intentID, "hook@example.com"); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(env.mailer.sent) != 1 {
		t.Fatalf("replayed webhook re-sent mail")
	}
}

func TestMarkPaymentFailed(t *testing.T) {
	env := buildTestService(t)
	ctx := context.Background()

	product := seedProduct(t, env.conn, "USB Cable", "9", nil, 10)
	out, err := env.svc.Create(ctx, uuid.New(), CreateOrderRequest{
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := env.svc.MarkPaymentFailed(ctx, *out.Order.PaymentIntentID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	order, err := env.svc.GetByID(ctx, out.Order.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if order.PaymentStatus != "failed" {
		t.Fatalf("payment status = %s, want failed", order.PaymentStatus)
	}
	// stock stays reserved until the expiry job decides
	if got := stockOf(t, env.conn, product.ID); got != 9 {
		t.Fatalf("stock = %d, want 9", got)
	}
}

func TestUpdateStatusRecordsTimeline(t *testing.T) {
	env := buildTestService(t)
	ctx := context.Background()
	adminID := uuid.New()

	product := seedProduct(t, env.conn, "Planter", "14", nil, 5)
	out, err := env.svc.Create(ctx, uuid.New(), CreateOrderRequest{
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "cod",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	shipped := "shipped"
	location := "Left regional facility"
	eta := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Second)
	order, err := env.svc.UpdateStatus(ctx, out.Order.ID, adminID, UpdateStatusRequest{
		Status:            &shipped,
		Location:          &location,
		EstimatedDelivery: &eta,
	})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if order.Status != "shipped" {
		t.Fatalf("status = %s, want shipped", order.Status)
	}
	if order.EstimatedDelivery == nil || !order.EstimatedDelivery.Equal(eta) {
		t.Fatalf("estimated delivery not stored")
	}
	last := order.TrackingEvents[len(order.TrackingEvents)-1]
	if last.Status != "shipped" || last.Location == nil || *last.Location != location {
		t.Fatalf("tracking event = %+v", last)
	}

	delivered := "delivered"
	order, err = env.svc.UpdateStatus(ctx, out.Order.ID, adminID, UpdateStatusRequest{Status: &delivered})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if order.DeliveredAt == nil {
		t.Fatalf("delivered timestamp missing")
	}

	bogus := "teleported"
	if _, err := env.svc.UpdateStatus(ctx, out.Order.ID, adminID, UpdateStatusRequest{Status: &bogus}); pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTrackByReference(t *testing.T) {
	env := buildTestService(t)
	ctx := context.Background()

	product := seedProduct(t, env.conn, "Throw Blanket", "42", nil, 3)
	out, err := env.svc.Create(ctx, uuid.New(), CreateOrderRequest{
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "cod",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	tracking, err := env.svc.Track(ctx, out.Order.Reference)
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if tracking.Reference != out.Order.Reference || tracking.Status != "pending" {
		t.Fatalf("tracking = %+v", tracking)
	}
	if len(tracking.TrackingEvents) != 1 {
		t.Fatalf("tracking events = %d, want 1", len(tracking.TrackingEvents))
	}

	if _, err := env.svc.Track(ctx, "ORD-000000-NOPE"); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListByUserOnlyReturnsOwnOrders(t *testing.T) {
	env := buildTestService(t)
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	product := seedProduct(t, env.conn, "Puzzle", "19", nil, 10)
	for _, userID := range []uuid.UUID{alice, alice, bob} {
		if _, err := env.svc.Create(ctx, userID, CreateOrderRequest{
			Items:           []ItemInput{{ProductID: product.ID, Quantity: 1}},
			ShippingAddress: testAddress(),
			PaymentMethod:   "cod",
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	mine, err := env.svc.ListByUser(ctx, alice, pagination.Params{})
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(mine.Items) != 2 || mine.Meta.Total != 2 {
		t.Fatalf("alice orders = %d (total %d), want 2", len(mine.Items), mine.Meta.Total)
	}

	all, err := env.svc.ListAll(ctx, pagination.Params{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if all.Meta.Total != 3 {
		t.Fatalf("all orders = %d, want 3", all.Meta.Total)
	}
}

func TestExpirePendingPaymentsRestoresStock(t *testing.T) {
	env := buildTestService(t)
	ctx := context.Background()

	product := seedProduct(t, env.conn, "Backpack", "75", nil, 4)
	out, err := env.svc.Create(ctx, uuid.New(), CreateOrderRequest{
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 2}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := stockOf(t, env.conn, product.ID); got != 2 {
		t.Fatalf("stock = %d after create, want 2", got)
	}

	// before the deadline nothing expires
	expired, err := env.svc.ExpirePendingPayments(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if expired != 0 {
		t.Fatalf("expired %d orders before deadline", expired)
	}

	expired, err = env.svc.ExpirePendingPayments(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expired = %d, want 1", expired)
	}

	order, err := env.svc.GetByID(ctx, out.Order.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if order.PaymentStatus != "expired" || order.Status != "cancelled" {
		t.Fatalf("status = %s/%s, want cancelled/expired", order.Status, order.PaymentStatus)
	}
	if order.CancelledAt == nil {
		t.Fatalf("cancelled timestamp missing")
	}
	if got := stockOf(t, env.conn, product.ID); got != 4 {
		t.Fatalf("stock = %d after expiry, want 4", got)
	}
	if len(env.gateway.cancelled) != 1 || env.gateway.cancelled[0] != *out.Order.PaymentIntentID {
		t.Fatalf("intent was not voided")
	}

	// a second sweep finds nothing left to do
	expired, err = env.svc.ExpirePendingPayments(ctx, time.Now().UTC().Add(2*time.Hour))
	if err != nil {
		t.Fatalf("second expire: %v", err)
	}
	if expired != 0 {
		t.Fatalf("second sweep expired %d orders", expired)
	}
	if got := stockOf(t, env.conn, product.ID); got != 4 {
		t.Fatalf("stock = %d after second sweep, want 4", got)
	}
}

func TestExpirePendingPaymentsSweepsFailedOrders(t *testing.T) {
	env := buildTestService(t)
	ctx := context.Background()

	product := seedProduct(t, env.conn, "Tripod", "49", nil, 5)
	out, err := env.svc.Create(ctx, uuid.New(), CreateOrderRequest{
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 2}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	intentID := *out.Order.PaymentIntentID

	if err := env.svc.MarkPaymentFailed(ctx, intentID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if got := stockOf(t, env.conn, product.ID); got != 3 {
		t.Fatalf("stock = %d after failed payment, want 3", got)
	}

	expired, err := env.svc.ExpirePendingPayments(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expired = %d, want 1", expired)
	}

	order, err := env.svc.GetByID(ctx, out.Order.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if order.PaymentStatus != "expired" || order.Status != "cancelled" {
		t.Fatalf("status = %s/%s, want cancelled/expired", order.Status, order.PaymentStatus)
	}
	if got := stockOf(t, env.conn, product.ID); got != 5 {
		t.Fatalf("stock = %d after expiry, want 5", got)
	}
	if len(env.gateway.cancelled) != 1 || env.gateway.cancelled[0] != intentID {
		t.Fatalf("intent was not voided")
	}
}

func TestDeleteOrder(t *testing.T) {
	env := buildTestService(t)
	ctx := context.Background()

	product := seedProduct(t, env.conn, "Candle", "11", nil, 8)
	out, err := env.svc.Create(ctx, uuid.New(), CreateOrderRequest{
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "cod",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := env.svc.Delete(ctx, out.Order.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.svc.GetByID(ctx, out.Order.ID); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := env.svc.Delete(ctx, out.Order.ID); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found on repeat delete, got %v", err)
	}
}
