package order

import (
	"context"
	"strings"
	"time"

	"github.com/01moynul/storefront-api/internal/apperr"
	"github.com/01moynul/storefront-api/internal/models"
	"github.com/01moynul/storefront-api/internal/payment/zarinpal"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Gateway is the payment provider.
type Gateway interface {
	Request(ctx context.Context, req zarinpal.PaymentRequest) (string, error)
	Verify(ctx context.Context, amount int64, authority string) (zarinpal.Verification, error)
	StartPayURL(authority string) string
}

// PaymentConfig holds what the payment service sends along with each request.
type PaymentConfig struct {
	CallbackURL string
	Description string
}

// PaymentService opens gateway payments for orders and settles them when the
// customer comes back through the callback.
type PaymentService struct {
	store   Store
	gateway Gateway
	cfg     PaymentConfig
	log     *zap.Logger
	now     func() time.Time
}

func NewPaymentService(store Store, gateway Gateway, cfg PaymentConfig, log *zap.Logger) *PaymentService {
	return &PaymentService{store: store, gateway: gateway, cfg: cfg, log: log, now: time.Now}
}

// CallbackResult is the outcome of a gateway callback.
type CallbackResult struct {
	Order   *models.Order
	Success bool
	RefID   string
}

// StartPayment opens a payment for an unpaid order and returns the URL the
// customer must be redirected to.
func (s *PaymentService) StartPayment(ctx context.Context, userID, orderID int64) (string, error) {
	o, err := s.store.OrderForUser(ctx, userID, orderID)
	if err != nil {
		return "", apperr.Wrap(err, "failed to load order")
	}
	if o.Status != models.OrderPendingPayment || o.PaymentStatus == models.PaymentPaid {
		return "", apperr.Conflict("order is not awaiting payment")
	}

	amount := gatewayAmount(o.Total)
	if amount <= 0 {
		return "", apperr.Validation("order total must be positive")
	}

	// The payer's mobile lets the gateway prefill its form; it is optional.
	var mobile string
	payer, err := s.store.UserByID(ctx, o.UserID)
	switch {
	case err == nil:
		mobile = payer.Phone
	case !apperr.Is(err, apperr.KindNotFound):
		return "", apperr.Wrap(err, "failed to load customer")
	}

	authority, err := s.gateway.Request(ctx, zarinpal.PaymentRequest{
		Amount:      amount,
		Description: strings.TrimSpace(s.cfg.Description + " " + o.TrackingCode),
		CallbackURL: s.cfg.CallbackURL,
		Mobile:      mobile,
		OrderID:     o.TrackingCode,
	})
	if err != nil {
		s.log.Error("payment request failed", zap.Int64("order_id", o.ID), zap.Error(err))
		return "", apperr.Upstream("payment gateway is unavailable", err)
	}

	if err := s.store.SetPaymentAuthority(ctx, o.ID, authority, s.now()); err != nil {
		return "", apperr.Wrap(err, "failed to save payment")
	}

	s.log.Info("payment started", zap.Int64("order_id", o.ID), zap.String("authority", authority))
	return s.gateway.StartPayURL(authority), nil
}

// HandleCallback settles the payment identified by authority. status is the
// gateway's "Status" query value: "OK" when the customer paid.
// A payment that was already settled is reported as successful again.
func (s *PaymentService) HandleCallback(ctx context.Context, authority, status string) (*CallbackResult, error) {
	if authority == "" {
		return nil, apperr.Validation("missing authority")
	}

	o, err := s.store.OrderByAuthority(ctx, authority)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to load order")
	}
	if o.PaymentStatus == models.PaymentPaid {
		return &CallbackResult{Order: o, Success: true, RefID: deref(o.PaymentRefID)}, nil
	}

	if !strings.EqualFold(status, "OK") {
		if err := s.store.MarkPaymentFailed(ctx, o.ID, s.now()); err != nil {
			return nil, apperr.Wrap(err, "failed to save payment")
		}
		s.log.Info("payment cancelled by customer", zap.Int64("order_id", o.ID))
		o.PaymentStatus = models.PaymentFailed
		return &CallbackResult{Order: o}, nil
	}
	if o.Status != models.OrderPendingPayment {
		return nil, apperr.Conflict("order is no longer awaiting payment")
	}

	v, err := s.gateway.Verify(ctx, gatewayAmount(o.Total), authority)
	if err != nil {
		s.log.Warn("payment verification failed", zap.Int64("order_id", o.ID), zap.Error(err))
		if ferr := s.store.MarkPaymentFailed(ctx, o.ID, s.now()); ferr != nil {
			s.log.Error("failed to mark payment failed", zap.Int64("order_id", o.ID), zap.Error(ferr))
		}
		o.PaymentStatus = models.PaymentFailed
		return &CallbackResult{Order: o}, apperr.Upstream("payment could not be verified", err)
	}

	err = s.store.InTx(ctx, func(tx Tx) error {
		locked, err := tx.OrderForUpdate(ctx, o.ID)
		if err != nil {
			return err
		}
		if locked.PaymentStatus == models.PaymentPaid {
			return nil
		}
		if locked.Status != models.OrderPendingPayment {
			return apperr.Conflict("order is no longer awaiting payment")
		}
		return tx.MarkPaid(ctx, o.ID, v.RefID, s.now())
	})
	if err != nil {
		return nil, apperr.Wrap(err, "failed to save payment")
	}

	s.log.Info("payment verified",
		zap.Int64("order_id", o.ID),
		zap.String("ref_id", v.RefID),
		zap.Bool("already_verified", v.AlreadyVerified()),
	)

	paid, err := s.store.Order(ctx, o.ID)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to load order")
	}
	return &CallbackResult{Order: paid, Success: true, RefID: v.RefID}, nil
}

// gatewayAmount converts an order total to the integer amount the gateway
// expects. Fractions are dropped.
func gatewayAmount(total decimal.Decimal) int64 {
	return total.IntPart()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
