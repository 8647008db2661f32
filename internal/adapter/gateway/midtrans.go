package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"academy-commerce/config"
	"academy-commerce/internal/core/domain"
	"academy-commerce/internal/core/ports"
	"academy-commerce/pkg/apperror"

	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/rs/zerolog"
)

const (
	itemNameMax   = 50
	customerFName = 255
)

// snapAPI is the part of *snap.Client used here.
type snapAPI interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
}

// statusAPI is the part of *coreapi.Client used here.
type statusAPI interface {
	CheckTransaction(orderID string) (*coreapi.TransactionStatusResponse, *midtrans.Error)
}

// Midtrans implements ports.PaymentGateway with Snap for hosted checkout and
// the Core API for status polling.
type Midtrans struct {
	snap   snapAPI
	status statusAPI
	log    zerolog.Logger
}

// NewMidtrans builds Snap and Core API clients for the configured environment.
func NewMidtrans(cfg config.MidtransConfig, log zerolog.Logger) *Midtrans {
	env := midtrans.Sandbox
	if cfg.Production {
		env = midtrans.Production
	}
	if cfg.Timeout > 0 {
		midtrans.DefaultGoHttpClient = &http.Client{Timeout: cfg.Timeout}
	}

	var snapClient snap.Client
	snapClient.New(cfg.ServerKey, env)
	var coreClient coreapi.Client
	coreClient.New(cfg.ServerKey, env)

	log.Info().Bool("production", cfg.Production).Msg("Midtrans gateway configured")

	return &Midtrans{snap: &snapClient, status: &coreClient, log: log}
}

// CreateSession opens a Snap session for the order and returns its token.
func (m *Midtrans) CreateSession(ctx context.Context, req ports.SessionRequest) (*ports.GatewaySession, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperror.ErrGatewayUnavailable(err)
	}

	snapReq, err := BuildSnapRequest(req)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}

	resp, mErr := m.snap.CreateTransaction(snapReq)
	if mErr != nil {
		m.log.Error().Err(mErr).Str("order_id", req.OrderID).Int("status", mErr.StatusCode).Msg("snap create transaction failed")
		return nil, apperror.ErrGatewayUnavailable(mErr)
	}
	if resp == nil || resp.Token == "" {
		return nil, apperror.ErrGatewayUnavailable(errors.New("snap returned no token"))
	}

	return &ports.GatewaySession{Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

// CheckStatus asks the Core API for the current state of an order.
func (m *Midtrans) CheckStatus(ctx context.Context, orderID string) (*domain.PaymentNotification, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperror.ErrGatewayUnavailable(err)
	}

	resp, mErr := m.status.CheckTransaction(orderID)
	if mErr != nil {
		if mErr.StatusCode == http.StatusNotFound {
			return nil, apperror.ErrTransactionNotFound()
		}
		return nil, apperror.ErrGatewayUnavailable(mErr)
	}
	if resp == nil {
		return nil, apperror.ErrGatewayUnavailable(errors.New("empty status response"))
	}

	return NotificationFromStatus(resp)
}

// BuildSnapRequest maps a checkout onto a Snap request. IDR carries no minor
// units so the amount is rounded to a whole number.
func BuildSnapRequest(req ports.SessionRequest) (*snap.Request, error) {
	if req.OrderID == "" {
		return nil, errors.New("order id is required")
	}
	gross := req.Amount.Round(0).IntPart()
	if gross <= 0 {
		return nil, fmt.Errorf("invalid gross amount %s", req.Amount.String())
	}

	return &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: gross,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: truncate(req.Customer.Name, customerFName),
			Email: req.Customer.Email,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:       req.Product.ID,
				Price:    gross,
				Qty:      1,
				Name:     truncate(req.Product.Title, itemNameMax),
				Category: string(req.Product.Family),
			},
		},
	}, nil
}

// NotificationFromStatus converts a Core API status response into the same
// shape the webhook receives, so both paths share one reconciler.
func NotificationFromStatus(resp *coreapi.TransactionStatusResponse) (*domain.PaymentNotification, error) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal status response: %w", err)
	}
	return &domain.PaymentNotification{
		OrderID:           resp.OrderID,
		StatusCode:        resp.StatusCode,
		GrossAmount:       resp.GrossAmount,
		SignatureKey:      resp.SignatureKey,
		TransactionStatus: resp.TransactionStatus,
		PaymentType:       resp.PaymentType,
		FraudStatus:       resp.FraudStatus,
		Raw:               raw,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
