package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
)

// ChargeResponse é a resposta do provedor para uma cobrança
type ChargeResponse struct {
	Success       bool      `json:"success"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Response      string    `json:"response,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// RefundResponse é a resposta do provedor para um reembolso
type RefundResponse struct {
	Success      bool      `json:"success"`
	RefundID     string    `json:"refund_id,omitempty"`
	Response     string    `json:"response,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// PaymentProvider abstrai o processador de pagamentos externo.
// Um retorno com Success=false é uma recusa definitiva do provedor;
// um erro é uma falha de transporte (timeout, indisponibilidade).
type PaymentProvider interface {
	Charge(ctx context.Context, payment *Payment) (*ChargeResponse, error)
	Refund(ctx context.Context, payment *Payment, amount int64) (*RefundResponse, error)
}

// RestPaymentProvider chama o provedor externo via HTTP
type RestPaymentProvider struct {
	client *resty.Client
}

// NewRestPaymentProvider cria uma nova instância de RestPaymentProvider
func NewRestPaymentProvider(baseURL string, timeout time.Duration) *RestPaymentProvider {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)

	return &RestPaymentProvider{client: client}
}

type providerChargeRequest struct {
	PaymentID string `json:"payment_id"`
	OrderID   string `json:"order_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

type providerRefundRequest struct {
	PaymentID     string `json:"payment_id"`
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
}

// Charge envia a cobrança ao provedor externo
func (p *RestPaymentProvider) Charge(ctx context.Context, payment *Payment) (*ChargeResponse, error) {
	var response ChargeResponse

	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(providerChargeRequest{
			PaymentID: payment.PaymentID,
			OrderID:   payment.OrderID,
			Amount:    payment.Amount,
			Currency:  payment.Currency,
		}).
		SetResult(&response).
		Post("/v1/charges")
	if err != nil {
		return nil, fmt.Errorf("provider charge call failed: %w", err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("provider charge returned status %d", resp.StatusCode())
	}

	return &response, nil
}

// Refund envia o reembolso ao provedor externo
func (p *RestPaymentProvider) Refund(ctx context.Context, payment *Payment, amount int64) (*RefundResponse, error) {
	var response RefundResponse

	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(providerRefundRequest{
			PaymentID:     payment.PaymentID,
			TransactionID: payment.ProviderTransactionID,
			Amount:        amount,
		}).
		SetResult(&response).
		Post("/v1/refunds")
	if err != nil {
		return nil, fmt.Errorf("provider refund call failed: %w", err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("provider refund returned status %d", resp.StatusCode())
	}

	return &response, nil
}

// ResilientProviderConfig parametriza retry e circuit breaker do gateway
type ResilientProviderConfig struct {
	MaxRetries       uint
	InitialInterval  time.Duration
	BreakerMinCalls  uint32
	BreakerThreshold float64
	BreakerCooldown  time.Duration
}

// DefaultResilientProviderConfig retorna a configuração padrão do gateway
func DefaultResilientProviderConfig() ResilientProviderConfig {
	return ResilientProviderConfig{
		MaxRetries:       3,
		InitialInterval:  100 * time.Millisecond,
		BreakerMinCalls:  5,
		BreakerThreshold: 0.6,
		BreakerCooldown:  30 * time.Second,
	}
}

// ResilientProvider decora um PaymentProvider com retry exponencial e um
// circuit breaker compartilhado por provedor. Com o breaker aberto, a
// chamada curto-circuita para uma resposta sintética de falha sem tocar
// no provedor.
type ResilientProvider struct {
	provider PaymentProvider
	breaker  *gobreaker.CircuitBreaker[any]
	config   ResilientProviderConfig
}

// NewResilientProvider cria uma nova instância de ResilientProvider
func NewResilientProvider(provider PaymentProvider, config ResilientProviderConfig) *ResilientProvider {
	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "payment-provider",
		MaxRequests: 1,
		Timeout:     config.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.BreakerMinCalls {
				return false
			}
			failureRate := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRate >= config.BreakerThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("⚡ Circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	return &ResilientProvider{
		provider: provider,
		breaker:  breaker,
		config:   config,
	}
}

// Charge executa a cobrança dentro do breaker, com retry para falhas
// transitórias. Nunca retorna erro: esgotadas as tentativas (ou com o
// breaker aberto), devolve a resposta de fallback.
func (r *ResilientProvider) Charge(ctx context.Context, payment *Payment) (*ChargeResponse, error) {
	result, err := r.breaker.Execute(func() (any, error) {
		return r.retryCharge(ctx, payment)
	})
	if err != nil {
		log.Printf("❌ Provider charge fallback triggered for payment %s: %v", payment.PaymentID, err)
		return &ChargeResponse{
			Success:      false,
			ErrorMessage: fmt.Sprintf("payment provider unavailable: %v", err),
			Timestamp:    time.Now(),
		}, nil
	}

	return result.(*ChargeResponse), nil
}

// Refund executa o reembolso com a mesma disciplina de resiliência da cobrança
func (r *ResilientProvider) Refund(ctx context.Context, payment *Payment, amount int64) (*RefundResponse, error) {
	result, err := r.breaker.Execute(func() (any, error) {
		return r.retryRefund(ctx, payment, amount)
	})
	if err != nil {
		log.Printf("❌ Provider refund fallback triggered for payment %s: %v", payment.PaymentID, err)
		return &RefundResponse{
			Success:      false,
			ErrorMessage: fmt.Sprintf("payment provider unavailable: %v", err),
			Timestamp:    time.Now(),
		}, nil
	}

	return result.(*RefundResponse), nil
}

func (r *ResilientProvider) retryCharge(ctx context.Context, payment *Payment) (*ChargeResponse, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.config.InitialInterval

	return backoff.Retry(ctx, func() (*ChargeResponse, error) {
		response, err := r.provider.Charge(ctx, payment)
		if err != nil {
			log.Printf("⏳ Retrying provider charge for payment %s: %v", payment.PaymentID, err)
			return nil, err
		}
		// Recusa definitiva do provedor não é transitória: não retenta
		return response, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(r.config.MaxRetries))
}

func (r *ResilientProvider) retryRefund(ctx context.Context, payment *Payment, amount int64) (*RefundResponse, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.config.InitialInterval

	return backoff.Retry(ctx, func() (*RefundResponse, error) {
		response, err := r.provider.Refund(ctx, payment, amount)
		if err != nil {
			log.Printf("⏳ Retrying provider refund for payment %s: %v", payment.PaymentID, err)
			return nil, err
		}
		return response, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(r.config.MaxRetries))
}
