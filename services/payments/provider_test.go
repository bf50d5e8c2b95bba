package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// flakyProvider falha as primeiras N chamadas e depois aprova
type flakyProvider struct {
	failures    int
	chargeCalls int
}

func (p *flakyProvider) Charge(ctx context.Context, payment *Payment) (*ChargeResponse, error) {
	p.chargeCalls++
	if p.chargeCalls <= p.failures {
		return nil, errors.New("connection reset")
	}
	return &ChargeResponse{Success: true, TransactionID: "txn-retry"}, nil
}

func (p *flakyProvider) Refund(ctx context.Context, payment *Payment, amount int64) (*RefundResponse, error) {
	return &RefundResponse{Success: true}, nil
}

func fastConfig() ResilientProviderConfig {
	return ResilientProviderConfig{
		MaxRetries:       3,
		InitialInterval:  1 * time.Millisecond,
		BreakerMinCalls:  2,
		BreakerThreshold: 0.5,
		BreakerCooldown:  50 * time.Millisecond,
	}
}

func TestResilientChargeRetriesTransientFailure(t *testing.T) {
	// Arrange: duas falhas de transporte antes do sucesso
	inner := &flakyProvider{failures: 2}
	provider := NewResilientProvider(inner, fastConfig())
	payment := NewPayment("order-1", "user-1", "idem-1", "USD", 1000)

	// Act
	response, err := provider.Charge(context.Background(), payment)

	// Assert
	assert.NoError(t, err)
	assert.True(t, response.Success)
	assert.Equal(t, "txn-retry", response.TransactionID)
	assert.Equal(t, 3, inner.chargeCalls)
}

func TestResilientChargeDeclineNotRetried(t *testing.T) {
	// Recusa definitiva do provedor não é transitória
	inner := &stubProvider{
		chargeResponse: &ChargeResponse{Success: false, ErrorMessage: "card declined"},
	}
	provider := NewResilientProvider(inner, fastConfig())
	payment := NewPayment("order-1", "user-1", "idem-1", "USD", 1000)

	response, err := provider.Charge(context.Background(), payment)

	assert.NoError(t, err)
	assert.False(t, response.Success)
	assert.Equal(t, "card declined", response.ErrorMessage)
	assert.Equal(t, 1, inner.chargeCalls)
}

func TestResilientChargeFallbackAfterExhaustion(t *testing.T) {
	// Esgotadas as tentativas, a resposta sintética assume
	inner := &stubProvider{chargeErr: errors.New("connection refused")}
	provider := NewResilientProvider(inner, fastConfig())
	payment := NewPayment("order-1", "user-1", "idem-1", "USD", 1000)

	response, err := provider.Charge(context.Background(), payment)

	assert.NoError(t, err)
	assert.False(t, response.Success)
	assert.Contains(t, response.ErrorMessage, "payment provider unavailable")
	assert.Equal(t, 3, inner.chargeCalls)
}

func TestBreakerOpensAndShortCircuits(t *testing.T) {
	// Arrange
	config := fastConfig()
	config.MaxRetries = 1
	inner := &stubProvider{chargeErr: errors.New("connection refused")}
	provider := NewResilientProvider(inner, config)
	payment := NewPayment("order-1", "user-1", "idem-1", "USD", 1000)

	// Act: duas falhas atingem o mínimo de chamadas e abrem o breaker
	provider.Charge(context.Background(), payment)
	provider.Charge(context.Background(), payment)
	callsBeforeOpen := inner.chargeCalls

	response, err := provider.Charge(context.Background(), payment)

	// Assert: breaker aberto curto-circuita sem tocar no provedor
	assert.NoError(t, err)
	assert.False(t, response.Success)
	assert.Contains(t, response.ErrorMessage, "payment provider unavailable")
	assert.Equal(t, callsBeforeOpen, inner.chargeCalls)
}

func TestBreakerRecoversAfterCooldown(t *testing.T) {
	// Arrange: abre o breaker com falhas consecutivas
	config := fastConfig()
	config.MaxRetries = 1
	inner := &flakyProvider{failures: 2}
	provider := NewResilientProvider(inner, config)
	payment := NewPayment("order-1", "user-1", "idem-1", "USD", 1000)

	provider.Charge(context.Background(), payment)
	provider.Charge(context.Background(), payment)

	// Act: após o cooldown, a sonda half-open encontra o provedor saudável
	time.Sleep(config.BreakerCooldown + 10*time.Millisecond)
	response, err := provider.Charge(context.Background(), payment)

	// Assert
	assert.NoError(t, err)
	assert.True(t, response.Success)
}

func TestBreakerIsSharedAcrossOperations(t *testing.T) {
	// Refund e charge compartilham o mesmo breaker por provedor
	config := fastConfig()
	config.MaxRetries = 1
	inner := &stubProvider{
		chargeErr:      errors.New("connection refused"),
		refundResponse: &RefundResponse{Success: true},
	}
	provider := NewResilientProvider(inner, config)
	payment := NewPayment("order-1", "user-1", "idem-1", "USD", 1000)

	provider.Charge(context.Background(), payment)
	provider.Charge(context.Background(), payment)

	response, err := provider.Refund(context.Background(), payment, 500)

	assert.NoError(t, err)
	assert.False(t, response.Success)
	assert.Equal(t, 0, inner.refundCalls)
}
