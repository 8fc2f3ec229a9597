package handlers_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cardforge/cardforge-backend/internal/apperrors"
	"github.com/cardforge/cardforge-backend/internal/core/domain"
	"github.com/cardforge/cardforge-backend/internal/core/ports/gateways"
	"github.com/cardforge/cardforge-backend/internal/handlers"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/stripe/stripe-go/v81"
)

const testWebhookSecret = "whsec_test_secret"

// --- Mock GrantApplier ---
type MockGrantApplier struct {
	mock.Mock
}

func (m *MockGrantApplier) ApplyPurchaseGrant(ctx context.Context, facts domain.PurchaseFacts) error {
	args := m.Called(ctx, facts)
	return args.Error(0)
}

// --- Mock PaymentGateway ---
type MockPaymentGateway struct {
	mock.Mock
}

var _ gateways.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) CreateCheckoutSession(ctx context.Context, params gateways.CheckoutSessionParams) (*gateways.CheckoutSession, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateways.CheckoutSession), args.Error(1)
}

func (m *MockPaymentGateway) GetPaymentIntentMetadata(ctx context.Context, paymentIntentID string) (map[string]string, error) {
	args := m.Called(ctx, paymentIntentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

// signPayload produces a Stripe-Signature header value for payload: an HMAC
// SHA-256 of "<timestamp>.<payload>" keyed with the webhook secret.
func signPayload(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func checkoutCompletedPayload() []byte {
	return []byte(`{
		"id": "evt_1",
		"object": "event",
		"api_version": "` + stripe.APIVersion + `",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_1",
				"object": "checkout.session",
				"amount_total": 2500,
				"payment_intent": "pi_123",
				"metadata": {
					"kind": "credits_purchase",
					"user_id": "user-1",
					"credits": "4000",
					"usd": "25"
				}
			}
		}
	}`)
}

// --- Test Suite ---

type WebhookHandlerTestSuite struct {
	suite.Suite
	mockGrants  *MockGrantApplier
	mockGateway *MockPaymentGateway
	router      *gin.Engine
}

func (suite *WebhookHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.mockGrants = new(MockGrantApplier)
	suite.mockGateway = new(MockPaymentGateway)

	h := handlers.NewWebhookHandler(suite.mockGrants, suite.mockGateway, testWebhookSecret)
	suite.router = gin.New()
	suite.router.POST("/webhooks/stripe", h.HandleStripeEvent)
}

func (suite *WebhookHandlerTestSuite) post(payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *WebhookHandlerTestSuite) TestValidEventAppliesGrant() {
	payload := checkoutCompletedPayload()

	suite.mockGrants.On("ApplyPurchaseGrant", mock.Anything, mock.MatchedBy(func(f domain.PurchaseFacts) bool {
		return f.Kind == domain.CheckoutKindCreditsPurchase &&
			f.AccountID == "user-1" &&
			f.Credits == 4000 &&
			f.ReferenceID == "pi_123" &&
			f.AmountUSDCents == 2500
	})).Return(nil).Once()

	w := suite.post(payload, signPayload(payload, testWebhookSecret))

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	suite.mockGrants.AssertExpectations(suite.T())
}

func (suite *WebhookHandlerTestSuite) TestTamperedPayloadRejected() {
	payload := checkoutCompletedPayload()
	signature := signPayload(payload, testWebhookSecret)

	// Attacker inflates the credits after signing.
	tampered := bytes.Replace(payload, []byte(`"credits": "4000"`), []byte(`"credits": "999999"`), 1)

	w := suite.post(tampered, signature)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	suite.mockGrants.AssertNotCalled(suite.T(), "ApplyPurchaseGrant", mock.Anything, mock.Anything)
}

func (suite *WebhookHandlerTestSuite) TestWrongSecretRejected() {
	payload := checkoutCompletedPayload()

	w := suite.post(payload, signPayload(payload, "whsec_wrong"))

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	suite.mockGrants.AssertNotCalled(suite.T(), "ApplyPurchaseGrant", mock.Anything, mock.Anything)
}

func (suite *WebhookHandlerTestSuite) TestMissingSignatureRejected() {
	w := suite.post(checkoutCompletedPayload(), "")

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	suite.mockGrants.AssertNotCalled(suite.T(), "ApplyPurchaseGrant", mock.Anything, mock.Anything)
}

func (suite *WebhookHandlerTestSuite) TestStorageFailureRequestsRetry() {
	payload := checkoutCompletedPayload()

	suite.mockGrants.On("ApplyPurchaseGrant", mock.Anything, mock.Anything).Return(assert.AnError).Once()

	w := suite.post(payload, signPayload(payload, testWebhookSecret))

	assert.Equal(suite.T(), http.StatusInternalServerError, w.Code)
}

func (suite *WebhookHandlerTestSuite) TestBalanceOutOfSyncIsAcked() {
	payload := checkoutCompletedPayload()

	outOfSync := fmt.Errorf("%w: account user-1", apperrors.ErrBalanceOutOfSync)
	suite.mockGrants.On("ApplyPurchaseGrant", mock.Anything, mock.Anything).Return(outOfSync).Once()

	w := suite.post(payload, signPayload(payload, testWebhookSecret))

	// A redelivery would be skipped as a duplicate, so the event is acked and
	// the sweep repairs the balance.
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *WebhookHandlerTestSuite) TestIrrelevantEventAcked() {
	payload := []byte(`{
		"id": "evt_2",
		"object": "event",
		"api_version": "` + stripe.APIVersion + `",
		"type": "payment_intent.succeeded",
		"data": {
			"object": {
				"id": "pi_999",
				"object": "payment_intent",
				"amount": 500,
				"metadata": {"kind": "subscription"}
			}
		}
	}`)

	suite.mockGrants.On("ApplyPurchaseGrant", mock.Anything, mock.MatchedBy(func(f domain.PurchaseFacts) bool {
		return f.Kind == "subscription" && f.ReferenceID == "pi_999"
	})).Return(nil).Once()

	w := suite.post(payload, signPayload(payload, testWebhookSecret))

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	suite.mockGrants.AssertExpectations(suite.T())
}

func (suite *WebhookHandlerTestSuite) TestChargeEventUsesSecondaryLookup() {
	payload := []byte(`{
		"id": "evt_3",
		"object": "event",
		"api_version": "` + stripe.APIVersion + `",
		"type": "charge.succeeded",
		"data": {
			"object": {
				"id": "ch_1",
				"object": "charge",
				"amount": 1000,
				"payment_intent": "pi_777"
			}
		}
	}`)

	suite.mockGateway.On("GetPaymentIntentMetadata", mock.Anything, "pi_777").Return(map[string]string{
		"kind":    "credits_purchase",
		"user_id": "user-2",
		"credits": "1600",
	}, nil).Once()
	suite.mockGrants.On("ApplyPurchaseGrant", mock.Anything, mock.MatchedBy(func(f domain.PurchaseFacts) bool {
		return f.Kind == domain.CheckoutKindCreditsPurchase &&
			f.AccountID == "user-2" &&
			f.Credits == 1600 &&
			f.ReferenceID == "pi_777"
	})).Return(nil).Once()

	w := suite.post(payload, signPayload(payload, testWebhookSecret))

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	suite.mockGateway.AssertExpectations(suite.T())
	suite.mockGrants.AssertExpectations(suite.T())
}

func TestWebhookHandler(t *testing.T) {
	suite.Run(t, new(WebhookHandlerTestSuite))
}
