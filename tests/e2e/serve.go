package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/zucropay/zucropay/internal/gateway"
	"github.com/zucropay/zucropay/internal/handlers"
	"github.com/zucropay/zucropay/internal/logger"
	"github.com/zucropay/zucropay/internal/repository"
	"github.com/zucropay/zucropay/internal/repository/postgres"
	"github.com/zucropay/zucropay/internal/service/account"
	"github.com/zucropay/zucropay/internal/service/apikey"
	"github.com/zucropay/zucropay/internal/service/auth"
	"github.com/zucropay/zucropay/internal/service/checkout"
	"github.com/zucropay/zucropay/internal/service/payment"
	"github.com/zucropay/zucropay/internal/service/reconciler"
	"github.com/zucropay/zucropay/internal/testutil"
)

const (
	SecretKey      = "test-secret"
	PlatformAPIKey = "platform-sandbox-key"
	PublicBaseURL  = "http://localhost:8000"
)

type Services struct {
	Storage repository.Storage
	APIKeys *apikey.Service
	Gateway *FakeGateway
}

// FakeGateway is an httptest stand-in for the payment processor. It
// mints sequential ids and remembers the last ones it handed out so a
// flow test can address webhook events to them.
type FakeGateway struct {
	srv *httptest.Server

	mu             sync.Mutex
	seq            int
	lastPaymentID  string
	lastTransferID string
}

func StartFakeGateway(t *testing.T) *FakeGateway {
	t.Helper()

	g := &FakeGateway{}

	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(v)
		require.NoError(t, err, "fake gateway failed to encode response")
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /customers", func(w http.ResponseWriter, r *http.Request) {
		var req gateway.CreateCustomerRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req), "fake gateway failed to decode customer request")

		g.mu.Lock()
		g.seq++
		id := fmt.Sprintf("cus_e2e_%03d", g.seq)
		g.mu.Unlock()

		writeJSON(w, gateway.Customer{ID: id, Name: req.Name, Email: req.Email})
	})

	mux.HandleFunc("POST /payments", func(w http.ResponseWriter, r *http.Request) {
		var req gateway.CreatePaymentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req), "fake gateway failed to decode payment request")

		g.mu.Lock()
		g.seq++
		id := fmt.Sprintf("pay_e2e_%03d", g.seq)
		g.lastPaymentID = id
		g.mu.Unlock()

		writeJSON(w, gateway.Payment{
			ID:          id,
			Status:      "PENDING",
			Value:       req.Value,
			BillingType: req.BillingType,
			InvoiceURL:  "https://sandbox.gateway.test/i/" + id,
		})
	})

	mux.HandleFunc("GET /payments/{id}/pixQrCode", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		writeJSON(w, gateway.PixQRCode{
			EncodedImage: "aVZCT1J3MEtHZ29BQUFBTlNVaEVVZ0FB",
			Payload:      "00020126580014br.gov.bcb.pix-" + id,
		})
	})

	mux.HandleFunc("POST /transfers", func(w http.ResponseWriter, r *http.Request) {
		var req gateway.CreateTransferRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req), "fake gateway failed to decode transfer request")

		g.mu.Lock()
		g.seq++
		id := fmt.Sprintf("tra_e2e_%03d", g.seq)
		g.lastTransferID = id
		g.mu.Unlock()

		writeJSON(w, gateway.Transfer{ID: id, Status: "PENDING", Value: req.Value})
	})

	g.srv = httptest.NewServer(mux)
	t.Cleanup(g.srv.Close)

	return g
}

func (g *FakeGateway) URL() string { return g.srv.URL }

func (g *FakeGateway) LastPaymentID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastPaymentID
}

func (g *FakeGateway) LastTransferID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastTransferID
}

// IssueToken mints a bearer token the test server accepts
func IssueToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()

	token, err := auth.IssueToken(SecretKey, userID, time.Hour)
	require.NoError(t, err, "failed to issue bearer token")
	return token
}

// Create db transaction and run the full router over that connection.
// The created transaction is passed to the inner function, so state set
// up through it is visible to the server and rolled back at test end.
func ServeInTx(dbpool *pgxpool.Pool, t *testing.T, fn func(tx pgx.Tx, srvURL string, s Services)) {
	testutil.InTx(dbpool, t, func(tx pgx.Tx) {
		l := logger.NewNoOpLogger()
		storage := postgres.NewStorage(tx)

		gw := StartFakeGateway(t)
		gwClient := gateway.NewClient(gw.URL(), l)

		verifier, err := auth.NewTokenVerifier(SecretKey, storage.User())
		require.NoError(t, err, "token verifier should be created without errors")

		keys := apikey.NewService(storage.APIKey(), l)

		router := handlers.NewRouter(handlers.RouterDeps{
			Reconciler:      reconciler.NewService(storage, l),
			CheckoutService: checkout.NewService(storage, gwClient, PlatformAPIKey, l),
			PaymentService:  payment.NewService(storage, PublicBaseURL, l),
			AccountService:  account.NewService(storage, gwClient, PlatformAPIKey, l),
			GatewayProxy:    gwClient,
			TokenVerifier:   verifier,
			APIKeys:         keys,
			PlatformAPIKey:  PlatformAPIKey,
			Logger:          l,
		})

		srv := httptest.NewServer(router)
		defer srv.Close()

		fn(tx, srv.URL, Services{
			Storage: storage,
			APIKeys: keys,
			Gateway: gw,
		})
	})
}
