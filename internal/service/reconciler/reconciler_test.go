package reconciler

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/zucropay/zucropay/internal/logger"
	"github.com/zucropay/zucropay/internal/models"
	"github.com/zucropay/zucropay/internal/repository"
	"github.com/zucropay/zucropay/internal/repository/postgres"
	"github.com/zucropay/zucropay/internal/testutil"
)

func TestReconciler(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Helper to run reconciler against a merchant inside a rolled back tx
	withTx := func(t *testing.T, fn func(s *Service, storage repository.Storage, merchant models.User)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			service := NewService(storage, logger.NewNoOpLogger())

			merchant, err := storage.User().CreateUser(t.Context(), repository.CreateUserParams{
				Name:  "merchant",
				Email: "merchant@example.com",
			})
			require.NoError(t, err, "creating merchant should not fail")

			fn(service, storage, merchant)
		})
	}

	strPtr := func(s string) *string { return &s }

	createSalePayment := func(t *testing.T, storage repository.Storage, merchant models.User, gatewayID string, amount int64) models.Payment {
		t.Helper()
		payment, err := storage.Payment().CreatePayment(t.Context(), models.Payment{
			GatewayPaymentID: strPtr(gatewayID),
			UserID:           merchant.ID,
			Amount:           decimal.NewFromInt(amount),
			Status:           models.PaymentStatusPending,
			BillingType:      models.BillingTypePix,
		})
		require.NoError(t, err, "creating payment should not fail")
		return payment
	}

	createPendingDeposit := func(t *testing.T, storage repository.Storage, merchant models.User, gatewayID string, amount int64) models.Transaction {
		t.Helper()
		tr, err := storage.Transaction().CreateTransaction(t.Context(), models.Transaction{
			UserID:           merchant.ID,
			Type:             models.TransactionTypeDeposit,
			Amount:           decimal.NewFromInt(amount),
			GatewayPaymentID: strPtr(gatewayID),
		})
		require.NoError(t, err, "creating pending deposit should not fail")
		return tr
	}

	balanceOf := func(t *testing.T, storage repository.Storage, merchant models.User) decimal.Decimal {
		t.Helper()
		user, err := storage.User().GetUserByID(t.Context(), merchant.ID)
		require.NoError(t, err)
		return user.Balance
	}

	t.Run("deposit settlement", func(t *testing.T) {
		withTx(t, func(s *Service, storage repository.Storage, merchant models.User) {
			deposit := createPendingDeposit(t, storage, merchant, "pay_dep", 100)

			s.Handle(t.Context(), []byte(`{"event":"PAYMENT_RECEIVED","payment":{"id":"pay_dep","value":100,"status":"RECEIVED"}}`))

			require.True(t, balanceOf(t, storage, merchant).Equal(decimal.NewFromInt(100)), "deposit should credit the balance")

			trs, err := storage.Transaction().ListByUser(t.Context(), merchant.ID)
			require.NoError(t, err)
			require.Len(t, trs, 1, "deposit settles the pre-created row, no new one")
			require.Equal(t, deposit.ID, trs[0].ID)
			require.Equal(t, models.TransactionStatusCompleted, trs[0].Status)
		})
	})

	t.Run("sale settlement received", func(t *testing.T) {
		withTx(t, func(s *Service, storage repository.Storage, merchant models.User) {
			createSalePayment(t, storage, merchant, "pay_sale", 250)

			s.Handle(t.Context(), []byte(`{"event":"PAYMENT_RECEIVED","payment":{"id":"pay_sale","value":250,"status":"RECEIVED","paymentDate":"2025-03-10"}}`))

			require.True(t, balanceOf(t, storage, merchant).Equal(decimal.NewFromInt(250)), "sale should credit the balance")

			payment, err := storage.Payment().GetPaymentByGatewayID(t.Context(), "pay_sale")
			require.NoError(t, err)
			require.Equal(t, models.PaymentStatusReceived, payment.Status)
			require.NotNil(t, payment.PaymentDate, "payment date from the event should be stored")

			trs, err := storage.Transaction().ListByUser(t.Context(), merchant.ID)
			require.NoError(t, err)
			require.Len(t, trs, 1)
			require.Equal(t, models.TransactionTypePaymentReceived, trs[0].Type)
			require.Equal(t, models.TransactionStatusCompleted, trs[0].Status)
		})
	})

	t.Run("sale settlement confirmed", func(t *testing.T) {
		withTx(t, func(s *Service, storage repository.Storage, merchant models.User) {
			createSalePayment(t, storage, merchant, "pay_conf", 99)

			s.Handle(t.Context(), []byte(`{"event":"PAYMENT_CONFIRMED","payment":{"id":"pay_conf","value":99,"status":"CONFIRMED"}}`))

			payment, err := storage.Payment().GetPaymentByGatewayID(t.Context(), "pay_conf")
			require.NoError(t, err)
			require.Equal(t, models.PaymentStatusConfirmed, payment.Status)
			require.True(t, balanceOf(t, storage, merchant).Equal(decimal.NewFromInt(99)))
		})
	})

	t.Run("duplicate payment event credits once", func(t *testing.T) {
		withTx(t, func(s *Service, storage repository.Storage, merchant models.User) {
			createSalePayment(t, storage, merchant, "pay_twice", 250)

			raw := []byte(`{"event":"PAYMENT_RECEIVED","payment":{"id":"pay_twice","value":250,"status":"RECEIVED"}}`)
			s.Handle(t.Context(), raw)
			s.Handle(t.Context(), raw)

			require.True(t, balanceOf(t, storage, merchant).Equal(decimal.NewFromInt(250)), "re-delivered event must not credit twice")

			trs, err := storage.Transaction().ListByUser(t.Context(), merchant.ID)
			require.NoError(t, err)
			require.Len(t, trs, 1, "only one ledger row for the payment")
		})
	})

	t.Run("refund debits once", func(t *testing.T) {
		withTx(t, func(s *Service, storage repository.Storage, merchant models.User) {
			createSalePayment(t, storage, merchant, "pay_ref", 250)

			s.Handle(t.Context(), []byte(`{"event":"PAYMENT_RECEIVED","payment":{"id":"pay_ref","value":250,"status":"RECEIVED"}}`))
			require.True(t, balanceOf(t, storage, merchant).Equal(decimal.NewFromInt(250)))

			refund := []byte(`{"event":"PAYMENT_REFUNDED","payment":{"id":"pay_ref","value":250,"status":"REFUNDED"}}`)
			s.Handle(t.Context(), refund)

			require.True(t, balanceOf(t, storage, merchant).IsZero(), "refund should debit the sale back")

			payment, err := storage.Payment().GetPaymentByGatewayID(t.Context(), "pay_ref")
			require.NoError(t, err)
			require.Equal(t, models.PaymentStatusRefunded, payment.Status)

			// Re-delivered refund must find the refund row and debit nothing
			s.Handle(t.Context(), refund)

			require.True(t, balanceOf(t, storage, merchant).IsZero(), "duplicate refund must not debit twice")
			trs, err := storage.Transaction().ListByUser(t.Context(), merchant.ID)
			require.NoError(t, err)
			require.Len(t, trs, 2, "one sale row and one refund row")
		})
	})

	t.Run("overdue updates payment only", func(t *testing.T) {
		withTx(t, func(s *Service, storage repository.Storage, merchant models.User) {
			createSalePayment(t, storage, merchant, "pay_late", 30)

			s.Handle(t.Context(), []byte(`{"event":"PAYMENT_OVERDUE","payment":{"id":"pay_late","value":30,"status":"OVERDUE"}}`))

			payment, err := storage.Payment().GetPaymentByGatewayID(t.Context(), "pay_late")
			require.NoError(t, err)
			require.Equal(t, models.PaymentStatusOverdue, payment.Status)

			require.True(t, balanceOf(t, storage, merchant).IsZero(), "overdue must not touch the balance")
			trs, err := storage.Transaction().ListByUser(t.Context(), merchant.ID)
			require.NoError(t, err)
			require.Empty(t, trs, "overdue must not create ledger rows")
		})
	})

	t.Run("transfer finished", func(t *testing.T) {
		withTx(t, func(s *Service, storage repository.Storage, merchant models.User) {
			_, err := storage.User().ApplyBalanceDelta(t.Context(), merchant.ID, decimal.NewFromInt(100))
			require.NoError(t, err)

			_, err = storage.Transaction().CreateTransaction(t.Context(), models.Transaction{
				UserID:            merchant.ID,
				Type:              models.TransactionTypeTransfer,
				Amount:            decimal.NewFromInt(-40),
				GatewayTransferID: strPtr("tra_001"),
			})
			require.NoError(t, err)

			raw := []byte(`{"event":"TRANSFER_FINISHED","transfer":{"id":"tra_001","value":40,"status":"DONE"}}`)
			s.Handle(t.Context(), raw)

			require.True(t, balanceOf(t, storage, merchant).Equal(decimal.NewFromInt(60)), "finished transfer should debit its amount")

			// Second delivery finds no pending transfer and changes nothing
			s.Handle(t.Context(), raw)
			require.True(t, balanceOf(t, storage, merchant).Equal(decimal.NewFromInt(60)))
		})
	})

	t.Run("unknown event audited without side effects", func(t *testing.T) {
		withTx(t, func(s *Service, storage repository.Storage, merchant models.User) {
			s.Handle(t.Context(), []byte(`{"event":"PAYMENT_ANTICIPATED","payment":{"id":"pay_x","value":10}}`))

			require.True(t, balanceOf(t, storage, merchant).IsZero())
			trs, err := storage.Transaction().ListByUser(t.Context(), merchant.ID)
			require.NoError(t, err)
			require.Empty(t, trs)
		})
	})

	t.Run("malformed payload audited with error", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			service := NewService(storage, logger.NewNoOpLogger())

			service.Handle(t.Context(), []byte(`{not json`))

			var procErr *string
			err := tx.QueryRow(t.Context(),
				"SELECT processing_error FROM webhook_events ORDER BY id DESC LIMIT 1",
			).Scan(&procErr)
			require.NoError(t, err, "audit row should exist even for garbage payloads")
			require.NotNil(t, procErr)
			require.Contains(t, *procErr, "failed to parse webhook payload")
		})
	})

	t.Run("event for unknown payment audited with error", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			service := NewService(storage, logger.NewNoOpLogger())

			service.Handle(t.Context(), []byte(`{"event":"PAYMENT_RECEIVED","payment":{"id":"pay_ghost","value":10,"status":"RECEIVED"}}`))

			var procErr *string
			err := tx.QueryRow(t.Context(),
				"SELECT processing_error FROM webhook_events ORDER BY id DESC LIMIT 1",
			).Scan(&procErr)
			require.NoError(t, err)
			require.NotNil(t, procErr, "failure should be recorded on the audit row")
		})
	})

	t.Run("balance equals sum of completed transactions", func(t *testing.T) {
		withTx(t, func(s *Service, storage repository.Storage, merchant models.User) {
			createPendingDeposit(t, storage, merchant, "pay_d1", 100)
			createSalePayment(t, storage, merchant, "pay_s1", 250)
			createSalePayment(t, storage, merchant, "pay_s2", 70)

			events := []string{
				`{"event":"PAYMENT_RECEIVED","payment":{"id":"pay_d1","value":100,"status":"RECEIVED"}}`,
				`{"event":"PAYMENT_RECEIVED","payment":{"id":"pay_s1","value":250,"status":"RECEIVED"}}`,
				`{"event":"PAYMENT_RECEIVED","payment":{"id":"pay_s1","value":250,"status":"RECEIVED"}}`,
				`{"event":"PAYMENT_CONFIRMED","payment":{"id":"pay_s2","value":70,"status":"CONFIRMED"}}`,
				`{"event":"PAYMENT_REFUNDED","payment":{"id":"pay_s2","value":70,"status":"REFUNDED"}}`,
				`{"event":"PAYMENT_REFUNDED","payment":{"id":"pay_s2","value":70,"status":"REFUNDED"}}`,
			}
			for _, raw := range events {
				s.Handle(t.Context(), []byte(raw))
			}

			balance := balanceOf(t, storage, merchant)
			sum, err := storage.Transaction().SumCompletedByUser(t.Context(), merchant.ID)
			require.NoError(t, err)

			require.True(t, balance.Equal(sum), fmt.Sprintf("balance %s should equal completed sum %s", balance, sum))
			require.True(t, balance.Equal(decimal.NewFromInt(350)), "100 deposit + 250 sale, the 70 sale was refunded")
		})
	})
}
