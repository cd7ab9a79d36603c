package handlers

import (
	"net/http"

	"github.com/zucropay/zucropay/internal/handlers/middleware"
	"github.com/zucropay/zucropay/internal/logger"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

type RouterDeps struct {
	Reconciler      webhookReconciler
	CheckoutService checkoutService
	PaymentService  paymentService
	AccountService  accountService
	GatewayProxy    gatewayProxy
	TokenVerifier   middleware.TokenVerifier
	APIKeys         middleware.APIKeyAuthenticator
	PlatformAPIKey  string
	Logger          logger.Logger
}

func NewRouter(deps RouterDeps) http.Handler {
	l := deps.Logger

	bearerAuth := middleware.BearerAuth(deps.TokenVerifier)
	withBearer := func(h http.Handler) http.Handler { return bearerAuth(h) }

	apiKeyAuth := middleware.APIKeyAuth(deps.APIKeys)
	withAPIKey := func(h http.Handler) http.Handler { return apiKeyAuth(h) }

	apiv1 := http.NewServeMux()
	apiv1.Handle("POST /payments/create", withAPIKey(handleCreatePayment(deps.PaymentService, l)))
	apiv1.Handle("GET /payments/{id}", handleGetPayment(deps.PaymentService, l))
	apiv1.Handle("POST /checkout", handleCheckout(deps.CheckoutService, l))
	apiv1.Handle("POST /webhooks/gateway", handleGatewayWebhook(deps.Reconciler, l))
	apiv1.Handle("POST /gateway/proxy", withBearer(handleGatewayProxy(deps.GatewayProxy, deps.PlatformAPIKey, l)))

	apiuser := http.NewServeMux()
	apiuser.Handle("GET /balance", withBearer(handleBalance(deps.AccountService, l)))
	apiuser.Handle("GET /transactions", withBearer(handleListTransactions(deps.AccountService, l)))
	apiuser.Handle("POST /deposits", withBearer(handleCreateDeposit(deps.AccountService, l)))
	apiuser.Handle("POST /withdrawals", withBearer(handleRequestWithdrawal(deps.AccountService, l)))
	apiuser.Handle("POST /links", withBearer(handleCreatePaymentLink(deps.AccountService, l)))
	apiuser.Handle("GET /links", withBearer(handleListPaymentLinks(deps.AccountService, l)))

	root := http.NewServeMux()
	root.Handle("/api/v1/", http.StripPrefix("/api/v1", middleware.JSONMethodNotAllowed(apiv1)))
	root.Handle("/api/user/", http.StripPrefix("/api/user", apiuser))

	handler := chain(root,
		middleware.LoggerMiddleware(l),
	)

	return handler
}
