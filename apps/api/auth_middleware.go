package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	platformauth "github.com/sidelinehq/trophy-cabinet/platform/go/auth"
	"github.com/sidelinehq/trophy-cabinet/platform/go/gcp"
)

// buildAuthMiddleware selects the token verifier configured for this
// deployment and wraps it into the JWT middleware.
func buildAuthMiddleware(ctx context.Context, cfg config, logger *zap.Logger) func(http.Handler) http.Handler {
	var verify platformauth.VerifyFunc
	switch cfg.AuthProvider {
	case "firebase":
		_, fbAuth, err := gcp.InitFirebaseAuth(ctx, cfg.FirebaseCreds)
		if err != nil {
			logger.Fatal("init firebase auth", zap.Error(err))
		}
		verify = platformauth.FirebaseTokenVerifier(fbAuth)
	case "dev":
		logger.Warn("using dev auth middleware; do not use in production")
		verify = platformauth.UnsignedTokenVerifier()
	default:
		logger.Fatal("unsupported auth provider", zap.String("provider", cfg.AuthProvider))
	}

	return platformauth.JWT(verify)
}
