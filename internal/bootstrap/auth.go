package bootstrap

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edbridge/portal-api/config"
	"github.com/edbridge/portal-api/internal/adapters/authroles"
	"github.com/edbridge/portal-api/internal/adapters/devauth"
	"github.com/edbridge/portal-api/internal/adapters/idp"
	"github.com/edbridge/portal-api/internal/adapters/jwks"
	redisadapter "github.com/edbridge/portal-api/internal/adapters/redis"
	"github.com/edbridge/portal-api/internal/data"
	httpx "github.com/edbridge/portal-api/internal/http"
	"github.com/edbridge/portal-api/internal/observability/statsd"
	"github.com/edbridge/portal-api/internal/ports"
	"github.com/edbridge/portal-api/internal/service"
	"github.com/edbridge/portal-api/internal/service/failurenotifier"
	"github.com/redis/go-redis/v9"
)

// AuthComponents bundles the wired identity pipeline: provider adapter,
// verifier, resolver, guard, and the services the router consumes.
type AuthComponents struct {
	Auth         *service.AuthService
	Provisioning *service.ProvisioningService
	Users        *data.UserRepo
	Guard        *httpx.Guard
}

// AuthDeps groups dependencies for BuildAuth.
type AuthDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Metrics     statsd.Sink              // optional
	Notifier    *failurenotifier.Service // optional
	Logger      *slog.Logger
}

// BuildAuth wires the identity pipeline from configuration. Components are
// constructed and passed explicitly; there is no container or reflection.
func BuildAuth(deps AuthDeps) (*AuthComponents, error) {
	if deps.Config == nil {
		return nil, errors.New("config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	authCfg := deps.Config.Auth

	groups := authroles.StaticGroupMapper{
		AdminGroup:     authCfg.AdminGroup,
		CorporateGroup: authCfg.CorporateGroup,
		StudentGroup:   authCfg.StudentGroup,
	}

	provider, keys, err := buildProvider(authCfg, deps.Metrics, logger)
	if err != nil {
		return nil, err
	}

	verifier, err := service.NewJWTVerifier(service.VerifierConfig{
		Issuer:    issuerFor(authCfg),
		ClientID:  clientIDFor(authCfg),
		ClockSkew: authCfg.ClockSkew,
		Keys:      keys,
	})
	if err != nil {
		return nil, fmt.Errorf("build verifier: %w", err)
	}

	users := data.NewUserRepo(deps.DB)
	resolver := service.NewResolver(users)

	var ledger ports.ProvisionLedger
	if deps.RedisClient != nil {
		ledger = redisadapter.NewProvisionLedger(deps.RedisClient)
	} else {
		logger.Warn("redis not configured; partial provisioning failures will not be recorded")
	}

	guard := httpx.NewGuard(httpx.GuardOptions{
		Verifier: verifier,
		Resolver: resolver,
		Logger:   logger,
		Metrics:  deps.Metrics,
	})

	return &AuthComponents{
		Auth: service.NewAuthService(service.AuthServiceOptions{
			Provider: provider,
			Groups:   groups,
			Logger:   logger,
		}),
		Provisioning: service.NewProvisioningService(service.ProvisioningServiceOptions{
			Provider: provider,
			Users:    users,
			Ledger:   ledger,
			Groups:   groups,
			Notifier: deps.Notifier,
			Logger:   logger,
		}),
		Users: users,
		Guard: guard,
	}, nil
}

// buildProvider selects the identity provider and the verifier's key source
// for the configured auth mode.
func buildProvider(authCfg config.AuthConfig, sink statsd.Sink, logger *slog.Logger) (ports.IdentityProvider, service.KeyProvider, error) {
	switch authCfg.Mode {
	case config.AuthModeMock:
		prov, err := devauth.NewProvider(devauth.Config{
			Subject:  authCfg.DevAuth.Subject,
			Email:    authCfg.DevAuth.Email,
			Groups:   authCfg.DevAuth.Groups,
			Issuer:   issuerFor(authCfg),
			ClientID: clientIDFor(authCfg),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("build dev auth provider: %w", err)
		}
		logger.Warn("dev auth mode active; all credentials are accepted")
		return prov, prov, nil

	case config.AuthModeIdP:
		prov, err := idp.NewClient(idp.Config{
			AdminBaseURL: authCfg.IdP.AdminBaseURL,
			AuthBaseURL:  authCfg.IdP.AuthBaseURL,
			Timeout:      authCfg.IdP.Timeout,
			Logger:       logger,
			Metrics:      sink,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("build idp client: %w", err)
		}
		keys, err := jwks.NewCache(jwks.Config{
			URL:             authCfg.IdP.JWKSEndpoint(),
			RefreshInterval: authCfg.IdP.JWKSRefreshInterval,
			FetchTimeout:    authCfg.IdP.JWKSTimeout,
			Logger:          logger,
			Metrics:         sink,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("build jwks cache: %w", err)
		}
		return prov, keys, nil

	default:
		return nil, nil, fmt.Errorf("unknown auth mode %q", authCfg.Mode)
	}
}

// issuerFor returns the configured issuer, substituting a local issuer name
// in mock mode where no pool exists.
func issuerFor(authCfg config.AuthConfig) string {
	if authCfg.Mode == config.AuthModeMock && authCfg.IdP.Issuer == "" {
		return "https://dev.portal.local"
	}
	return authCfg.IdP.Issuer
}

func clientIDFor(authCfg config.AuthConfig) string {
	if authCfg.Mode == config.AuthModeMock && authCfg.IdP.ClientID == "" {
		return "portal-dev"
	}
	return authCfg.IdP.ClientID
}
