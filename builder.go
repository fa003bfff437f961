package authcore

import (
	"errors"
	"time"

	"github.com/MrEthical07/authcore/internal/rate"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/store"
	"github.com/MrEthical07/authcore/store/redisstore"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Builder assembles an Engine. A Builder can build exactly once.
type Builder struct {
	config Config
	store  store.Store
	redis  redis.UniversalClient

	notifier   Notifier
	clock      Clock
	limiter    RateLimiter
	limiterSet bool
	logger     logrus.FieldLogger

	targets     []string
	targetFuncs map[string]TargetResolver

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config:      DefaultConfig(),
		targetFuncs: make(map[string]TargetResolver),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore sets the persistence backend. It takes precedence over the
// store WithRedis would create.
func (b *Builder) WithStore(st store.Store) *Builder {
	b.store = st
	return b
}

// WithRedis sets the Redis client used for the default store and the
// built-in rate limiter.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithNotifier sets the token delivery collaborator. Defaults to LogNotifier.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithClock sets the clock. Defaults to SystemClock.
func (b *Builder) WithClock(c Clock) *Builder {
	b.clock = c
	return b
}

// WithRateLimiter overrides the built-in Redis limiter. Passing nil
// disables rate limiting.
func (b *Builder) WithRateLimiter(l RateLimiter) *Builder {
	b.limiter = l
	b.limiterSet = true
	return b
}

// WithLogger sets the logger. Defaults to NewLogger(Config.Logging).
func (b *Builder) WithLogger(l logrus.FieldLogger) *Builder {
	b.logger = l
	return b
}

// WithTarget registers a resolver for an authenticate target type.
func (b *Builder) WithTarget(typeName string, fn TargetResolver) *Builder {
	if _, ok := b.targetFuncs[typeName]; !ok {
		b.targets = append(b.targets, typeName)
	}
	b.targetFuncs[typeName] = fn
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the authentication latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- LOGGER --------
	logger := b.logger
	if logger == nil {
		l, err := NewLogger(cfg.Logging)
		if err != nil {
			return nil, err
		}
		logger = l
	}
	logger = logger.WithField("component", "authcore")

	// -------- STORE --------
	st := b.store
	if st == nil {
		if b.redis == nil {
			return nil, errors.New("store or redis client required")
		}
		st = redisstore.New(b.redis, redisstore.Options{
			Prefix:  cfg.Storage.RedisPrefix,
			LockTTL: cfg.Storage.LockTTL,
		})
	}

	// -------- RATE LIMITER --------
	limiter := b.limiter
	if !b.limiterSet && cfg.Security.RateLimit.Enabled {
		if b.redis == nil {
			return nil, errors.New("RateLimit requires redis client or WithRateLimiter")
		}
		rl := cfg.Security.RateLimit
		limiter = rate.New(b.redis, rate.Config{
			Prefix: cfg.Storage.RedisPrefix + ":rl",
			Limits: map[string]rate.Limit{
				EndpointSignIn:              {Max: rl.SignInMax, Window: rl.SignInWindow},
				EndpointRequestConfirmation: {Max: rl.RequestMax, Window: rl.RequestWindow},
				EndpointRequestUnlock:       {Max: rl.RequestMax, Window: rl.RequestWindow},
				EndpointRequestRecovery:     {Max: rl.RequestMax, Window: rl.RequestWindow},
			},
		})
	}

	// -------- PASSWORDS --------
	for _, w := range cfg.Lint().BySeverity(LintWarn) {
		logger.WithFields(logrus.Fields{"code": w.Code, "severity": w.Severity.String()}).Warn(w.Message)
	}
	hasher, err := password.NewHasher(password.Config{
		Pepper:      cfg.Password.Pepper,
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	policy, err := password.NewPolicy(cfg.Password.MinLength, cfg.Password.MaxLength, cfg.Password.Format)
	if err != nil {
		return nil, err
	}

	// -------- TARGETS --------
	targets := NewTargetRegistry()
	for _, name := range b.targets {
		if err := targets.Register(name, b.targetFuncs[name]); err != nil {
			return nil, err
		}
	}
	targets.Freeze()

	clock := b.clock
	if clock == nil {
		clock = SystemClock
	}
	notifier := b.notifier
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	metrics := NewMetrics(cfg.Metrics)
	st = clockedStore{Store: st, clock: clock}

	credentials, err := newCredentialStore(st, hasher, cfg)
	if err != nil {
		return nil, err
	}

	newTokens := func(kind TokenKind, endpoint string, expiry time.Duration) *tokenService {
		return &tokenService{
			kind:     kind,
			expiry:   expiry,
			endpoint: endpoint,
			accounts: st,
			clock:    clock,
			notifier: notifier,
			limiter:  limiter,
			metrics:  metrics,
			log:      logger,
		}
	}

	e := &Engine{
		config:      cfg,
		store:       st,
		hasher:      hasher,
		policy:      policy,
		clock:       clock,
		limiter:     limiter,
		targets:     targets,
		metrics:     metrics,
		log:         logger,
		credentials: credentials,
	}

	e.sessions = &SessionManager{
		sessions:    st,
		accounts:    st,
		credentials: credentials,
		cfg:         cfg.Session,
		clock:       clock,
		metrics:     metrics,
		log:         logger,
	}
	e.refresher = &RefreshRotator{
		sessions:    st,
		accounts:    st,
		credentials: credentials,
		manager:     e.sessions,
		clock:       clock,
		metrics:     metrics,
		log:         logger,
	}

	if cfg.Lockout.Enabled {
		e.lockout = &LockoutPolicy{
			accounts: st,
			tokens:   newTokens(TokenUnlock, EndpointRequestUnlock, cfg.Lockout.TokenExpiry),
			notify:   cfg.Lockout.NotifyOnLock,
			metrics:  metrics,
			log:      logger,
		}
	}
	e.authenticator = &Authenticator{
		credentials:   credentials,
		accounts:      st,
		hasher:        hasher,
		lockout:       e.lockout,
		preventTiming: cfg.Security.PreventTimingAttack,
		metrics:       metrics,
		log:           logger,
	}

	if cfg.Confirmation.Enabled {
		e.confirmationTokens = newTokens(TokenConfirmation, EndpointRequestConfirmation, cfg.Confirmation.TokenExpiry)
		e.confirmation = &ConfirmationService{
			tokens:  e.confirmationTokens,
			metrics: metrics,
		}
	}
	if cfg.Recovery.Enabled {
		e.recovery = &RecoveryService{
			tokens:         newTokens(TokenRecovery, EndpointRequestRecovery, cfg.Recovery.TokenExpiry),
			hasher:         hasher,
			policy:         policy,
			sessions:       e.sessions,
			revokeSessions: cfg.Recovery.RevokeSessions,
			metrics:        metrics,
			log:            logger,
		}
	}

	b.built = true

	return e, nil
}
