package authclient

import (
	"context"
	"strconv"

	"github.com/kdktj/authclient/internal/flows"
)

const (
	opLogin    = "login"
	opRegister = "register"
)

// Login describes the login operation and its observable behavior.
//
// Login exchanges creds for a token, persists it, and resolves the user from
// the reply or with a follow-up fetch. A failed follow-up fetch still counts
// as success: the result has UserPending set and the session stays in
// StatusVerifying until RefreshUser or StartupCheck backfills the user.
//
// On failure the previous session is restored in memory and store, and the
// returned *OperationError carries the message to show.
func (m *Manager) Login(ctx context.Context, creds Credentials) (AuthResult, error) {
	if err := m.usable(); err != nil {
		return AuthResult{}, err
	}
	exchange := func(ctx context.Context) (string, *User, error) {
		resp, err := m.client.Login(ctx, creds)
		return resp.Token, resp.User, err
	}
	return m.authenticate(ctx, opLogin, exchange, nil)
}

// Register describes the register operation and its observable behavior.
//
// Register follows the Login contract with the register endpoint. When
// Config.Register.LoginAfterRegister is set and the reply has no token, it
// signs in with profile's email and password before reporting ErrNoToken.
func (m *Manager) Register(ctx context.Context, profile Profile) (AuthResult, error) {
	if err := m.usable(); err != nil {
		return AuthResult{}, err
	}
	exchange := func(ctx context.Context) (string, *User, error) {
		resp, err := m.client.Register(ctx, profile)
		return resp.Token, resp.User, err
	}
	var fallback flows.Exchange
	if m.config.Register.LoginAfterRegister {
		fallback = func(ctx context.Context) (string, *User, error) {
			resp, err := m.client.Login(ctx, Credentials{Email: profile.Email, Password: profile.Password})
			return resp.Token, resp.User, err
		}
	}
	return m.authenticate(ctx, opRegister, exchange, fallback)
}

func (m *Manager) authenticate(ctx context.Context, op string, exchange, fallback flows.Exchange) (AuthResult, error) {
	c := m.observe()
	defer c.release()

	m.mu.RLock()
	prev := flows.Pair{Token: m.st.token, User: m.st.user.Clone()}
	m.mu.RUnlock()

	start := m.now()
	res := flows.RunLogin(ctx, flows.LoginDeps{
		Exchange:   exchange,
		Fallback:   fallback,
		FetchUser:  m.client.CurrentUser,
		Store:      claimStore{c: c},
		Previous:   prev,
		ErrNoToken: ErrNoToken,
		Warn:       m.logger.Warn,
	})
	elapsed := m.now().Sub(start)
	m.metrics.Observe(MetricLoginLatency, elapsed)

	successMetric, failureMetric := MetricLoginSuccess, MetricLoginFailure
	successEvent, failureEvent := auditEventLoginSuccess, auditEventLoginFailure
	fallbackMsg := m.config.Messages.LoginFailed
	if op == opRegister {
		successMetric, failureMetric = MetricRegisterSuccess, MetricRegisterFailure
		successEvent, failureEvent = auditEventRegisterSuccess, auditEventRegisterFailure
		fallbackMsg = m.config.Messages.RegisterFailed
	}

	if !res.Success() {
		opErr := m.fail(op, res.Err, fallbackMsg)
		m.metrics.Inc(failureMetric)
		m.emitAudit(ctx, failureEvent, false, "", opErr.Message, func() map[string]string {
			return map[string]string{"stage": loginStage(res.Failure)}
		})
		m.setLastError(c, opErr.Message)
		return AuthResult{}, opErr
	}

	if res.UserErr != nil {
		m.logger.Warn("authclient: signed in but the user record could not be loaded", "op", op, "error", res.UserErr)
	}

	snap, ok := m.mutate(c, func(st *state) {
		st.token = res.Token
		st.user = res.User.Clone()
		st.optimistic = false
		st.lastError = ""
		if res.User != nil {
			st.status = StatusAuthenticated
		} else {
			st.status = StatusVerifying
		}
	})
	if ok {
		m.notify(snap)
	}

	userID := ""
	if res.User != nil {
		userID = res.User.IDString()
	}
	m.metrics.Inc(successMetric)
	m.emitAudit(ctx, successEvent, true, userID, "", func() map[string]string {
		return map[string]string{
			"user_from":    res.FetchedBy,
			"user_pending": strconv.FormatBool(res.User == nil),
			"duration_ms":  formatMillis(elapsed),
		}
	})

	return AuthResult{
		Token:       res.Token,
		User:        res.User.Clone(),
		UserPending: res.User == nil,
	}, nil
}

func loginStage(kind flows.LoginFailureKind) string {
	switch kind {
	case flows.LoginFailureExchange:
		return "exchange"
	case flows.LoginFailureNoToken:
		return "no_token"
	case flows.LoginFailurePersist:
		return "persist"
	default:
		return "none"
	}
}
