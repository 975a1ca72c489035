package authserver

import (
	"sync"
	"time"

	"github.com/samber/lo"
)

// Metrics counts authorization server and gateway outcomes. The summary is
// served on /health and logged by the sweeper.
type Metrics struct {
	mu sync.RWMutex

	registrations      int64
	registrationErrors int64
	rateLimitBlocks    int64
	codesIssued        int64
	codeReplays        int64
	tokensIssued       map[string]int64
	tokenErrors        map[string]int64
	gatewayAllowed     int64
	gatewayDenied      map[int]int64

	lastTokenIssuedAt time.Time
	lastFailureAt     time.Time
}

// NewMetrics creates zeroed counters.
func NewMetrics() *Metrics {
	return &Metrics{
		tokensIssued:  make(map[string]int64),
		tokenErrors:   make(map[string]int64),
		gatewayDenied: make(map[int]int64),
	}
}

// RecordRegistration counts a registration attempt by outcome.
func (m *Metrics) RecordRegistration(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if success {
		m.registrations++
		return
	}
	m.registrationErrors++
	m.lastFailureAt = time.Now()
}

// RecordRateLimitBlock counts a rejected registration.
func (m *Metrics) RecordRateLimitBlock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateLimitBlocks++
}

// RecordCodeIssued counts an authorization code.
func (m *Metrics) RecordCodeIssued() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codesIssued++
}

// RecordCodeReplay counts a redemption of an already used code.
func (m *Metrics) RecordCodeReplay() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codeReplays++
}

// RecordTokenIssued counts a token issued through grantType.
func (m *Metrics) RecordTokenIssued(grantType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokensIssued[grantType]++
	m.lastTokenIssuedAt = time.Now()
}

// RecordTokenError counts a token endpoint failure by OAuth error code.
func (m *Metrics) RecordTokenError(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenErrors[code]++
	m.lastFailureAt = time.Now()
}

// RecordGatewayAllowed counts a request the gateway dispatched.
func (m *Metrics) RecordGatewayAllowed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gatewayAllowed++
}

// RecordGatewayDenied counts a request the gateway rejected with status.
func (m *Metrics) RecordGatewayDenied(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gatewayDenied[status]++
	m.lastFailureAt = time.Now()
}

// MetricsSummary is a point-in-time copy of the counters.
type MetricsSummary struct {
	Registrations      int64            `json:"registrations"`
	RegistrationErrors int64            `json:"registration_errors"`
	RateLimitBlocks    int64            `json:"rate_limit_blocks"`
	CodesIssued        int64            `json:"codes_issued"`
	CodeReplays        int64            `json:"code_replays"`
	TokensIssued       map[string]int64 `json:"tokens_issued"`
	TokenErrors        map[string]int64 `json:"token_errors"`
	GatewayAllowed     int64            `json:"gateway_allowed"`
	GatewayDenied      map[int]int64    `json:"gateway_denied"`
	LastTokenIssuedAt  *time.Time       `json:"last_token_issued_at,omitempty"`
	LastFailureAt      *time.Time       `json:"last_failure_at,omitempty"`
}

// Summary returns a copy of all counters.
func (m *Metrics) Summary() MetricsSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := MetricsSummary{
		Registrations:      m.registrations,
		RegistrationErrors: m.registrationErrors,
		RateLimitBlocks:    m.rateLimitBlocks,
		CodesIssued:        m.codesIssued,
		CodeReplays:        m.codeReplays,
		TokensIssued:       lo.Assign(m.tokensIssued),
		TokenErrors:        lo.Assign(m.tokenErrors),
		GatewayAllowed:     m.gatewayAllowed,
		GatewayDenied:      lo.Assign(m.gatewayDenied),
	}
	if !m.lastTokenIssuedAt.IsZero() {
		t := m.lastTokenIssuedAt
		summary.LastTokenIssuedAt = &t
	}
	if !m.lastFailureAt.IsZero() {
		t := m.lastFailureAt
		summary.LastFailureAt = &t
	}
	return summary
}
