package ratelimit

import "time"

// Per-endpoint budgets. Names double as key namespaces so buckets never share
// counters.
var (
	SendCode      = Policy{Name: "send-verification-code", MaxRequests: 3, Window: 60 * time.Minute}
	VerifyCode    = Policy{Name: "verify-code", MaxRequests: 5, Window: 15 * time.Minute}
	CheckPassword = Policy{Name: "check-user-has-password", MaxRequests: 10, Window: 15 * time.Minute}
	Login         = Policy{Name: "login-with-password", MaxRequests: 5, Window: 15 * time.Minute}
	SetPassword   = Policy{Name: "set-user-password", MaxRequests: 5, Window: 15 * time.Minute}
	DashboardData = Policy{Name: "get-dashboard-data", MaxRequests: 30, Window: time.Minute}
)
