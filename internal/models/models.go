package models

import (
	"time"
)

// Account is the dashboard account prepared from a completed onboarding.
type Account struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	Email         string       `gorm:"uniqueIndex" json:"email"`
	FirstName     string       `json:"firstName"`
	LastName      string       `json:"lastName"`
	Company       string       `json:"company"`
	PasswordHash  string       `json:"-"`
	TermsAccepted bool         `json:"termsAccepted"`
	RegisteredAt  time.Time    `json:"registeredAt"`
	CompletedAt   time.Time    `json:"completedAt"`
	Connections   []Connection `json:"connections"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// Connection is one connected provider of an account.
// Unique per (AccountID, Provider)
type Connection struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	AccountID          uint      `gorm:"uniqueIndex:idx_account_provider;not null" json:"accountId"`
	Provider           string    `gorm:"uniqueIndex:idx_account_provider;not null" json:"provider"` // aws|azure|gcp|oracle
	Handle             string    `gorm:"not null" json:"handle"`
	Regions            string    `json:"regions"` // comma separated
	AutoSync           bool      `json:"autoSync"`
	CostOptimization   bool      `json:"costOptimization"`
	SecurityMonitoring bool      `json:"securityMonitoring"`
	ConnectedAt        time.Time `json:"connectedAt"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Persistent observability models

type TraceRow struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Status     int       `json:"status"`
	SessionID  string    `gorm:"index" json:"sessionId"`
	UserAgent  string    `json:"userAgent"`
	RemoteIP   string    `json:"remoteIp"`
	ReqBytes   int64     `json:"reqBytes"`
	RespBytes  int64     `json:"respBytes"`
	Started    time.Time `json:"started"`
	Ended      time.Time `json:"ended"`
	DurationNs int64     `json:"durationNs"`
}

type TraceEventRow struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	TraceID string    `gorm:"index" json:"traceId"`
	Time    time.Time `json:"time"`
	Name    string    `json:"name"`
	Fields  string    `json:"fields"` // JSON string of fields
}
