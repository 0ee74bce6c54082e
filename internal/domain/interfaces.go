package domain

import (
	"context"
)

// ConditionOracle supplies additional raw condition suggestions from an advisory service.
// Implementations must never fail past this boundary: every failure becomes an empty slice.
type ConditionOracle interface {
	QueryForParameters(ctx context.Context, parameters []Parameter, member MemberInfo, existingConditions []string) []ConditionSuggestion
	QueryForReportTypes(ctx context.Context, reportTypes []string, member MemberInfo, existingConditions []string) []ConditionSuggestion
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetEngineConfig() *EngineConfig
	GetOracleConfig() *OracleConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetDatabaseURL() string
	IsProduction() bool
	IsDevelopment() bool
}
