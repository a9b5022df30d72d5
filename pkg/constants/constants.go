package constants

import (
	"github.com/go-playground/validator/v10"
)

type ContextKey string

const (
	TxKey       ContextKey = "tx"
	PoolKey     ContextKey = "pool"
	LoggerKey   ContextKey = "logger"
	ParamsKey   ContextKey = "params"
	TenantIDKey ContextKey = "tenant_id"
)

// Validate is the shared validator instance used by all command DTOs.
var Validate = validator.New(validator.WithRequiredStructEnabled())
