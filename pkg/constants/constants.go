package constants

type ContextKey string

const (
	DBKey        ContextKey = "db"
	TxKey        ContextKey = "tx"
	LoggerKey    ContextKey = "logger"
	UserKey      ContextKey = "user"
	ParamsKey    ContextKey = "params"
	RequestStart ContextKey = "requestStart"
	AppKey       ContextKey = "app"
)
