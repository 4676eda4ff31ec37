package cache

// StoreConfig holds configuration for the Redis advisory store
type StoreConfig struct {
	KeyPrefix string `json:"keyPrefix"` // prefix for all cache keys
}

// DefaultStoreConfig returns default store configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		KeyPrefix: "advisor:",
	}
}
