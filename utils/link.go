package utils

import "FileVaultBot/config"

// BatchPrefix marks a deep-link payload as a batch id. Any other payload is
// treated as a single-file retrieval token.
const BatchPrefix = "batch_"

// DeepLink builds the shareable deep link for a single file token.
func DeepLink(token string) string {
	return "https://t.me/" + config.AppConfig.BotUsername + "?start=" + token
}

// BatchDeepLink builds the shareable deep link for a batch.
func BatchDeepLink(batchID string) string {
	return DeepLink(BatchPrefix + batchID)
}
