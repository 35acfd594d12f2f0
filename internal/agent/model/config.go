package model

// ================ Config ================
type ConversationConfig struct {
	// HistoryMaxTurns bounds how many prior turns are sent to the response
	// model.
	HistoryMaxTurns int `envconfig:"CONVERSATION_HISTORY_MAX_TURNS" default:"5"`

	// TitleMaxChars bounds the auto-generated session title length.
	TitleMaxChars int `envconfig:"CONVERSATION_TITLE_MAX_CHARS" default:"50"`

	Lock struct {
		TTL  string `envconfig:"CONVERSATION_LOCK_TTL" default:"30s"`
		Wait string `envconfig:"CONVERSATION_LOCK_WAIT" default:"5s"`
	}
}

type CatalogConfig struct {
	SearchLimit    int `envconfig:"CATALOG_SEARCH_LIMIT" default:"6"`
	RecommendLimit int `envconfig:"CATALOG_RECOMMEND_LIMIT" default:"4"`
	RecentOrders   int `envconfig:"CATALOG_RECENT_ORDERS" default:"3"`
}

type ClassifierModelConfig struct {
	Model       string  `envconfig:"CLASSIFIER_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"CLASSIFIER_MAX_TOKENS" default:"1000"`
	Temperature float32 `envconfig:"CLASSIFIER_TEMPERATURE" default:"0.1"`
}

type ResponseModelConfig struct {
	Model       string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESPONSE_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.7"`
}

type ResponsePromptConfig struct {
	BusinessType string `envconfig:"PROMPT_BUSINESS_TYPE" default:"agriculture eCommerce"`
	BusinessName string `envconfig:"PROMPT_BUSINESS_NAME" default:"AgriDeliver"`
}
