package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuracion del servicio. Todos los
// colaboradores externos son opcionales: si falta su configuracion el
// servicio arranca degradado en lugar de negarse a iniciar.
type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`

	DatabaseURL string `env:"DATABASE_URL"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	LLMBaseURL string `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMAPIKey  string `env:"LLM_API_KEY"`
	LLMModel   string `env:"LLM_MODEL" envDefault:"gpt-5.1"`

	STTBaseURL string `env:"STT_BASE_URL"`
	STTAPIKey  string `env:"STT_API_KEY"`

	RenderBaseURL string `env:"RENDER_BASE_URL"`

	FilesDir     string `env:"FILES_DIR" envDefault:"./files"`
	FilesBaseURL string `env:"FILES_BASE_URL" envDefault:"http://localhost:8080/files"`

	ConversationTTLDays    int `env:"CONVERSATION_TTL_DAYS" envDefault:"30"`
	ContextWindow          int `env:"CONTEXT_WINDOW" envDefault:"0"`
	FinalizeTimeoutSeconds int `env:"FINALIZE_TIMEOUT_SECONDS" envDefault:"30"`
}

// LoadConfig carga la configuracion desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
