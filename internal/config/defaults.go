package config

// DefaultConsumerAPIURL is the default consumer-api endpoint. The free tier
// needs no bearer token.
const DefaultConsumerAPIURL = "https://free-bch.fullstack.cash"

// DefaultRESTAPIURL is the default rest-api endpoint.
const DefaultRESTAPIURL = "https://api.fullstack.cash/v5"

// DefaultPort is the HTTP listen port when PORT is not set.
const DefaultPort = 4345

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version:  1,
		Home:     "~/.opentab",
		Port:     DefaultPort,
		Env:      EnvDevelopment,
		LogLevel: "info",
		APIType:  APITypeConsumer,
		ChainURL: DefaultConsumerAPIURL,
	}
}
