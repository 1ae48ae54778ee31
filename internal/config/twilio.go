package config

import (
	"os"

	"github.com/spf13/viper"

	"github.com/rytflow/rytflow/internal/whatsapp"
)

// LoadTwilioConfig loads Twilio credentials with this precedence:
// 1. Viper configuration (config file or RYTFLOW_ env vars)
// 2. Direct environment variables (TWILIO_*)
func LoadTwilioConfig() whatsapp.TwilioConfig {
	config := whatsapp.TwilioConfig{
		AccountSID:     viper.GetString("twilio.account_sid"),
		AuthToken:      viper.GetString("twilio.auth_token"),
		WhatsAppNumber: viper.GetString("twilio.whatsapp_number"),
		BaseURL:        viper.GetString("twilio.base_url"),
	}

	if config.AccountSID == "" {
		config.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if config.AuthToken == "" {
		config.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if config.WhatsAppNumber == "" {
		config.WhatsAppNumber = os.Getenv("TWILIO_WHATSAPP_NUMBER")
	}

	return config
}
