package cli

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/dyike/StockAnalyzer/internal/form"
)

// PromptForCredential asks for the API key without echoing it.
func PromptForCredential() (form.Credential, error) {
	var key string
	prompt := &survey.Password{
		Message: "OpenAI API Key:",
		Help:    "Sent to the analysis service with this request only. It is not saved.",
	}

	err := survey.AskOne(prompt, &key, survey.WithValidator(survey.Required))
	if err != nil {
		return "", err
	}

	return form.Credential(key), nil
}

// PromptForStock asks for the stock name or ticker. Any non-blank text is
// accepted and passed on as typed.
func PromptForStock() (string, error) {
	var stock string
	prompt := &survey.Input{
		Message: "Stock Name:",
		Help:    "A company name or ticker, e.g. Tata Motors or AAPL",
	}

	err := survey.AskOne(prompt, &stock, survey.WithValidator(func(val interface{}) error {
		str, _ := val.(string)
		if strings.TrimSpace(str) == "" {
			return fmt.Errorf("stock name cannot be empty")
		}
		return nil
	}))
	if err != nil {
		return "", err
	}

	return stock, nil
}

// ConfirmInsecureEndpoint warns before pointing the client at a plain-http
// remote host.
func ConfirmInsecureEndpoint(endpoint string) (bool, error) {
	var confirmed bool
	prompt := &survey.Confirm{
		Message: fmt.Sprintf("%s is not https. API keys will be sent in clear text. Continue?", endpoint),
		Default: false,
	}

	if err := survey.AskOne(prompt, &confirmed); err != nil {
		return false, err
	}
	return confirmed, nil
}
