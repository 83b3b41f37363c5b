// Package watsonx implements [dispatch.TokenSource] and [dispatch.Generator]
// for IBM watsonx.ai.
//
// [TokenCache] exchanges a long-lived IBM Cloud API key for a short-lived IAM
// bearer token and reuses it until it expires. [Client] calls the text
// generation endpoint with that token.
package watsonx

import "time"

const (
	defaultIAMURL   = "https://iam.cloud.ibm.com/identity/token"
	defaultBaseURL  = "https://us-south.ml.cloud.ibm.com"
	defaultModel    = "ibm/granite-3-8b-instruct"
	defaultTimeout  = 10 * time.Second
	defaultTokenTTL = 3500 * time.Second // provider tokens live 3600s
	apiVersion      = "2023-05-29"
	generationPath  = "/ml/v1/text/generation"
	apiKeyGrantType = "urn:ibm:params:oauth:grant-type:apikey"
)

// apiRequest is the JSON body sent to the text generation endpoint.
type apiRequest struct {
	Input       string          `json:"input"`
	Parameters  apiParameters   `json:"parameters"`
	ModelID     string          `json:"model_id"`
	ProjectID   string          `json:"project_id"`
	Moderations *apiModerations `json:"moderations,omitempty"`
}

type apiParameters struct {
	DecodingMethod    string   `json:"decoding_method"`
	MaxNewTokens      int      `json:"max_new_tokens"`
	MinNewTokens      int      `json:"min_new_tokens"`
	RepetitionPenalty float64  `json:"repetition_penalty"`
	StopSequences     []string `json:"stop_sequences,omitempty"`
}

type apiModerations struct {
	HAP *apiDetector `json:"hap,omitempty"`
	PII *apiDetector `json:"pii,omitempty"`
}

type apiDetector struct {
	Input  apiDetectorSide `json:"input"`
	Output apiDetectorSide `json:"output"`
}

type apiDetectorSide struct {
	Enabled   bool     `json:"enabled"`
	Threshold float64  `json:"threshold,omitempty"`
	Mask      *apiMask `json:"mask,omitempty"`
}

type apiMask struct {
	RemoveEntityValue bool `json:"remove_entity_value"`
}

// apiResponse is the JSON body of a successful generation call. Results is
// a pointer so a missing field can be told apart from an empty array.
type apiResponse struct {
	ModelID string       `json:"model_id"`
	Results *[]apiResult `json:"results"`
}

type apiResult struct {
	GeneratedText       *string `json:"generated_text"`
	GeneratedTokenCount int     `json:"generated_token_count"`
	InputTokenCount     int     `json:"input_token_count"`
	StopReason          string  `json:"stop_reason"`
}

// apiErrorResponse is the JSON body returned on non-2xx responses.
type apiErrorResponse struct {
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
	Trace      string `json:"trace"`
	StatusCode int    `json:"status_code"`
}

// iamResponse is the JSON body of a successful token exchange.
type iamResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}
