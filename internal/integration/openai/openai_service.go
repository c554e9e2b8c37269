package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/abelzeko/water-quality-bot/internal/entities"
	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Commands the agent may return
const (
	CommandEvaluateReading = "EvaluateReading"
	CommandGeneralQuery    = "GeneralQuery"
)

// AgentResponse defines the structured output from the OpenAI agent.
type AgentResponse struct {
	CommandName   string   `json:"command_name" jsonschema_description:"EvaluateReading when the user reports water measurements, otherwise GeneralQuery"`
	Location      string   `json:"location" jsonschema_description:"Sampling location mentioned by the user, or empty"`
	PH            float64  `json:"ph" jsonschema_description:"pH value, 0 if not given"`
	TDS           float64  `json:"tds" jsonschema_description:"Total dissolved solids in mg/L, 0 if not given"`
	Hardness      float64  `json:"hardness" jsonschema_description:"Hardness in mg/L, 0 if not given"`
	Nitrate       float64  `json:"nitrate" jsonschema_description:"Nitrate in mg/L, 0 if not given"`
	MissingFields []string `json:"missing_fields" jsonschema_description:"Which of ph, tds, hardness, nitrate the user did not provide"`
	UserMessage   string   `json:"user_message" jsonschema_description:"A short message to show back to the user in their original language"`
}

// Reading converts a complete EvaluateReading response into a reading
func (a *AgentResponse) Reading() (entities.Reading, error) {
	if a.CommandName != CommandEvaluateReading {
		return entities.Reading{}, fmt.Errorf("agent did not extract a reading (command %q)", a.CommandName)
	}
	if len(a.MissingFields) > 0 {
		return entities.Reading{}, fmt.Errorf("missing values for %s", strings.Join(a.MissingFields, ", "))
	}
	return entities.Reading{
		Location: a.Location,
		PH:       a.PH,
		TDS:      a.TDS,
		Hardness: a.Hardness,
		Nitrate:  a.Nitrate,
	}, nil
}

// OpenAIService defines the interface for interacting with the OpenAI agent.
type OpenAIService interface {
	InterpretUserQuery(ctx context.Context, userMessage string) (*AgentResponse, error)
}

// openAIServiceImpl implements the OpenAIService interface.
type openAIServiceImpl struct {
	client openai.Client
	schema interface{}
}

// GenerateSchema generates a JSON schema for a given type.
func GenerateSchema[T any]() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return schema
}

// NewOpenAIService creates and initializes a new OpenAIService.
func NewOpenAIService(apiKey string) (OpenAIService, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key not configured")
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	schema := GenerateSchema[AgentResponse]()

	return &openAIServiceImpl{
		client: client,
		schema: schema,
	}, nil
}

const systemPrompt = `You help people check the quality of their drinking water.

Users describe water test results in free text, in any language. Your job is to pull out
the four measurements the risk checker needs: pH, total dissolved solids (TDS, mg/L),
hardness (mg/L) and nitrate (mg/L). Convert units to mg/L where the user gives ppm (1 ppm = 1 mg/L).

Behavior:
1. If the user reports measurements:
   - command_name = "EvaluateReading"
   - fill ph, tds, hardness, nitrate; set any value the user did not give to 0 and list its
     name (ph, tds, hardness or nitrate) in missing_fields
   - location: the well, tap or place they mention, else ""
   - user_message: a one-line confirmation in the user's language, or a request for the missing values
2. Otherwise (greetings, questions, nonsense):
   - command_name = "GeneralQuery", all numbers 0, missing_fields empty
   - user_message: a short answer in their language pointing them to /check or /help

Output **strictly** in JSON.`

// InterpretUserQuery sends a message to the OpenAI agent and returns the structured response.
func (s *openAIServiceImpl) InterpretUserQuery(ctx context.Context, userMessage string) (*AgentResponse, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "reading_extraction",
		Description: openai.String("Structured water-quality reading extracted from user text"),
		Schema:      s.schema,
		Strict:      openai.Bool(true),
	}

	respFormat := openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
	}

	chat, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userMessage),
		},
		ResponseFormat: respFormat,
		Model:          openai.ChatModelGPT4o,
	})

	if err != nil {
		return nil, fmt.Errorf("error calling OpenAI API: %w", err)
	}

	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return nil, errors.New("received empty response from OpenAI")
	}

	return ParseAgentResponse(chat.Choices[0].Message.Content)
}

// ParseAgentResponse decodes the agent's JSON output
func ParseAgentResponse(content string) (*AgentResponse, error) {
	var agentResp AgentResponse
	if err := json.Unmarshal([]byte(content), &agentResp); err != nil {
		log.Printf("Failed to unmarshal OpenAI response: %s\nRaw response: %s", err, content)
		return nil, fmt.Errorf("error unmarshalling OpenAI response: %w", err)
	}
	return &agentResp, nil
}
