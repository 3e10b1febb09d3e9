package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIConfig holds configuration for the OpenAI backend.
type OpenAIConfig struct {
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// OpenAI calls the Responses API. A client is built per request because the credential is per request.
type OpenAI struct {
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewOpenAI creates an OpenAI backend.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	return &OpenAI{model: cfg.Model, baseURL: cfg.BaseURL, httpClient: cfg.HTTPClient}
}

func (o *OpenAI) Name() string { return BackendOpenAI }

// Generate sends one Responses API request. SDK retries are disabled: Invoker owns the retry policy.
// TopK has no Responses API equivalent and is ignored.
func (o *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Credential) == "" {
		return "", errors.New("openai: credential is empty")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(req.Credential),
		option.WithMaxRetries(0),
	}
	if o.baseURL != "" {
		opts = append(opts, option.WithBaseURL(o.baseURL))
	}
	if o.httpClient != nil {
		opts = append(opts, option.WithHTTPClient(o.httpClient))
	}
	client := openai.NewClient(opts...)

	params := responses.ResponseNewParams{
		Model:       o.model,
		Temperature: openai.Float(req.Params.Temperature),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(req.Prompt, responses.EasyInputMessageRoleUser),
			},
		},
	}
	if req.Params.MaxOutputTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(req.Params.MaxOutputTokens))
	}
	if req.Params.TopP > 0 {
		params.TopP = openai.Float(req.Params.TopP)
	}
	if req.Schema != nil {
		name := req.SchemaName
		if name == "" {
			name = "Result"
		}
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:   name,
					Schema: req.Schema,
					// Participant-keyed maps cannot be expressed in strict mode.
					Strict: openai.Bool(false),
					Type:   "json_schema",
				},
			},
		}
	}

	resp, err := client.Responses.New(ctx, params)
	if err != nil {
		return "", err
	}
	return resp.OutputText(), nil
}

// GenerateSchema reflects T into the JSON Schema sent as the structured-output format. Field names come from
// json tags; nested types are inlined because the Responses API rejects $ref.
func GenerateSchema[T any]() map[string]any {
	r := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var zero T
	doc, err := schemaToMap(r.Reflect(zero))
	if err != nil {
		panic(fmt.Sprintf("GenerateSchema: %v", err))
	}
	ensureOpenAICompliance(doc)
	return doc
}

// schemaToMap round-trips the reflected schema through JSON so the compliance pass can edit it as plain maps.
func schemaToMap(schema *jsonschema.Schema) (map[string]any, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return doc, nil
}

const (
	propertiesKey           = "properties"
	additionalPropertiesKey = "additionalProperties"
	typeKey                 = "type"
	requiredKey             = "required"
	itemsKey                = "items"
)

// ensureOpenAICompliance closes struct objects and marks all their properties required.
// Objects without declared properties are free-key maps and stay open.
func ensureOpenAICompliance(schema map[string]interface{}) {
	properties, hasProps := schema[propertiesKey].(map[string]interface{})
	if schemaType, ok := schema[typeKey].(string); ok && schemaType == "object" && hasProps {
		schema[additionalPropertiesKey] = false

		var requiredFields []string
		for propName := range properties {
			requiredFields = append(requiredFields, propName)
		}
		if len(requiredFields) > 0 {
			schema[requiredKey] = requiredFields
		}
	}

	if hasProps {
		for _, prop := range properties {
			if propMap, ok := prop.(map[string]interface{}); ok {
				ensureOpenAICompliance(propMap)
			}
		}
	}

	if items, ok := schema[itemsKey].(map[string]interface{}); ok {
		ensureOpenAICompliance(items)
	}

	if additionalProps, ok := schema[additionalPropertiesKey].(map[string]interface{}); ok {
		ensureOpenAICompliance(additionalProps)
	}
}
