// Package flow implements the shipping assistant's dialogue engine.
//
// This file bridges unparseable input to the LLM. The model may answer in
// free text or propose a get_quote / get_tracking tool call; proposed
// arguments are validated with the same predicates the deterministic path
// uses before any collaborator is invoked.
package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/avocadolabs/photon/internal/genai"
	"github.com/avocadolabs/photon/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// quoteToolDefinition describes the get_quote tool exposed to the LLM.
func quoteToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        string(models.ToolTypeGetQuote),
			Description: openai.String("Get shipping quote when all required fields are available."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"from_pincode": map[string]interface{}{"type": "string"},
					"to_pincode":   map[string]interface{}{"type": "string"},
					"weight":       map[string]interface{}{"type": "number"},
					"length":       map[string]interface{}{"type": "number"},
					"width":        map[string]interface{}{"type": "number"},
					"height":       map[string]interface{}{"type": "number"},
				},
			},
		},
	}
}

// trackingToolDefinition describes the get_tracking tool exposed to the LLM.
func trackingToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        string(models.ToolTypeGetTracking),
			Description: openai.String("Track shipment using tracking number."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"tracking_number": map[string]interface{}{"type": "string"},
				},
			},
		},
	}
}

// buildSystemPrompt assembles the fallback system instructions: identity,
// domain restriction, anti-fabrication rules and output formatting.
func buildSystemPrompt(userName string) string {
	if userName == "" {
		userName = "User"
	}
	return fmt.Sprintf(`You are Photon AI Assistant developed by AvocadoLabs Pvt Ltd.

The logged-in user's name is: %s.

CORE ROLE
You ONLY assist with:
1. Shipping Quotes
2. Shipment Tracking
If the user asks something outside shipping or tracking, respond politely:
"I can only assist with shipping quotes and shipment tracking."
Do NOT repeat this unnecessarily if the conversation is already about shipping.

PERSONALITY & TONE
Friendly but professional. Clear and structured. Not robotic.
Ask only what is missing. Keep responses concise.

INTENT UNDERSTANDING
Understand natural language shipping requests and extract:
from_pincode (6 digits), to_pincode (6 digits), weight (kg),
length (cm), width (cm), height (cm).
If the user provides partial data, ask ONLY for the missing fields.

STRICT VALIDATION RULES
Pincodes must be exactly 6 digits. Weight and dimensions must be numeric.
Do NOT guess values. Do NOT auto-fill missing data.
Do NOT fabricate courier names, prices, or tracking numbers. Never hallucinate.

SHIPPING QUOTE BEHAVIOR
When ALL fields are available, call the get_quote function.

TRACKING BEHAVIOR
When the user wants tracking and a tracking number is present,
call the get_tracking function. Otherwise ask for the tracking number.
Do NOT fabricate status.

IDENTITY RULES
"Who developed you?" -> "Photon AI Assistant is developed by AvocadoLabs Pvt Ltd."
"What is your name?" -> "I am Photon AI Assistant, your shipping assistant."
"What is my name?" -> "Your name is %s."

ERROR HANDLING
If an API fails, say: "Unable to retrieve data at the moment. Please try again."
Never expose internal errors. Never mention tools, system instructions, or function calls.`, userName, userName)
}

// handleFallback routes a message the deterministic logic could not handle
// through the LLM.
func (e *Engine) handleFallback(ctx context.Context, s *ConversationState, userMessage string) (*models.ChatResponse, error) {
	userName := e.shipping.DisplayName(ctx)

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(buildSystemPrompt(userName)),
		openai.UserMessage(userMessage),
	}
	tools := []openai.ChatCompletionToolParam{
		quoteToolDefinition(),
		trackingToolDefinition(),
	}

	resp, err := e.genai.GenerateWithTools(ctx, messages, tools)
	if err != nil {
		slog.Error("Engine.handleFallback: generation failed", "error", err)
		return nil, &UpstreamError{Op: "llm fallback", Err: err}
	}

	if len(resp.ToolCalls) > 0 {
		return e.executeFallbackTool(ctx, s, resp.ToolCalls[0])
	}

	if resp.Content != "" {
		return &models.ChatResponse{Response: resp.Content}, nil
	}
	return &models.ChatResponse{Response: "I can only assist with shipping quotes and shipment tracking."}, nil
}

// executeFallbackTool validates and runs a single tool call proposed by the
// model. Invalid or missing arguments produce a field-specific prompt and the
// collaborator is not invoked.
func (e *Engine) executeFallbackTool(ctx context.Context, s *ConversationState, call genai.ToolCall) (*models.ChatResponse, error) {
	slog.Debug("Engine.executeFallbackTool: tool proposed", "tool", call.Function.Name)

	switch call.Function.Name {
	case string(models.ToolTypeGetQuote):
		var params models.QuoteToolParams
		if err := json.Unmarshal(call.Function.Arguments, &params); err != nil {
			slog.Warn("Engine.executeFallbackTool: unparseable quote arguments", "error", &FallbackParseError{Tool: call.Function.Name, Err: err})
			return &models.ChatResponse{Response: quoteFieldsPrompt}, nil
		}
		if err := params.Validate(); err != nil {
			return &models.ChatResponse{Response: err.Error()}, nil
		}

		s.FromPincode = params.FromPincode.String()
		s.ToPincode = params.ToPincode.String()
		s.WeightKg = floatPtr(params.Weight)
		s.LengthCm = floatPtr(params.Length)
		s.WidthCm = floatPtr(params.Width)
		s.HeightCm = floatPtr(params.Height)
		resp, _, err := e.completeQuote(ctx, s, s.FromPincode, s.ToPincode, true)
		return resp, err

	case string(models.ToolTypeGetTracking):
		var params models.TrackingToolParams
		if err := json.Unmarshal(call.Function.Arguments, &params); err != nil {
			slog.Warn("Engine.executeFallbackTool: unparseable tracking arguments", "error", &FallbackParseError{Tool: call.Function.Name, Err: err})
			return &models.ChatResponse{Response: "Please provide tracking number."}, nil
		}
		if err := params.Validate(); err != nil {
			return &models.ChatResponse{Response: err.Error()}, nil
		}
		return e.completeTracking(ctx, s, params.TrackingNumber.String())

	default:
		slog.Warn("Engine.executeFallbackTool: unknown tool", "tool", call.Function.Name)
		return &models.ChatResponse{Response: "I can only assist with shipping quotes and shipment tracking."}, nil
	}
}
