package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAgentResponse_Reading(t *testing.T) {
	resp, err := ParseAgentResponse(`{"command_name":"EvaluateReading","location":"garden well",
		"ph":6.2,"tds":710,"hardness":240,"nitrate":30,"missing_fields":[],"user_message":"Checking your well"}`)
	require.NoError(t, err)

	r, err := resp.Reading()
	require.NoError(t, err)
	assert.Equal(t, "garden well", r.Location)
	assert.Equal(t, 6.2, r.PH)
	assert.Equal(t, 710.0, r.TDS)
}

func TestParseAgentResponse_Incomplete(t *testing.T) {
	resp, err := ParseAgentResponse(`{"command_name":"EvaluateReading","ph":7,"tds":0,"hardness":0,
		"nitrate":0,"missing_fields":["tds","hardness"],"user_message":"What about TDS?"}`)
	require.NoError(t, err)

	_, err = resp.Reading()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tds, hardness")
}

func TestParseAgentResponse_General(t *testing.T) {
	resp, err := ParseAgentResponse(`{"command_name":"GeneralQuery","missing_fields":[],"user_message":"Hi"}`)
	require.NoError(t, err)
	_, err = resp.Reading()
	assert.Error(t, err)

	_, err = ParseAgentResponse("not json")
	assert.Error(t, err)
}

func TestNewOpenAIService_RequiresKey(t *testing.T) {
	_, err := NewOpenAIService("")
	assert.Error(t, err)
}

func TestGenerateSchema(t *testing.T) {
	assert.NotNil(t, GenerateSchema[AgentResponse]())
}
