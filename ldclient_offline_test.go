package ldclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchdarkly/go-server-sdk-sub008/ldreason"
	"github.com/launchdarkly/go-server-sdk-sub008/ldvalue"
)

func TestBoolVariationReturnsDefaultValueOffline(t *testing.T) {
	client := makeOfflineTestClient()
	defer client.Close()

	defaultVal := true
	value, err := client.BoolVariation("featureKey", evalTestUser, defaultVal)
	assert.NoError(t, err)
	assert.Equal(t, defaultVal, value)

	value, detail, err := client.BoolVariationDetail("featureKey", evalTestUser, defaultVal)
	assert.NoError(t, err)
	assert.Equal(t, defaultVal, value)
	assert.Equal(t, ldvalue.Bool(defaultVal), detail.Value)
	assert.Equal(t, ldreason.NoVariation, detail.VariationIndex)
	assert.Equal(t, ldreason.EvalErrorClientNotReady, detail.Reason.ErrorKind())
}

func TestIntVariationReturnsDefaultValueOffline(t *testing.T) {
	client := makeOfflineTestClient()
	defer client.Close()

	defaultVal := 100
	value, err := client.IntVariation("featureKey", evalTestUser, defaultVal)
	assert.NoError(t, err)
	assert.Equal(t, defaultVal, value)

	value, detail, err := client.IntVariationDetail("featureKey", evalTestUser, defaultVal)
	assert.NoError(t, err)
	assert.Equal(t, defaultVal, value)
	assert.Equal(t, ldvalue.Int(defaultVal), detail.Value)
	assert.Equal(t, ldreason.NoVariation, detail.VariationIndex)
	assert.Equal(t, ldreason.EvalErrorClientNotReady, detail.Reason.ErrorKind())
}

func TestFloat64VariationReturnsDefaultValueOffline(t *testing.T) {
	client := makeOfflineTestClient()
	defer client.Close()

	defaultVal := 100.0
	value, err := client.Float64Variation("featureKey", evalTestUser, defaultVal)
	assert.NoError(t, err)
	assert.Equal(t, defaultVal, value)

	value, detail, err := client.Float64VariationDetail("featureKey", evalTestUser, defaultVal)
	assert.NoError(t, err)
	assert.Equal(t, defaultVal, value)
	assert.Equal(t, ldvalue.Float64(defaultVal), detail.Value)
	assert.Equal(t, ldreason.NoVariation, detail.VariationIndex)
	assert.Equal(t, ldreason.EvalErrorClientNotReady, detail.Reason.ErrorKind())
}

func TestStringVariationReturnsDefaultValueOffline(t *testing.T) {
	client := makeOfflineTestClient()
	defer client.Close()

	defaultVal := "expected"
	value, err := client.StringVariation("featureKey", evalTestUser, defaultVal)
	assert.NoError(t, err)
	assert.Equal(t, defaultVal, value)

	value, detail, err := client.StringVariationDetail("featureKey", evalTestUser, defaultVal)
	assert.NoError(t, err)
	assert.Equal(t, defaultVal, value)
	assert.Equal(t, ldvalue.String(defaultVal), detail.Value)
	assert.Equal(t, ldreason.NoVariation, detail.VariationIndex)
	assert.Equal(t, ldreason.EvalErrorClientNotReady, detail.Reason.ErrorKind())
}

func TestJSONVariationReturnsDefaultValueOffline(t *testing.T) {
	client := makeOfflineTestClient()
	defer client.Close()

	defaultVal := ldvalue.BuildObject().Set("field2", ldvalue.String("value2")).Build()
	value, err := client.JSONVariation("featureKey", evalTestUser, defaultVal)
	assert.NoError(t, err)
	assert.Equal(t, defaultVal, value)

	value, detail, err := client.JSONVariationDetail("featureKey", evalTestUser, defaultVal)
	assert.NoError(t, err)
	assert.Equal(t, defaultVal, value)
	assert.Equal(t, defaultVal, detail.Value)
	assert.Equal(t, ldreason.NoVariation, detail.VariationIndex)
	assert.Equal(t, ldreason.EvalErrorClientNotReady, detail.Reason.ErrorKind())
}

func TestAllFlagsStateReturnsInvalidStateOffline(t *testing.T) {
	client := makeOfflineTestClient()
	defer client.Close()

	state := client.AllFlagsState(evalTestUser)
	assert.False(t, state.IsValid())
}

func TestOfflineClientIdentifyDoesNotError(t *testing.T) {
	client := makeOfflineTestClient()
	defer client.Close()

	require.NoError(t, client.Identify(evalTestUser))
}

func TestOfflineClientTrackEventDoesNotError(t *testing.T) {
	client := makeOfflineTestClient()
	defer client.Close()

	require.NoError(t, client.TrackEvent("some-event", evalTestUser))
}
