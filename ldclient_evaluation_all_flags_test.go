package ldclient

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchdarkly/go-server-sdk-sub008/internal/datasource"
	"github.com/launchdarkly/go-server-sdk-sub008/ldmodel"
	"github.com/launchdarkly/go-server-sdk-sub008/ldvalue"
)

func TestAllFlagsStateGetsState(t *testing.T) {
	date := uint64(1000)
	flag1 := singleValueFlag("key1", ldvalue.String("value1"))
	flag1.Version = 100

	flag2 := ldmodel.FeatureFlag{
		Key:                  "key2",
		Version:              200,
		On:                   false,
		OffVariation:         intPtr(1),
		Variations:           []ldvalue.Value{ldvalue.String("x"), ldvalue.String("value2")},
		TrackEvents:          true,
		DebugEventsUntilDate: &date,
	}

	client, _ := makeEvalTestClient(flag1, flag2)
	defer client.Close()

	state := client.AllFlagsState(evalTestUser)
	assert.True(t, state.IsValid())

	expectedString := `{
		"key1":"value1",
		"key2":"value2",
		"$flagsState":{
			"key1":{
				"variation":0,"version":100,"reason":null
			},
			"key2": {
				"variation":1,"version":200,"trackEvents":true,"debugEventsUntilDate":1000,"reason":null
			}
		},
		"$valid":true
	}`
	actualBytes, err := json.Marshal(state)
	require.NoError(t, err)
	assert.JSONEq(t, expectedString, string(actualBytes))
}

func TestAllFlagsStateCanFilterForClientSideFlags(t *testing.T) {
	serverSideFlag := singleValueFlag("server-side-flag", ldvalue.String("a"))
	clientSideFlag := singleValueFlag("client-side-flag", ldvalue.String("b"))
	clientSideFlag.ClientSide = true

	client, _ := makeEvalTestClient(serverSideFlag, clientSideFlag)
	defer client.Close()

	state := client.AllFlagsState(evalTestUser, ClientSideOnly)
	values := state.ToValuesMap()
	assert.Equal(t, map[string]ldvalue.Value{"client-side-flag": ldvalue.String("b")}, values)
}

func TestAllFlagsStateCanIncludeReasons(t *testing.T) {
	client, _ := makeEvalTestClient(boolFlag("flagKey", true))
	defer client.Close()

	state := client.AllFlagsState(evalTestUser, WithReasons)
	reason := state.GetFlagReason("flagKey")
	assert.NotEmpty(t, reason.Kind())
}

func TestAllFlagsStateDetailsOnlyForTrackedFlagsOmitsUntrackedFlags(t *testing.T) {
	tracked := singleValueFlag("tracked", ldvalue.String("a"))
	tracked.TrackEvents = true
	untracked := singleValueFlag("untracked", ldvalue.String("b"))

	client, _ := makeEvalTestClient(tracked, untracked)
	defer client.Close()

	state := client.AllFlagsState(evalTestUser, DetailsOnlyForTrackedFlags)
	actualBytes, err := json.Marshal(state)
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(actualBytes, &parsed))
	flagsState := parsed["$flagsState"].(map[string]interface{})
	assert.NotEmpty(t, flagsState["tracked"])
	assert.Empty(t, flagsState["untracked"])
}

type neverInitializedDataSource struct{}

func (neverInitializedDataSource) Initialized() bool { return false }
func (neverInitializedDataSource) Close() error      { return nil }
func (neverInitializedDataSource) Start() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func TestAllFlagsStateReturnsEmptyStateWhenStoreUninitialized(t *testing.T) {
	config := DefaultConfig
	config.DataSourceFactory = func(string, Config) (datasource.DataSource, error) {
		return neverInitializedDataSource{}, nil
	}
	client, _ := MakeCustomClient("sdkKey", config, 0)
	defer client.Close()

	state := client.AllFlagsState(evalTestUser)
	assert.False(t, state.IsValid())
}

func intPtr(i int) *int {
	return &i
}
