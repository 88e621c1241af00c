package ldevents

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNullEventProcessor(t *testing.T) {
	n := NewNullEventProcessor()
	n.SendEvent(defaultEventFactory.NewIdentifyEvent(outputTestUser))
	n.Flush()

	require.NoError(t, n.Close())
}
