package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()

	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(Patches.WithLabelValues("patch"))
	Patches.WithLabelValues("patch").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(Patches.WithLabelValues("patch")))
}
