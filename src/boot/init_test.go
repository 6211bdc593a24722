package boot

import (
	"testing"

	"tbs/src/lib"

	"github.com/go-co-op/gocron/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitSchedulerRegistersExpirySweep(t *testing.T) {
	sched, err := gocron.NewScheduler()
	require.NoError(t, err)
	lib.NewScheduler(sched)

	InitScheduler()

	assert.Len(t, sched.Jobs(), 1)
	require.NoError(t, sched.Shutdown())
}
