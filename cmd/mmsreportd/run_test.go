package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slonegd/mmsreportd/config"
)

func TestExitCodeForClassifiesErrors(t *testing.T) {
	assert.Equal(t, 2, exitCodeFor(&connectError{cause: errors.New("dial failed")}))
	assert.Equal(t, 3, exitCodeFor(&initiateError{cause: errors.New("negotiate failed")}))
	assert.Equal(t, 1, exitCodeFor(&argumentError{cause: errors.New("bad flag")}))
	assert.Equal(t, 1, exitCodeFor(errors.New("unclassified cobra usage error")))
}

func TestApplyFlagsOverConfigKeepsUnchangedFlags(t *testing.T) {
	cmd := newRunCommand()
	a := assert.New(t)
	a.NoError(cmd.Flags().Set("domain", "VMC7_2LD0"))

	cfg := config.Config{
		Port:        102,
		Domain:      "VMC7_1LD0",
		SinkBatchMs: 200,
		RCBs:        []config.RCBConfig{{Domain: "VMC7_2LD0", Item: "LLN0.RP.URCB01"}},
	}

	var flags runFlags
	flags.port = 102
	flags.domain = "VMC7_2LD0"
	flags.sinkBatchMs = 200

	applyFlagsOverConfig(&cfg, []string{"10.0.0.5"}, flags, cmd.Flags())

	a.Equal("10.0.0.5", cfg.Host)
	a.Equal(102, cfg.Port)             // untouched, --port never set
	a.Equal("VMC7_2LD0", cfg.Domain)   // overridden, --domain was set
	a.Equal(200, cfg.SinkBatchMs)      // untouched default survives
}

func TestApplyFlagsOverConfigPositionalPort(t *testing.T) {
	cmd := newRunCommand()
	cfg := config.Config{Port: 102}
	var flags runFlags

	applyFlagsOverConfig(&cfg, []string{"10.0.0.5", "3782"}, flags, cmd.Flags())

	assert.Equal(t, "10.0.0.5", cfg.Host)
	assert.Equal(t, 3782, cfg.Port)
}
