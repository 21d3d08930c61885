package readiness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProbe(t *testing.T) {
	var p Probe
	assert.False(t, p.Ready())

	p.Up()
	assert.True(t, p.Ready())

	p.Down()
	assert.False(t, p.Ready())
}
