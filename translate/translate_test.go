package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrom(t *testing.T) {
	assert := assert.New(t)

	Set("en-US")
	assert.Equal("fault at $00FF: halted", From("fault at $%04X: %v", 0xff, "halted"))
	assert.Equal("line 12 halted", From("line %d %v", 12, "halted"))

	Set()
	assert.Equal("breakpoint 7 unknown", From("breakpoint %d unknown", 7))
}
