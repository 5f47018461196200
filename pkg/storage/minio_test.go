package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectName(t *testing.T) {
	assert.Equal(t, "raw/abc/policy.pdf", ObjectName("abc", "policy.pdf"))
	assert.Equal(t, "raw/abc/passwd", ObjectName("abc", "../../etc/passwd"))
}
