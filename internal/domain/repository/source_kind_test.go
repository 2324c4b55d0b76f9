package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSourceKind(t *testing.T) {
	assert.Equal(t, SourceYahoo, NormalizeSourceKind(""))
	assert.Equal(t, SourceWarehouse, NormalizeSourceKind("warehouse"))
	assert.Equal(t, SourceYahoo, NormalizeSourceKind("bloomberg"))
	assert.True(t, IsValidSourceKind(SourceCSV))
}
